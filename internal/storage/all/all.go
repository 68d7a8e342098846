// Package all registers every storage backend and the SQL Server driver.
// Binaries import it for side effects.
package all

import (
	_ "github.com/microsoft/go-mssqldb"

	_ "liquorsales/internal/storage/mssql"
	_ "liquorsales/internal/storage/postgres"
	_ "liquorsales/internal/storage/sqlite"
)
