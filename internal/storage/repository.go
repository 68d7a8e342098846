// Package storage defines the backend-agnostic results store: table specs,
// the Repository contract and a registry of backend factories.
//
// Backends register themselves from init(); import
// liquorsales/internal/storage/all to link every backend in.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures a backend.
//
// Kind must match a registered backend ("sqlite", "postgres", "mssql"). DSN is
// passed through to the backend; validation is backend-specific.
type Config struct {
	Kind string
	DSN  string
}

// Repository is the minimal write interface the analysis needs. Each backend
// implements the semantics in its own idiom (Postgres COPY and ON CONFLICT,
// SQLite OR IGNORE, SQL Server NOT EXISTS).
type Repository interface {
	// Close releases backend resources. Call it once when done.
	Close()

	// EnsureTables creates missing tables and their unique constraints.
	// Existing tables are left untouched.
	EnsureTables(ctx context.Context, tables []TableSpec) error

	// InsertRows inserts rows into table. Each row must have len(columns)
	// values. When dedupeColumns is non-empty, rows whose dedupe key already
	// exists (in the table or earlier in the same call) are skipped.
	//
	// It returns the number of rows inserted.
	InsertRows(ctx context.Context, table string, columns []string, rows [][]any, dedupeColumns []string) (int64, error)
}

// Factory constructs a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a backend under kind. Call it from an init() function in
// the backend package.
//
// Panics:
//   - If kind is empty or f is nil.
//   - If kind is already registered.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Repository using the registered factory for cfg.Kind.
//
// Errors:
//   - cfg.Kind is empty or not registered.
//   - Whatever the factory returns (connection failures, bad DSN).
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("storage: unsupported kind=%s (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()

	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
