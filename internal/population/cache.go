package population

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// cacheVersion is bumped whenever the blob layout changes. Blobs with another
// version are ignored and rebuilt.
const cacheVersion = 1

// ErrStaleCache is returned by ReadCache for a blob with another version.
var ErrStaleCache = errors.New("stale population cache")

type cacheBlob struct {
	Version     int
	Source      string
	SourceMod   time.Time
	KeyColumn   string
	ValueColumn string
	Keys        []string
	Values      []int64
}

// WriteCache stores t at path. The file is written to a temporary name and
// renamed so readers never see a partial blob.
func WriteCache(path string, t *Table, source string, sourceMod time.Time) error {
	blob := cacheBlob{
		Version:     cacheVersion,
		Source:      source,
		SourceMod:   sourceMod.UTC(),
		KeyColumn:   t.KeyColumn,
		ValueColumn: t.ValueColumn,
		Keys:        t.Keys(),
		Values:      make([]int64, len(t.keys)),
	}
	for i, k := range t.keys {
		blob.Values[i] = t.values[k]
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".population-*")
	if err != nil {
		return fmt.Errorf("population: cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(&blob); err != nil {
		tmp.Close()
		return fmt.Errorf("population: cache encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("population: cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("population: cache: %w", err)
	}
	return nil
}

// ReadCache loads a blob written by WriteCache and returns the table with the
// source modification time it was built from.
func ReadCache(path string) (*Table, time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("population: cache: %w", err)
	}
	defer f.Close()

	var blob cacheBlob
	if err := gob.NewDecoder(f).Decode(&blob); err != nil {
		return nil, time.Time{}, fmt.Errorf("population: cache decode: %w", err)
	}
	if blob.Version != cacheVersion || len(blob.Keys) != len(blob.Values) {
		return nil, time.Time{}, fmt.Errorf("population: %w: %s", ErrStaleCache, path)
	}

	t := NewTable(blob.KeyColumn, blob.ValueColumn)
	for i, k := range blob.Keys {
		t.Add(k, blob.Values[i])
	}
	return t, blob.SourceMod, nil
}

// LoadCached returns the table for source, served from cachePath when the
// blob was built from the current version of source and the columns match.
// Otherwise source is parsed and the cache rewritten. An empty cachePath
// disables caching.
//
// The boolean result reports a cache hit.
func LoadCached(ctx context.Context, source, cachePath string, opt Options) (*Table, bool, error) {
	opt = opt.withDefaults()
	st, err := os.Stat(source)
	if err != nil {
		return nil, false, fmt.Errorf("population: %w", err)
	}

	if cachePath != "" {
		t, mod, err := ReadCache(cachePath)
		if err == nil && mod.Equal(st.ModTime().UTC()) && t.KeyColumn == opt.Key && t.ValueColumn == opt.Value {
			return t, true, nil
		}
	}

	t, err := Load(ctx, source, opt)
	if err != nil {
		return nil, false, err
	}
	if cachePath != "" {
		if err := WriteCache(cachePath, t, source, st.ModTime()); err != nil {
			return nil, false, err
		}
	}
	return t, false, nil
}
