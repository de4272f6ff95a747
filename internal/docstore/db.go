package docstore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const fileExtension = ".json"

// DB resolves logical database/collection names to Collection instances.
// Databases are a namespacing concept only: each (database, collection) pair
// maps deterministically to one file under the data directory. Collections
// are created lazily on first access and cached for the process lifetime.
//
// The store is designed for single-process embedding. Two processes pointed
// at the same data directory can corrupt each other's writes.
type DB struct {
	dir  string
	mu   sync.RWMutex
	cols map[string]*Collection
}

// Open prepares a store rooted at dir, creating the directory if needed.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory '%s': %w", dir, err)
	}
	slog.Info("Document store opened", "dir", dir)
	return &DB{dir: dir, cols: make(map[string]*Collection)}, nil
}

// Dir returns the store's root data directory.
func (db *DB) Dir() string { return db.dir }

// Collection returns the store for a database/collection pair. The first call
// for a pair creates the instance; subsequent calls return the same one.
func (db *DB) Collection(database, collection string) *Collection {
	key := database + "." + collection

	db.mu.RLock()
	col, found := db.cols[key]
	db.mu.RUnlock()
	if found {
		return col
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	// Double-check in case another goroutine created it while we waited for the lock.
	if col, found = db.cols[key]; found {
		return col
	}

	path := filepath.Join(db.dir, database, collection+fileExtension)
	col = newCollection(key, path)
	db.cols[key] = col
	slog.Debug("Collection opened", "name", key, "path", path)
	return col
}

// CollectionNames lists the collections with backing storage in a database,
// sorted by name. A collection that has never been written does not appear.
func (db *DB) CollectionNames(database string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(db.dir, database))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list collections for '%s': %w", database, err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExtension) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), fileExtension))
	}
	sort.Strings(names)
	return names, nil
}

// DatabaseNames lists the databases with backing storage, sorted by name.
func (db *DB) DatabaseNames() ([]string, error) {
	entries, err := os.ReadDir(db.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Snapshot copies every persisted collection file into destDir, preserving
// the database/collection layout. Each file is copied under its collection's
// read lock, so a snapshot never observes a rename in progress.
func (db *DB) Snapshot(destDir string) error {
	databases, err := db.DatabaseNames()
	if err != nil {
		return err
	}
	for _, database := range databases {
		collections, err := db.CollectionNames(database)
		if err != nil {
			return err
		}
		for _, name := range collections {
			col := db.Collection(database, name)
			if err := col.copyTo(filepath.Join(destDir, database, name+fileExtension)); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Collection) copyTo(dest string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	raw, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read collection '%s' for snapshot: %w", c.name, err)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory for '%s': %w", c.name, err)
	}
	if err := os.WriteFile(dest, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot of '%s': %w", c.name, err)
	}
	return nil
}
