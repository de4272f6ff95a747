package docstore

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionInstanceIsCached(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)

	a := db.Collection("shop", "products")
	b := db.Collection("shop", "products")
	assert.Same(t, a, b, "same pair must resolve to the same instance")

	c := db.Collection("shop", "orders")
	assert.NotSame(t, a, c)
	d := db.Collection("sessions", "products")
	assert.NotSame(t, a, d, "database name is part of the key")
}

func TestCollectionCachedUnderConcurrency(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)

	const n = 16
	instances := make([]*Collection, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			instances[slot] = db.Collection("shop", "products")
		}(i)
	}
	wg.Wait()
	for i := 1; i < n; i++ {
		assert.Same(t, instances[0], instances[i])
	}
}

func TestBackingFileLayout(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	require.NoError(t, err)

	_, err = db.Collection("shop", "products").InsertOne(Document{"title": "Widget"})
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "shop", "products.json"))
	assert.NoError(t, statErr, "path is a pure function of the two names")
}

func TestDatabaseAndCollectionNames(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)

	// Nothing persisted yet: nothing listed, even though instances exist.
	db.Collection("shop", "never-written")
	names, err := db.CollectionNames("shop")
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = db.Collection("shop", "products").InsertOne(Document{})
	require.NoError(t, err)
	_, err = db.Collection("shop", "orders").InsertOne(Document{})
	require.NoError(t, err)
	_, err = db.Collection("sessions", "active").InsertOne(Document{})
	require.NoError(t, err)

	names, err = db.CollectionNames("shop")
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "products"}, names)

	dbs, err := db.DatabaseNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"sessions", "shop"}, dbs)
}

func TestIndependentCollectionsDoNotShareState(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)

	products := db.Collection("shop", "products")
	orders := db.Collection("shop", "orders")

	_, err = products.InsertOne(Document{"title": "Widget"})
	require.NoError(t, err)

	count, err := orders.CountDocuments(map[string]any{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSnapshotCopiesEveryCollection(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)

	_, err = db.Collection("shop", "products").InsertOne(Document{"title": "Widget"})
	require.NoError(t, err)
	_, err = db.Collection("shop", "orders").InsertOne(Document{"ref": "o-1"})
	require.NoError(t, err)

	dest := t.TempDir()
	require.NoError(t, db.Snapshot(dest))

	for _, rel := range []string{
		filepath.Join("shop", "products.json"),
		filepath.Join("shop", "orders.json"),
	} {
		want, err := os.ReadFile(filepath.Join(db.Dir(), rel))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(dest, rel))
		require.NoError(t, err)
		assert.Equal(t, want, got, "snapshot of %s must be byte-identical", rel)
	}
}
