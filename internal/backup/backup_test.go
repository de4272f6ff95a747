package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfront/internal/docstore"
)

func TestPerformSnapshotsEveryCollection(t *testing.T) {
	dataDir := t.TempDir()
	backupDir := t.TempDir()

	db, err := docstore.Open(dataDir)
	require.NoError(t, err)
	_, err = db.Collection("shop", "products").InsertOne(docstore.Document{"title": "Widget"})
	require.NoError(t, err)
	_, err = db.Collection("shop", "orders").InsertOne(docstore.Document{"ref": "r-1"})
	require.NoError(t, err)

	m := NewManager(db, backupDir, time.Hour, time.Hour)
	require.NoError(t, m.Perform())
	assert.False(t, m.LastRun().IsZero())

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	snapshot := filepath.Join(backupDir, entries[0].Name())
	original, err := os.ReadFile(filepath.Join(dataDir, "shop", "products.json"))
	require.NoError(t, err)
	copied, err := os.ReadFile(filepath.Join(snapshot, "shop", "products.json"))
	require.NoError(t, err)
	assert.Equal(t, original, copied)

	_, err = os.Stat(filepath.Join(snapshot, "shop", "orders.json"))
	assert.NoError(t, err)
}

func TestCleanupPrunesExpiredSnapshots(t *testing.T) {
	dataDir := t.TempDir()
	backupDir := t.TempDir()

	db, err := docstore.Open(dataDir)
	require.NoError(t, err)

	// Stale snapshot directory named two days in the past.
	old := time.Now().Add(-48 * time.Hour).Format(timestampLayout)
	require.NoError(t, os.Mkdir(filepath.Join(backupDir, old), 0755))
	// A directory that is not a snapshot stays untouched.
	require.NoError(t, os.Mkdir(filepath.Join(backupDir, "keep-me"), 0755))

	m := NewManager(db, backupDir, time.Hour, 24*time.Hour)
	require.NoError(t, m.Perform())

	_, err = os.Stat(filepath.Join(backupDir, old))
	assert.True(t, os.IsNotExist(err), "expired snapshot should be pruned")
	_, err = os.Stat(filepath.Join(backupDir, "keep-me"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "keep-me plus the fresh snapshot")
}

func TestStatusReporting(t *testing.T) {
	db, err := docstore.Open(t.TempDir())
	require.NoError(t, err)

	m := NewManager(db, t.TempDir(), time.Hour, time.Hour)
	assert.Equal(t, "A backup has never been performed", m.Status())

	require.NoError(t, m.Perform())
	assert.Contains(t, m.Status(), "Last successful backup")
}

func TestStartStop(t *testing.T) {
	db, err := docstore.Open(t.TempDir())
	require.NoError(t, err)
	backupDir := t.TempDir()

	m := NewManager(db, backupDir, time.Hour, time.Hour)
	m.Start()
	m.Stop()

	// The startup backup ran before Stop returned.
	entries, err := os.ReadDir(backupDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
