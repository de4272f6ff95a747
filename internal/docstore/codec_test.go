package docstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsEmptyCollection(t *testing.T) {
	docs, err := loadDocuments(filepath.Join(t.TempDir(), "never-written.json"))
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLoadCorruptFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"title": "Widg`), 0o644))

	_, err := loadDocuments(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")
}

func TestSaveLoadRoundTripPreservesShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	id := NewObjectID()
	docs := []Document{
		{
			IDField: id,
			"title": "Widget",
			"price": 9.99,
			"tags":  []any{"blue", 1.0, true, nil},
			"dims":  Document{"w": 2.0, "deep": Document{"x": []any{Document{"y": 1.0}}}},
		},
		{IDField: NewObjectID(), "empty": Document{}},
	}
	require.NoError(t, saveDocuments(path, docs))

	loaded, err := loadDocuments(path)
	require.NoError(t, err)
	if diff := cmp.Diff(docs, loaded); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}

	// The identifier must come back as a typed ObjectID, not a plain map.
	gotID, ok := loaded[0].ID()
	require.True(t, ok)
	assert.Equal(t, id, gotID)
}

func TestSaveTagsIdentifiersOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	id := NewObjectID()
	require.NoError(t, saveDocuments(path, []Document{{IDField: id}}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"$oid"`)
	assert.Contains(t, string(raw), id.Hex())
}

func TestLoadLeavesLookalikeMapsAlone(t *testing.T) {
	// Only a single-key {"$oid": <24-hex>} object is an identifier tag.
	path := filepath.Join(t.TempDir(), "products.json")
	content := `[{"a": {"$oid": "nope"}, "b": {"$oid": "ffffffffffffffffffffffff", "extra": 1}}]`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	docs, err := loadDocuments(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, Document{"$oid": "nope"}, docs[0]["a"])
	assert.Equal(t, Document{"$oid": "ffffffffffffffffffffffff", "extra": 1.0}, docs[0]["b"])
}

func TestSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")
	require.NoError(t, saveDocuments(path, []Document{{"v": 1.0}}))
	require.NoError(t, saveDocuments(path, []Document{{"v": 2.0}}))

	docs, err := loadDocuments(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, 2.0, docs[0]["v"])

	// No temp files may be left behind after a successful save.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "products.json", entries[0].Name())
}

func TestSaveNilListWritesEmptyArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, saveDocuments(path, nil))

	docs, err := loadDocuments(path)
	require.NoError(t, err)
	assert.Empty(t, docs)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}
