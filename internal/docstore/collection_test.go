package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCollection(t *testing.T) *Collection {
	t.Helper()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	return db.Collection("shop", "products")
}

func mustInsert(t *testing.T, col *Collection, doc Document) ObjectID {
	t.Helper()
	id, err := col.InsertOne(doc)
	require.NoError(t, err)
	return id
}

func TestInsertFindRoundTrip(t *testing.T) {
	col := testCollection(t)

	doc := Document{
		"title": "Widget",
		"price": 9.99,
		"dims":  Document{"w": 2.0, "h": 4.0},
		"tags":  []any{"blue", "steel"},
	}
	id := mustInsert(t, col, doc)

	got, err := col.FindOne(map[string]any{IDField: id})
	require.NoError(t, err)

	want := doc.Clone()
	want[IDField] = id
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round-tripped document mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertDoesNotMutateCallerDocument(t *testing.T) {
	col := testCollection(t)

	doc := Document{"title": "Widget"}
	mustInsert(t, col, doc)
	_, present := doc[IDField]
	assert.False(t, present, "InsertOne must assign the id on a copy")
}

func TestFindOneNoMatch(t *testing.T) {
	col := testCollection(t)
	mustInsert(t, col, Document{"title": "Widget"})

	_, err := col.FindOne(map[string]any{"title": "Gadget"})
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestFindManyInsertionOrderAndRestart(t *testing.T) {
	col := testCollection(t)
	for i := 0; i < 5; i++ {
		mustInsert(t, col, Document{"n": float64(i)})
	}

	seq, err := col.FindMany(map[string]any{"n": map[string]any{"$gte": 1.0}})
	require.NoError(t, err)

	collect := func() []float64 {
		var ns []float64
		for doc := range seq {
			ns = append(ns, doc["n"].(float64))
		}
		return ns
	}
	assert.Equal(t, []float64{1, 2, 3, 4}, collect())
	// Ranging again re-scans from the start.
	assert.Equal(t, []float64{1, 2, 3, 4}, collect())
}

func TestFindManyEarlyStop(t *testing.T) {
	col := testCollection(t)
	for i := 0; i < 5; i++ {
		mustInsert(t, col, Document{"n": float64(i)})
	}

	seq, err := col.FindMany(map[string]any{})
	require.NoError(t, err)
	seen := 0
	for range seq {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestUpdateOneSingleMatchPositionAndNeighbors(t *testing.T) {
	col := testCollection(t)
	idA := mustInsert(t, col, Document{"title": "A", "price": 1.0})
	idB := mustInsert(t, col, Document{"title": "B", "price": 2.0})
	idC := mustInsert(t, col, Document{"title": "C", "price": 3.0})

	matched, err := col.UpdateOne(
		map[string]any{"title": "B"},
		Document{"$set": map[string]any{"price": 7.99}},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, matched)

	seq, err := col.FindMany(map[string]any{})
	require.NoError(t, err)
	var docs []Document
	for doc := range seq {
		docs = append(docs, doc)
	}
	require.Len(t, docs, 3)

	// Neighbors untouched, B updated in place, identifiers stable.
	assert.Equal(t, Document{IDField: idA, "title": "A", "price": 1.0}, docs[0])
	assert.Equal(t, Document{IDField: idB, "title": "B", "price": 7.99}, docs[1])
	assert.Equal(t, Document{IDField: idC, "title": "C", "price": 3.0}, docs[2])
}

func TestUpdateOneReplacementPreservesID(t *testing.T) {
	col := testCollection(t)
	id := mustInsert(t, col, Document{"title": "Widget", "price": 9.99})

	matched, err := col.UpdateOne(
		map[string]any{IDField: id},
		Document{"title": "Widget v2"},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, matched)

	got, err := col.FindOne(map[string]any{IDField: id.Hex()})
	require.NoError(t, err)
	assert.Equal(t, Document{IDField: id, "title": "Widget v2"}, got)
}

func TestUpdateOneSetDottedPathAndUnset(t *testing.T) {
	col := testCollection(t)
	id := mustInsert(t, col, Document{"title": "Widget", "stock": Document{"warehouse": 5.0}})

	matched, err := col.UpdateOne(
		map[string]any{IDField: id},
		Document{
			"$set":   map[string]any{"stock.shop": 2.0},
			"$unset": map[string]any{"title": ""},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, matched)

	got, err := col.FindOne(map[string]any{IDField: id})
	require.NoError(t, err)
	assert.Equal(t, Document{
		IDField: id,
		"stock": Document{"warehouse": 5.0, "shop": 2.0},
	}, got)
}

func TestUpdateOneInvalidExpressions(t *testing.T) {
	col := testCollection(t)
	mustInsert(t, col, Document{"title": "Widget"})

	_, err := col.UpdateOne(
		map[string]any{"title": "Widget"},
		Document{"$set": map[string]any{"a": 1.0}, "plain": "field"},
	)
	assert.ErrorIs(t, err, ErrInvalidUpdate, "mixed directives and fields")

	_, err = col.UpdateOne(
		map[string]any{"title": "Widget"},
		Document{"$bogus": map[string]any{"a": 1.0}},
	)
	assert.ErrorIs(t, err, ErrInvalidUpdate, "unknown directive")

	_, err = col.UpdateOne(
		map[string]any{"title": "Widget"},
		Document{"$set": "not-a-map"},
	)
	assert.ErrorIs(t, err, ErrInvalidUpdate, "directive without field map")
}

func TestUpdateOneCannotChangeID(t *testing.T) {
	col := testCollection(t)
	id := mustInsert(t, col, Document{"title": "Widget"})

	matched, err := col.UpdateOne(
		map[string]any{IDField: id},
		Document{"$set": map[string]any{IDField: "ffffffffffffffffffffffff"}},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, matched)

	got, err := col.FindOne(map[string]any{IDField: id})
	require.NoError(t, err)
	gotID, ok := got.ID()
	require.True(t, ok)
	assert.Equal(t, id, gotID)
}

func TestDeleteManyCountCorrectness(t *testing.T) {
	col := testCollection(t)
	for i := 0; i < 10; i++ {
		mustInsert(t, col, Document{"n": float64(i), "even": i%2 == 0})
	}

	filter := map[string]any{"even": true}
	deleted, err := col.DeleteMany(filter)
	require.NoError(t, err)
	assert.Equal(t, 5, deleted)

	remaining, err := col.CountDocuments(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)

	survivors, err := col.CountDocuments(filter)
	require.NoError(t, err)
	assert.Zero(t, survivors, "no document matching the filter may survive")
}

func TestIdentifierEquivalenceAtTheBoundary(t *testing.T) {
	col := testCollection(t)
	id := mustInsert(t, col, Document{"title": "Widget"})

	// A plain string id, e.g. extracted from a URL path parameter, must find
	// the document even though it is stored as a typed identifier.
	got, err := col.FindOne(map[string]any{IDField: id.Hex()})
	require.NoError(t, err)
	gotID, ok := got.ID()
	require.True(t, ok)
	assert.Equal(t, id, gotID)

	// The equivalence survives a reload from disk.
	count, err := col.CountDocuments(map[string]any{IDField: id.Hex()})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInsertWithSuppliedIdentifier(t *testing.T) {
	col := testCollection(t)

	supplied := NewObjectID()
	id, err := col.InsertOne(Document{IDField: supplied.Hex(), "title": "Widget"})
	require.NoError(t, err)
	assert.Equal(t, supplied, id)

	_, err = col.InsertOne(Document{IDField: supplied, "title": "Duplicate"})
	assert.Error(t, err, "duplicate identifier must be rejected")

	_, err = col.InsertOne(Document{IDField: "garbage", "title": "Bad"})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestNoOpMutationsLeaveFileByteIdentical(t *testing.T) {
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	col := db.Collection("shop", "products")
	mustInsert(t, col, Document{"title": "Widget"})

	path := filepath.Join(db.Dir(), "shop", "products.json")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	matched, err := col.UpdateOne(map[string]any{"title": "Nothing"}, Document{"$set": map[string]any{"x": 1.0}})
	require.NoError(t, err)
	assert.Zero(t, matched)

	deleted, err := col.DeleteOne(map[string]any{"title": "Nothing"})
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = col.DeleteMany(map[string]any{"title": "Nothing"})
	require.NoError(t, err)
	assert.Zero(t, deleted)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "zero-match mutations must not rewrite the file")
}

func TestConcurrentInsertsNoLostWrites(t *testing.T) {
	col := testCollection(t)

	const n = 32
	ids := make([]ObjectID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			id, err := col.InsertOne(Document{"slot": float64(slot)})
			assert.NoError(t, err)
			ids[slot] = id
		}(i)
	}
	wg.Wait()

	count, err := col.CountDocuments(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, n, count)

	distinct := make(map[ObjectID]struct{}, n)
	for _, id := range ids {
		distinct[id] = struct{}{}
	}
	assert.Len(t, distinct, n, "every insert must get its own identifier")
}

func TestEnsureIndexIsAccepted(t *testing.T) {
	col := testCollection(t)
	require.NoError(t, col.EnsureIndex("title"))
	require.NoError(t, col.EnsureIndex("a", "b.c"))
}

func TestProductScenario(t *testing.T) {
	col := testCollection(t)

	id := mustInsert(t, col, Document{"name": "Widget", "price": 9.99})

	count, err := col.CountDocuments(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	found, err := col.FindOne(map[string]any{"name": "Widget"})
	require.NoError(t, err)
	assert.Equal(t, 9.99, found["price"])

	matched, err := col.UpdateOne(
		map[string]any{"name": "Widget"},
		Document{"$set": map[string]any{"price": 7.99}},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, matched)

	found, err = col.FindOne(map[string]any{"name": "Widget"})
	require.NoError(t, err)
	assert.Equal(t, 7.99, found["price"])
	assert.Equal(t, "Widget", found["name"])
	foundID, ok := found.ID()
	require.True(t, ok)
	assert.Equal(t, id, foundID)

	deleted, err := col.DeleteOne(map[string]any{"name": "Widget"})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	count, err = col.CountDocuments(map[string]any{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMutationsDurableAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	require.NoError(t, err)
	id := mustInsert(t, db.Collection("shop", "products"), Document{"title": "Widget"})

	reopened, err := Open(dir)
	require.NoError(t, err)
	got, err := reopened.Collection("shop", "products").FindOne(map[string]any{IDField: id.Hex()})
	require.NoError(t, err)
	assert.Equal(t, "Widget", got["title"])

	gotID, ok := got.ID()
	require.True(t, ok)
	assert.Equal(t, id, gotID, "identifier typing must survive the disk round trip")
}

func TestDeleteOneRemovesFirstMatchOnly(t *testing.T) {
	col := testCollection(t)
	for i := 0; i < 3; i++ {
		mustInsert(t, col, Document{"kind": "dup", "n": float64(i)})
	}

	deleted, err := col.DeleteOne(map[string]any{"kind": "dup"})
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	seq, err := col.FindMany(map[string]any{})
	require.NoError(t, err)
	var ns []float64
	for doc := range seq {
		ns = append(ns, doc["n"].(float64))
	}
	assert.Equal(t, []float64{1, 2}, ns, "first match in insertion order goes, order of the rest is stable")
}

func TestCountDocumentsWithFilter(t *testing.T) {
	col := testCollection(t)
	for i := 0; i < 6; i++ {
		mustInsert(t, col, Document{"price": float64(i * 10)})
	}
	count, err := col.CountDocuments(map[string]any{"price": map[string]any{"$gte": 30.0}})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func BenchmarkFindOneLinearScan(b *testing.B) {
	db, err := Open(b.TempDir())
	if err != nil {
		b.Fatal(err)
	}
	col := db.Collection("bench", "products")
	for i := 0; i < 500; i++ {
		if _, err := col.InsertOne(Document{"title": fmt.Sprintf("product-%d", i)}); err != nil {
			b.Fatal(err)
		}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := col.FindOne(map[string]any{"title": "product-499"}); err != nil {
			b.Fatal(err)
		}
	}
}
