package docstore

import (
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
)

// Collection owns one named document list backed by a single file. Every
// operation is a full read-modify-write cycle under the collection's lock:
// load the current document set, compute the result in memory, persist, and
// release. Reads share the lock; mutations hold it exclusively, so the net
// effect of concurrent calls is some sequential interleaving of whole
// operations. Different collections never block one another.
type Collection struct {
	name string
	path string
	mu   sync.RWMutex
}

func newCollection(name, path string) *Collection {
	return &Collection{name: name, path: path}
}

// Name returns the collection's name as "<database>.<collection>".
func (c *Collection) Name() string { return c.name }

// load re-reads the backing file. The next operation always observes the
// last successfully persisted state, never a half-applied one.
func (c *Collection) load() ([]Document, error) {
	docs, err := loadDocuments(c.path)
	if err != nil {
		return nil, fmt.Errorf("collection '%s': %w", c.name, err)
	}
	return docs, nil
}

func (c *Collection) save(docs []Document) error {
	if err := saveDocuments(c.path, docs); err != nil {
		return fmt.Errorf("collection '%s': %w", c.name, err)
	}
	return nil
}

// FindMany returns every matching document in insertion order. The returned
// sequence is restartable: each FindMany call re-reads the collection, and
// matching happens lazily as the caller ranges.
func (c *Collection) FindMany(filter map[string]any) (iter.Seq[Document], error) {
	c.mu.RLock()
	docs, err := c.load()
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return func(yield func(Document) bool) {
		for _, doc := range docs {
			if !Matches(doc, filter) {
				continue
			}
			if !yield(doc) {
				return
			}
		}
	}, nil
}

// FindOne returns the first document matching the filter in insertion order,
// or ErrNoDocuments.
func (c *Collection) FindOne(filter map[string]any) (Document, error) {
	c.mu.RLock()
	docs, err := c.load()
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if Matches(doc, filter) {
			return doc, nil
		}
	}
	return nil, ErrNoDocuments
}

// CountDocuments counts matches without materializing a result list.
func (c *Collection) CountDocuments(filter map[string]any) (int, error) {
	c.mu.RLock()
	docs, err := c.load()
	c.mu.RUnlock()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, doc := range docs {
		if Matches(doc, filter) {
			count++
		}
	}
	return count, nil
}

// InsertOne appends the document and persists the collection. If the document
// carries no identifier one is generated; a supplied identifier must be a
// valid 24-hex string (bare or boxed) and unique within the collection.
func (c *Collection) InsertOne(doc Document) (ObjectID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	docs, err := c.load()
	if err != nil {
		return "", err
	}

	stored := doc.Clone()
	id, err := assignID(stored)
	if err != nil {
		return "", err
	}
	for _, existing := range docs {
		if existingID, ok := existing.ID(); ok && existingID == id {
			return "", fmt.Errorf("collection '%s': duplicate id '%s'", c.name, id)
		}
	}

	docs = append(docs, stored)
	if err := c.save(docs); err != nil {
		return "", err
	}
	slog.Debug("Document inserted", "collection", c.name, "id", id.Hex())
	return id, nil
}

func assignID(doc Document) (ObjectID, error) {
	raw, present := doc[IDField]
	if !present || raw == nil {
		id := NewObjectID()
		doc[IDField] = id
		return id, nil
	}
	s, ok := idString(raw)
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrInvalidID, raw)
	}
	id, err := ObjectIDFromHex(s)
	if err != nil {
		return "", err
	}
	doc[IDField] = id
	return id, nil
}

// UpdateOne applies the update expression to the first matching document and
// persists. The update is either a replacement document or a directive set
// ($set/$unset with dotted paths); the matched document's identifier and list
// position are preserved. Returns the matched count, 0 or 1; no match is not
// an error.
func (c *Collection) UpdateOne(filter map[string]any, update Document) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	docs, err := c.load()
	if err != nil {
		return 0, err
	}
	for i, doc := range docs {
		if !Matches(doc, filter) {
			continue
		}
		updated, err := applyUpdate(doc, update)
		if err != nil {
			return 0, err
		}
		docs[i] = updated
		if err := c.save(docs); err != nil {
			return 0, err
		}
		slog.Debug("Document updated", "collection", c.name)
		return 1, nil
	}
	return 0, nil
}

// applyUpdate computes the post-update document on a copy of the original.
// A replacement document may not mix plain fields with $-directives, and an
// unknown directive is a caller error, not a silent no-op.
func applyUpdate(doc, update Document) (Document, error) {
	directives := 0
	for key := range update {
		if strings.HasPrefix(key, "$") {
			directives++
		}
	}
	if directives == 0 {
		replacement := update.Clone()
		if id, ok := doc.ID(); ok {
			replacement[IDField] = id
		}
		return replacement, nil
	}
	if directives != len(update) {
		return nil, fmt.Errorf("%w: cannot mix replacement fields with directives", ErrInvalidUpdate)
	}

	updated := doc.Clone()
	for directive, operand := range update {
		fields, ok := fieldMap(operand)
		if !ok {
			return nil, fmt.Errorf("%w: %s needs a field mapping", ErrInvalidUpdate, directive)
		}
		switch directive {
		case "$set":
			for path, value := range fields {
				if path == IDField {
					continue // identifiers never change once assigned
				}
				setPath(updated, path, value)
			}
		case "$unset":
			for path := range fields {
				if path == IDField {
					continue
				}
				unsetPath(updated, path)
			}
		default:
			return nil, fmt.Errorf("%w: unknown directive %q", ErrInvalidUpdate, directive)
		}
	}
	return updated, nil
}

func fieldMap(operand any) (map[string]any, bool) {
	switch t := operand.(type) {
	case Document:
		return t, true
	case map[string]any:
		return t, true
	default:
		return nil, false
	}
}

// DeleteOne removes the first matching document and persists. Returns the
// deleted count, 0 or 1.
func (c *Collection) DeleteOne(filter map[string]any) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	docs, err := c.load()
	if err != nil {
		return 0, err
	}
	for i, doc := range docs {
		if !Matches(doc, filter) {
			continue
		}
		docs = append(docs[:i], docs[i+1:]...)
		if err := c.save(docs); err != nil {
			return 0, err
		}
		slog.Debug("Document deleted", "collection", c.name)
		return 1, nil
	}
	return 0, nil
}

// DeleteMany removes every matching document in one pass and persists once.
func (c *Collection) DeleteMany(filter map[string]any) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	docs, err := c.load()
	if err != nil {
		return 0, err
	}
	kept := docs[:0:0]
	deleted := 0
	for _, doc := range docs {
		if Matches(doc, filter) {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	if deleted == 0 {
		return 0, nil
	}
	if err := c.save(kept); err != nil {
		return 0, err
	}
	slog.Debug("Documents deleted", "collection", c.name, "count", deleted)
	return deleted, nil
}

// EnsureIndex is accepted for interface compatibility with callers that
// expect an indexing operation. The store scans linearly; there is no index
// acceleration, so this performs no structural change.
func (c *Collection) EnsureIndex(fields ...string) error {
	slog.Debug("EnsureIndex is a no-op", "collection", c.name, "fields", fields)
	return nil
}
