package docstore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/natefinch/atomic"
)

// Configure jsoniter for standard library compatibility.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// oidKey tags an identifier on disk so its type survives the round trip:
// an ObjectID is serialized as {"$oid":"<hex>"} and revived on load. The
// tagging happens only here in the codec; elsewhere (API payloads, console
// output) an ObjectID is just its hex string.
const oidKey = "$oid"

// loadDocuments reads a collection's backing file. A missing file is an empty
// collection, never an error. A file that exists but cannot be parsed is
// surfaced as corruption; silently dropping data would be worse than halting.
func loadDocuments(path string) ([]Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read collection file '%s': %w", path, err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("corrupt collection file '%s': %w", path, err)
	}

	docs := make([]Document, len(decoded))
	for i, m := range decoded {
		docs[i] = reviveValue(m).(Document)
	}
	return docs, nil
}

// saveDocuments atomically replaces the backing file with the serialized
// document list. The write goes to a temporary file that is renamed into
// place, so a crash mid-write never leaves a half-written file visible.
func saveDocuments(path string, docs []Document) error {
	tagged := make([]any, len(docs))
	for i, doc := range docs {
		tagged[i] = tagValue(doc)
	}
	buf, err := json.MarshalIndent(tagged, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize collection for '%s': %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create collection directory for '%s': %w", path, err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(buf)); err != nil {
		return fmt.Errorf("failed to write collection file '%s': %w", path, err)
	}
	return nil
}

// tagValue is the inverse of reviveValue: it boxes every ObjectID in its
// on-disk {"$oid":...} wrapper before serialization.
func tagValue(v any) any {
	switch t := v.(type) {
	case ObjectID:
		return map[string]string{oidKey: string(t)}
	case Document:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = tagValue(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = tagValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = tagValue(val)
		}
		return out
	default:
		return v
	}
}

// reviveValue rebuilds the in-memory shape after a plain JSON decode:
// maps become Documents, and {"$oid":"..."} wrappers become ObjectIDs.
func reviveValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if s, ok := taggedObjectID(t); ok {
			return ObjectID(s)
		}
		doc := make(Document, len(t))
		for k, val := range t {
			doc[k] = reviveValue(val)
		}
		return doc
	case []any:
		for i, val := range t {
			t[i] = reviveValue(val)
		}
		return t
	default:
		return v
	}
}

func taggedObjectID(m map[string]any) (string, bool) {
	if len(m) != 1 {
		return "", false
	}
	s, ok := m[oidKey].(string)
	if !ok || !IsValidObjectID(s) {
		return "", false
	}
	return s, true
}
