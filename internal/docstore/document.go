package docstore

import (
	"strconv"
	"strings"
)

// Document is one stored record: a schema-less, nested mapping. Values are
// the JSON-shaped variants (string, float64, bool, nil, Document/map, []any)
// plus ObjectID for identifier fields. Sibling documents in a collection may
// carry entirely different key sets.
type Document map[string]any

// ID returns the document's identifier, normalized to ObjectID, and whether
// one is present. A bare-string identifier is accepted as-is.
func (d Document) ID() (ObjectID, bool) {
	s, ok := idString(d[IDField])
	if !ok || s == "" {
		return "", false
	}
	return ObjectID(s), true
}

// Clone makes a deep copy of the document so mutating the copy never leaks
// into stored state.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(d).(Document)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		out := make(Document, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case map[string]any:
		out := make(Document, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// Lookup resolves a dotted field path like "a.b.c" against the document.
// The second return is false when the path does not exist anywhere.
//
// Descending through a list: a numeric segment indexes into the list; any
// other segment is resolved against each element, and the gathered values are
// returned as a list (so equality means "some element matched").
func (d Document) Lookup(path string) (any, bool) {
	return resolvePath(d, strings.Split(path, "."))
}

func resolvePath(v any, segments []string) (any, bool) {
	if len(segments) == 0 {
		return v, true
	}
	seg, rest := segments[0], segments[1:]

	switch t := v.(type) {
	case Document:
		child, ok := t[seg]
		if !ok {
			return nil, false
		}
		return resolvePath(child, rest)
	case map[string]any:
		child, ok := t[seg]
		if !ok {
			return nil, false
		}
		return resolvePath(child, rest)
	case []any:
		if idx, err := strconv.Atoi(seg); err == nil {
			if idx < 0 || idx >= len(t) {
				return nil, false
			}
			return resolvePath(t[idx], rest)
		}
		gathered := make([]any, 0, len(t))
		for _, elem := range t {
			if val, ok := resolvePath(elem, segments); ok {
				gathered = append(gathered, val)
			}
		}
		if len(gathered) == 0 {
			return nil, false
		}
		return gathered, true
	default:
		return nil, false
	}
}

// setPath writes value at a dotted path, creating intermediate documents as
// needed. Existing non-document intermediates are overwritten, which matches
// the loose update semantics of the query dialect being emulated.
func setPath(d Document, path string, value any) {
	segments := strings.Split(path, ".")
	cur := d
	for _, seg := range segments[:len(segments)-1] {
		next, ok := cur[seg].(Document)
		if !ok {
			if m, isMap := cur[seg].(map[string]any); isMap {
				next = Document(m)
			} else {
				next = Document{}
			}
			cur[seg] = next
		}
		cur = next
	}
	cur[segments[len(segments)-1]] = value
}

// unsetPath removes the field at a dotted path. Missing intermediates are a
// no-op.
func unsetPath(d Document, path string) {
	segments := strings.Split(path, ".")
	cur := d
	for _, seg := range segments[:len(segments)-1] {
		switch t := cur[seg].(type) {
		case Document:
			cur = t
		case map[string]any:
			cur = Document(t)
		default:
			return
		}
	}
	delete(cur, segments[len(segments)-1])
}
