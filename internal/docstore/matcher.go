package docstore

import (
	stdjson "encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Matches evaluates a filter against a document. A filter maps dotted field
// paths to either a literal (equality) or an operator expression such as
// {"$gt": 5} or {"$in": [...]}. All pairs must match (implicit conjunction);
// an empty filter matches every document.
func Matches(doc Document, filter map[string]any) bool {
	for path, expected := range filter {
		value, found := doc.Lookup(path)
		if ops, ok := operatorExpr(expected); ok {
			if !matchOperators(value, found, ops) {
				return false
			}
			continue
		}
		if !found || !valueEqual(value, expected) {
			return false
		}
	}
	return true
}

// operatorExpr reports whether expected is an operator expression: a mapping
// whose keys all start with '$'. A plain nested document is a literal.
func operatorExpr(expected any) (map[string]any, bool) {
	var m map[string]any
	switch t := expected.(type) {
	case Document:
		m = t
	case map[string]any:
		m = t
	default:
		return nil, false
	}
	if len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

// matchOperators applies every operator in the expression to the resolved
// value. An absent field fails every operator except {"$exists": false}.
func matchOperators(value any, found bool, ops map[string]any) bool {
	options, _ := ops["$options"].(string)
	for op, operand := range ops {
		switch op {
		case "$options":
			// Modifier for $regex, consumed alongside it.
			continue
		case "$exists":
			want, _ := operand.(bool)
			if found != want {
				return false
			}
			continue
		}
		if !found {
			return false
		}
		if op == "$regex" {
			if !matchRegex(value, operand, options) {
				return false
			}
			continue
		}
		if !applyOperator(op, value, operand) {
			return false
		}
	}
	return true
}

func applyOperator(op string, value, operand any) bool {
	switch op {
	case "$eq":
		return valueEqual(value, operand)
	case "$ne":
		return !valueEqual(value, operand)
	case "$gt":
		c, ok := compareValues(value, operand)
		return ok && c > 0
	case "$gte":
		c, ok := compareValues(value, operand)
		return ok && c >= 0
	case "$lt":
		c, ok := compareValues(value, operand)
		return ok && c < 0
	case "$lte":
		c, ok := compareValues(value, operand)
		return ok && c <= 0
	case "$in":
		set, ok := operand.([]any)
		if !ok {
			return false
		}
		for _, member := range set {
			if valueEqual(value, member) {
				return true
			}
		}
		return false
	case "$nin":
		set, ok := operand.([]any)
		if !ok {
			return false
		}
		for _, member := range set {
			if valueEqual(value, member) {
				return false
			}
		}
		return true
	default:
		slog.Warn("Unsupported filter operator", "op", op)
		return false
	}
}

// matchRegex performs unanchored substring search, the shape the free-text
// product search uses. An "$options" of "i" makes the match case-insensitive.
func matchRegex(value, operand any, options string) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	pattern, ok := operand.(string)
	if !ok {
		return false
	}
	if strings.Contains(options, "i") {
		pattern = "(?i)" + pattern
	}
	matched, err := regexp.MatchString(pattern, s)
	if err != nil {
		slog.Warn("Invalid $regex pattern in filter", "pattern", pattern, "error", err)
		return false
	}
	return matched
}

// valueEqual is loose equality in the emulated dialect: identifiers compare
// by string form regardless of boxing, numbers by numeric value, strings
// exactly, and a list-valued field matches a scalar if any element matches.
func valueEqual(a, b any) bool {
	if as, aok := idString(a); aok {
		if bs, bok := idString(b); bok {
			return as == bs
		}
	}
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			return af == bf
		}
		return false
	}

	switch at := a.(type) {
	case nil:
		return b == nil
	case bool:
		bb, ok := b.(bool)
		return ok && at == bb
	case []any:
		if bl, ok := b.([]any); ok {
			if len(at) != len(bl) {
				return false
			}
			for i := range at {
				if !valueEqual(at[i], bl[i]) {
					return false
				}
			}
			return true
		}
		for _, elem := range at {
			if valueEqual(elem, b) {
				return true
			}
		}
		return false
	case Document:
		return documentEqual(at, b)
	case map[string]any:
		return documentEqual(Document(at), b)
	default:
		return a == b
	}
}

func documentEqual(a Document, b any) bool {
	var bm Document
	switch t := b.(type) {
	case Document:
		bm = t
	case map[string]any:
		bm = Document(t)
	default:
		return false
	}
	if len(a) != len(bm) {
		return false
	}
	for k, av := range a {
		bv, ok := bm[k]
		if !ok || !valueEqual(av, bv) {
			return false
		}
	}
	return true
}

// compareValues orders two values. Numbers order numerically, everything
// comparable by string form orders lexically. The second return is false
// when the two sides are not comparable at all.
func compareValues(a, b any) (int, bool) {
	if af, aok := toFloat64(a); aok {
		bf, bok := toFloat64(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aok := stringForm(a)
	bs, bok := stringForm(b)
	if !aok || !bok {
		return 0, false
	}
	return strings.Compare(as, bs), true
}

func stringForm(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case ObjectID:
		return string(t), true
	default:
		return "", false
	}
}

// toFloat64 converts the numeric variants to float64. Strings are not
// coerced; "9.99" and 9.99 are different values in a filter.
func toFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case stdjson.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
