// Package objpath resolves dotted paths in plain value trees and compares the
// values found there.
package objpath

import (
	"cmp"
	"reflect"
	"strconv"
	"strings"
)

// Resolve walks a dotted path such as "ctx.payload.hits.total" through maps
// and arrays. Array elements are addressed by index.
func Resolve(root any, path string) (any, bool) {
	if path == "" {
		return root, true
	}
	cur := root
	for part := range strings.SplitSeq(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set stores v at a dotted path of root, creating intermediate objects and
// replacing non-object values in the way.
func Set(root map[string]any, path string, v any) {
	parts := strings.Split(path, ".")
	cur := root
	for _, part := range parts[:len(parts)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

// Reference returns the path of a "{{path}}" reference.
func Reference(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{{") || !strings.HasSuffix(s, "}}") {
		return "", false
	}
	return strings.TrimSpace(s[2 : len(s)-2]), true
}

// Value resolves v when it is a "{{path}}" reference and returns it unchanged
// otherwise.
func Value(root any, v any) any {
	if path, ok := Reference(v); ok {
		resolved, _ := Resolve(root, path)
		return resolved
	}
	return v
}

// Equal compares two values, treating integers and floats as numbers.
func Equal(a, b any) bool {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders two numbers or two strings. A numeric string compares as a
// number against a number.
func Compare(a, b any) (int, bool) {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return cmp.Compare(x, y), true
		}
	}
	x, okA := a.(string)
	y, okB := b.(string)
	if okA && okB {
		return strings.Compare(x, y), true
	}
	return 0, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
