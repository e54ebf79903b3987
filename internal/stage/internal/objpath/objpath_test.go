package objpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	root := map[string]any{
		"ctx": map[string]any{
			"payload": map[string]any{
				"hits": map[string]any{
					"total": 5,
					"hits":  []any{map[string]any{"_id": "a"}, map[string]any{"_id": "b"}},
				},
			},
		},
	}

	tests := []struct {
		path  string
		want  any
		found bool
	}{
		{"ctx.payload.hits.total", 5, true},
		{"ctx.payload.hits.hits.1._id", "b", true},
		{"ctx.payload.hits.hits.2._id", nil, false},
		{"ctx.payload.missing", nil, false},
		{"ctx.payload.hits.total.deeper", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			got, found := Resolve(root, tt.path)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValue(t *testing.T) {
	t.Parallel()

	root := map[string]any{"ctx": map[string]any{"limit": 3}}
	assert.Equal(t, 3, Value(root, "{{ ctx.limit }}"))
	assert.Equal(t, "plain", Value(root, "plain"))
	assert.Nil(t, Value(root, "{{ctx.nothing}}"))
}

func TestCompare(t *testing.T) {
	t.Parallel()

	c, ok := Compare(5, 3.5)
	assert.True(t, ok)
	assert.Equal(t, 1, c)

	c, ok = Compare("2", 10)
	assert.True(t, ok)
	assert.Equal(t, -1, c)

	c, ok = Compare("apple", "banana")
	assert.True(t, ok)
	assert.Equal(t, -1, c)

	_, ok = Compare(true, 1)
	assert.False(t, ok)

	assert.True(t, Equal(5, 5.0))
	assert.True(t, Equal("a", "a"))
	assert.False(t, Equal(true, "true"))
	assert.True(t, Equal(nil, nil))
}

func TestSet(t *testing.T) {
	t.Parallel()

	root := map[string]any{"a": 1}
	Set(root, "hits.total", 3)
	Set(root, "a.b", true)
	assert.Equal(t, map[string]any{
		"a":    map[string]any{"b": true},
		"hits": map[string]any{"total": 3},
	}, root)
}
