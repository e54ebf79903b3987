// Package document holds the ordered tree used to read and write watch documents.
//
// Documents are YAML or JSON. Objects decode to yaml.MapSlice so that key order
// survives a round trip; opaque values handed to stages are converted to plain
// map[string]any trees with Plain.
package document

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"

	"github.com/dagucloud/watcher/internal/cmn/duration"
	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
)

// Format selects the encoding produced by Encode.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

var (
	ErrNotObject    = errors.New("value must be an object")
	ErrNotArray     = errors.New("value must be an array")
	ErrNonStringKey = errors.New("object keys must be strings")
)

// Field is one key/value pair of an object.
type Field struct {
	Key   string
	Value any
}

// Decode parses data into an ordered tree. An empty document decodes to nil.
func Decode(data []byte) (any, error) {
	var v any
	if err := yaml.UnmarshalWithOptions(data, &v, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return v, nil
}

// Encode renders an ordered tree in the requested format.
func Encode(v any, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return yaml.MarshalWithOptions(v, yaml.JSON())
	case FormatYAML, "":
		return yaml.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported document format %q", format)
	}
}

// IsObject reports whether v is an object node.
func IsObject(v any) bool {
	switch v.(type) {
	case yaml.MapSlice, map[string]any:
		return true
	default:
		return false
	}
}

// Fields returns the fields of an object node in document order.
// Plain maps are returned sorted by key.
func Fields(v any) ([]Field, error) {
	switch obj := v.(type) {
	case yaml.MapSlice:
		fields := make([]Field, 0, len(obj))
		for _, item := range obj {
			key, ok := item.Key.(string)
			if !ok {
				return nil, fmt.Errorf("%w: got %T", ErrNonStringKey, item.Key)
			}
			fields = append(fields, Field{Key: key, Value: item.Value})
		}
		return fields, nil

	case map[string]any:
		fields := make([]Field, 0, len(obj))
		for _, key := range sortedKeys(obj) {
			fields = append(fields, Field{Key: key, Value: obj[key]})
		}
		return fields, nil

	case nil:
		return nil, nil

	default:
		return nil, fmt.Errorf("%w, got %T", ErrNotObject, v)
	}
}

// SingleField returns the only field of an object. It is the shape of every
// type-tagged stage: {"<type>": <body>}.
func SingleField(v any) (Field, error) {
	fields, err := Fields(v)
	if err != nil {
		return Field{}, err
	}
	if len(fields) != 1 {
		keys := make([]string, len(fields))
		for i, f := range fields {
			keys[i] = f.Key
		}
		return Field{}, fmt.Errorf("expected exactly one type key, got %v", keys)
	}
	return fields[0], nil
}

// Items returns the elements of an array node. A scalar is treated as a
// single-element array.
func Items(v any) []any {
	switch arr := v.(type) {
	case []any:
		return arr
	case nil:
		return nil
	default:
		return []any{v}
	}
}

// Plain converts an ordered tree into plain Go values: objects become
// map[string]any, integers become int and other numbers float64.
func Plain(v any) any {
	switch val := v.(type) {
	case yaml.MapSlice:
		out := make(map[string]any, len(val))
		for _, item := range val {
			out[fmt.Sprint(item.Key)] = Plain(item.Value)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Plain(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Plain(item)
		}
		return out
	case uint64:
		if val <= math.MaxInt {
			return int(val)
		}
		return float64(val)
	case int64:
		return int(val)
	case int32:
		return int(val)
	case uint32:
		return int(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}

// PlainObject converts an object node into a plain map.
func PlainObject(v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	if !IsObject(v) {
		return nil, fmt.Errorf("%w, got %T", ErrNotObject, v)
	}
	return Plain(v).(map[string]any), nil
}

// Ordered converts plain values into an ordered tree with sorted object keys,
// so that encoding is deterministic.
func Ordered(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(yaml.MapSlice, 0, len(val))
		for _, k := range sortedKeys(val) {
			out = append(out, yaml.MapItem{Key: k, Value: Ordered(val[k])})
		}
		return out
	case yaml.MapSlice:
		out := make(yaml.MapSlice, 0, len(val))
		for _, item := range val {
			out = append(out, yaml.MapItem{Key: item.Key, Value: Ordered(item.Value)})
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Ordered(item)
		}
		return out
	default:
		return v
	}
}

// KV builds one ordered object entry.
func KV(key string, value any) yaml.MapItem {
	return yaml.MapItem{Key: key, Value: value}
}

// Object builds an ordered object from entries.
func Object(items ...yaml.MapItem) yaml.MapSlice {
	if items == nil {
		return yaml.MapSlice{}
	}
	return yaml.MapSlice(items)
}

// DecodeStruct decodes a node into a struct tagged with `mapstructure` tags.
// Unknown keys are rejected; duration fields accept the compact "10s"/"2d"/"99w" form;
// string slices accept a single comma-separated string.
func DecodeStruct(v any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			durationHook,
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(Plain(v))
}

// durationHook decodes compact duration strings into time.Duration fields.
// Bare integers are read as seconds.
func durationHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return duration.Parse(v)
	case int:
		if v < 0 {
			return nil, fmt.Errorf("negative duration not allowed: %d", v)
		}
		return time.Duration(v) * time.Second, nil
	default:
		return data, nil
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
