package condition

import (
	"context"
	"errors"
	"fmt"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/dagucloud/watcher/internal/stage/internal/objpath"
)

var (
	errSinglePath = errors.New("expected exactly one path")
	errSingleOp   = errors.New("expected exactly one comparison operator")
)

var (
	_ core.Condition = (*Compare)(nil)
	_ core.Condition = (*ArrayCompare)(nil)
)

// Compare checks the value at Path against Value. Value may be a "{{path}}"
// reference to another value of the model.
type Compare struct {
	Path  string
	Op    Op
	Value any
}

func parseCompare(body any) (core.Condition, error) {
	field, err := singlePath(body, TypeCompare)
	if err != nil {
		return nil, err
	}
	op, value, err := singleOp(field.Value)
	if err != nil {
		return nil, core.NewStageValidationError("condition.compare", field.Key, nil, err)
	}
	return &Compare{Path: field.Key, Op: op, Value: document.Plain(value)}, nil
}

func singlePath(body any, typ string) (document.Field, error) {
	fields, err := document.Fields(body)
	if err != nil {
		return document.Field{}, err
	}
	if len(fields) != 1 {
		return document.Field{}, core.NewStageValidationError("condition."+typ, "path", len(fields), errSinglePath)
	}
	return fields[0], nil
}

func singleOp(v any) (Op, any, error) {
	fields, err := document.Fields(v)
	if err != nil {
		return "", nil, err
	}
	if len(fields) != 1 {
		return "", nil, errSingleOp
	}
	op, err := parseOp(fields[0].Key)
	if err != nil {
		return "", nil, err
	}
	return op, fields[0].Value, nil
}

func (*Compare) Type() string { return TypeCompare }

func (c *Compare) Spec() any {
	return document.Object(document.KV(c.Path, document.Object(
		document.KV(string(c.Op), document.Ordered(c.Value)),
	)))
}

func (c *Compare) Execute(_ context.Context, ec *core.ExecContext) (core.ConditionResult, error) {
	model := ec.Model()
	actual, _ := objpath.Resolve(model, c.Path)
	resolved := map[string]any{c.Path: actual}
	expected := c.Value
	if ref, ok := objpath.Reference(c.Value); ok {
		expected, _ = objpath.Resolve(model, ref)
		resolved[ref] = expected
	}
	return core.ConditionResult{
		Type:   TypeCompare,
		Met:    c.Op.Eval(actual, expected),
		Detail: map[string]any{"resolved_values": resolved},
	}, nil
}

// Quantifier decides how many array elements must match.
type Quantifier string

const (
	Some Quantifier = "some"
	All  Quantifier = "all"
)

// ArrayCompare checks the elements of the array at Path. Each element is
// resolved through Element before it is compared.
type ArrayCompare struct {
	Path       string
	Element    string
	Op         Op
	Value      any
	Quantifier Quantifier
}

type arrayOpConfig struct {
	Value      any    `mapstructure:"value"`
	Quantifier string `mapstructure:"quantifier"`
}

func parseArrayCompare(body any) (core.Condition, error) {
	field, err := singlePath(body, TypeArrayCompare)
	if err != nil {
		return nil, err
	}
	fields, err := document.Fields(field.Value)
	if err != nil {
		return nil, err
	}
	c := &ArrayCompare{Path: field.Key}
	var opFields []document.Field
	for _, f := range fields {
		if f.Key == "path" {
			element, ok := f.Value.(string)
			if !ok {
				return nil, core.NewStageValidationError("condition.array_compare", field.Key+".path", f.Value, fmt.Errorf("path must be a string"))
			}
			c.Element = element
			continue
		}
		opFields = append(opFields, f)
	}
	if len(opFields) != 1 {
		return nil, core.NewStageValidationError("condition.array_compare", field.Key, nil, errSingleOp)
	}
	if c.Op, err = parseOp(opFields[0].Key); err != nil {
		return nil, core.NewStageValidationError("condition.array_compare", field.Key, nil, err)
	}

	var cfg arrayOpConfig
	if err := document.DecodeStruct(opFields[0].Value, &cfg); err != nil {
		return nil, fmt.Errorf("%s.%s: %w", field.Key, c.Op, err)
	}
	c.Value = document.Plain(cfg.Value)
	switch q := Quantifier(cfg.Quantifier); q {
	case "":
		c.Quantifier = Some
	case Some, All:
		c.Quantifier = q
	default:
		return nil, core.NewStageValidationError("condition.array_compare", field.Key+"."+string(c.Op)+".quantifier",
			cfg.Quantifier, fmt.Errorf("quantifier must be %s or %s", Some, All))
	}
	return c, nil
}

func (*ArrayCompare) Type() string { return TypeArrayCompare }

func (c *ArrayCompare) Spec() any {
	body := document.Object()
	if c.Element != "" {
		body = append(body, document.KV("path", c.Element))
	}
	body = append(body, document.KV(string(c.Op), document.Object(
		document.KV("value", document.Ordered(c.Value)),
		document.KV("quantifier", string(c.Quantifier)),
	)))
	return document.Object(document.KV(c.Path, body))
}

func (c *ArrayCompare) Execute(_ context.Context, ec *core.ExecContext) (core.ConditionResult, error) {
	model := ec.Model()
	resolved := map[string]any{}

	found, _ := objpath.Resolve(model, c.Path)
	var items []any
	switch v := found.(type) {
	case nil:
	case []any:
		items = v
	default:
		return core.ConditionResult{}, fmt.Errorf("array_compare: value at [%s] is not an array, got %T", c.Path, found)
	}
	resolved[c.Path] = found

	expected := c.Value
	if ref, ok := objpath.Reference(c.Value); ok {
		expected, _ = objpath.Resolve(model, ref)
		resolved[ref] = expected
	}

	met := c.Quantifier == All
	for _, item := range items {
		actual, _ := objpath.Resolve(item, c.Element)
		matched := c.Op.Eval(actual, expected)
		if c.Quantifier == Some && matched {
			met = true
			break
		}
		if c.Quantifier == All && !matched {
			met = false
			break
		}
	}
	return core.ConditionResult{
		Type:   TypeArrayCompare,
		Met:    met,
		Detail: map[string]any{"resolved_values": resolved},
	}, nil
}
