// Package jq evaluates scripts written in the jq language with gojq.
package jq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/dagucloud/watcher/internal/core"
	"github.com/itchyny/gojq"
)

// Lang is the language tag of the engine.
const Lang = "jq"

// ErrHalted is returned when a script calls halt_error.
var ErrHalted = errors.New("jq script halted")

var _ core.ScriptEngine = (*Engine)(nil)

// Engine compiles jq programs. The model is the program input and the script
// params are bound to $params.
type Engine struct{}

// New returns a jq engine.
func New() *Engine { return &Engine{} }

func (*Engine) Lang() string { return Lang }

func (*Engine) Compile(source string, params map[string]any) (core.CompiledScript, error) {
	query, err := gojq.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jq script: %w", err)
	}
	code, err := gojq.Compile(query, gojq.WithVariables([]string{"$params"}))
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq script: %w", err)
	}
	if params == nil {
		params = map[string]any{}
	}
	p, err := normalize(params)
	if err != nil {
		return nil, fmt.Errorf("invalid script params: %w", err)
	}
	return &program{code: code, params: p}, nil
}

type program struct {
	code   *gojq.Code
	params any
}

// Run returns the single output of the program, nil when it yields nothing
// and an array when it yields several values.
func (p *program) Run(ctx context.Context, model map[string]any) (any, error) {
	input, err := normalize(model)
	if err != nil {
		return nil, fmt.Errorf("invalid script input: %w", err)
	}

	var results []any
	iter := p.code.RunWithContext(ctx, input, p.params)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			var halt *gojq.HaltError
			if errors.As(err, &halt) {
				if halt.Value() == nil {
					break
				}
				return nil, fmt.Errorf("%w: %v", ErrHalted, halt.Value())
			}
			return nil, err
		}
		results = append(results, v)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return integers(results[0]), nil
	default:
		return integers(results), nil
	}
}

// normalize converts v into the JSON value space understood by gojq.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return integers(out), nil
}

// integers turns integral floats back into ints.
func integers(v any) any {
	switch val := v.(type) {
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int(val)
		}
		return val
	case map[string]any:
		for k, item := range val {
			val[k] = integers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = integers(item)
		}
		return val
	default:
		return v
	}
}
