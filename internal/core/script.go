package core

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/dagucloud/watcher/internal/core/document"
	"github.com/goccy/go-yaml"
)

// Script is a piece of code in a named language. The language is always set
// once a script has been parsed.
type Script struct {
	Source string
	Lang   string
	Params map[string]any
}

// ParseScript reads a script from a string or from {source|inline, lang, params}.
// A missing language is filled with defaultLang.
func ParseScript(v any, defaultLang string) (Script, error) {
	switch val := document.Plain(v).(type) {
	case string:
		if val == "" {
			return Script{}, ErrScriptSourceRequired
		}
		return Script{Source: val, Lang: defaultLang}, nil

	case map[string]any:
		for key := range val {
			if !slices.Contains([]string{"source", "inline", "lang", "params"}, key) {
				return Script{}, fmt.Errorf("%w: script.%s", ErrUnexpectedField, key)
			}
		}
		source, _ := val["source"].(string)
		if source == "" {
			source, _ = val["inline"].(string)
		}
		if source == "" {
			return Script{}, ErrScriptSourceRequired
		}
		s := Script{Source: source, Lang: defaultLang}
		if lang, ok := val["lang"].(string); ok && lang != "" {
			s.Lang = lang
		}
		if params, ok := val["params"]; ok && params != nil {
			p, ok := params.(map[string]any)
			if !ok {
				return Script{}, fmt.Errorf("%w: script.params", ErrStageMustBeObject)
			}
			if len(p) > 0 {
				s.Params = p
			}
		}
		return s, nil

	default:
		return Script{}, ErrScriptMustBeStringOrMap
	}
}

// Spec renders the script in its canonical object form.
func (s Script) Spec() yaml.MapSlice {
	out := document.Object(
		document.KV("source", s.Source),
		document.KV("lang", s.Lang),
	)
	if len(s.Params) > 0 {
		out = append(out, document.KV("params", document.Ordered(s.Params)))
	}
	return out
}

// Plain renders the script in its canonical object form as a plain map.
func (s Script) Plain() map[string]any {
	out := map[string]any{"source": s.Source, "lang": s.Lang}
	if len(s.Params) > 0 {
		out["params"] = s.Params
	}
	return out
}

// CanonicalizeScripts rewrites every script clause inside an opaque query body
// to the canonical {source, lang[, params]} form. A clause is a "script" key whose
// value is a string or an object carrying source or inline.
func CanonicalizeScripts(body any, defaultLang string) (any, error) {
	switch val := body.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			item := val[k]
			if k == "script" && isScriptClause(item) {
				s, err := ParseScript(item, defaultLang)
				if err != nil {
					return nil, err
				}
				out[k] = s.Plain()
				continue
			}
			c, err := CanonicalizeScripts(item, defaultLang)
			if err != nil {
				return nil, err
			}
			out[k] = c
		}
		return out, nil

	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			c, err := CanonicalizeScripts(item, defaultLang)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil

	default:
		return body, nil
	}
}

func isScriptClause(v any) bool {
	switch val := v.(type) {
	case string:
		return true
	case map[string]any:
		_, hasSource := val["source"]
		_, hasInline := val["inline"]
		return hasSource || hasInline
	default:
		return false
	}
}

// CompiledScript is a script ready to be evaluated against a model.
type CompiledScript interface {
	Run(ctx context.Context, model map[string]any) (any, error)
}

// ScriptEngine compiles scripts of a single language.
type ScriptEngine interface {
	Lang() string
	Compile(source string, params map[string]any) (CompiledScript, error)
}

// ScriptService compiles scripts in any of the languages it knows.
type ScriptService interface {
	Compile(s Script) (CompiledScript, error)
}

// ScriptEngines dispatches compilation to the engine registered for a language.
type ScriptEngines map[string]ScriptEngine

var _ ScriptService = ScriptEngines(nil)

// NewScriptEngines indexes engines by language.
func NewScriptEngines(engines ...ScriptEngine) ScriptEngines {
	out := make(ScriptEngines, len(engines))
	for _, e := range engines {
		out[e.Lang()] = e
	}
	return out
}

// Compile implements ScriptService.
func (e ScriptEngines) Compile(s Script) (CompiledScript, error) {
	engine, ok := e[s.Lang]
	if !ok {
		return nil, fmt.Errorf("unsupported script language [%s]", s.Lang)
	}
	return engine.Compile(s.Source, s.Params)
}
