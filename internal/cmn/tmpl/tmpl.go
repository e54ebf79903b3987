// Package tmpl renders the text templates carried by action fields.
package tmpl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
)

var funcs template.FuncMap

func init() {
	funcs = template.FuncMap(sprig.TxtFuncMap())
	funcs["json"] = func(v any) (string, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

// Render executes text against data. Missing keys render as empty strings.
func Render(text string, data map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	t, err := template.New("").Funcs(funcs).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}

// Validate parses text without executing it.
func Validate(text string) error {
	if _, err := template.New("").Funcs(funcs).Parse(text); err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return nil
}

// RenderMap renders every value of m.
func RenderMap(m map[string]string, data map[string]any) (map[string]string, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		r, err := Render(v, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = r
	}
	return out, nil
}
