package action

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/jsonschema-go/jsonschema"
)

// schemaRegistry holds the JSON schemas of action configs. Schemas are added
// while the action registry is built; validation may then run concurrently.
type schemaRegistry struct {
	entries map[string]*schemaEntry
}

type schemaEntry struct {
	schema      *jsonschema.Schema
	resolved    atomic.Pointer[jsonschema.Resolved]
	resolveOnce sync.Once
	resolveErr  error
}

func newSchemaRegistry() *schemaRegistry {
	return &schemaRegistry{entries: make(map[string]*schemaEntry)}
}

func (r *schemaRegistry) add(actionType string, schema *jsonschema.Schema) {
	r.entries[actionType] = &schemaEntry{schema: schema}
}

// validate checks config against the schema of actionType. Types without a
// schema are accepted.
func (r *schemaRegistry) validate(actionType string, config map[string]any) error {
	entry, ok := r.entries[actionType]
	if !ok {
		return nil
	}
	resolved, err := entry.getResolved()
	if err != nil {
		return fmt.Errorf("schema error for %s: %w", actionType, err)
	}
	if err := resolved.Validate(config); err != nil {
		return fmt.Errorf("invalid %s config: %w", actionType, err)
	}
	return nil
}

func (e *schemaEntry) getResolved() (*jsonschema.Resolved, error) {
	e.resolveOnce.Do(func() {
		resolved, err := e.schema.Resolve(&jsonschema.ResolveOptions{ValidateDefaults: true})
		if err != nil {
			e.resolveErr = err
			return
		}
		e.resolved.Store(resolved)
	})
	if e.resolveErr != nil {
		return nil, e.resolveErr
	}
	return e.resolved.Load(), nil
}

func stringOrList(description string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Types:       []string{"string", "array"},
		Items:       &jsonschema.Schema{Type: "string"},
		Description: description,
	}
}

func str(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

var emailSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"to"},
	Properties: map[string]*jsonschema.Schema{
		"from":     str("Sender address"),
		"to":       stringOrList("Recipient address(es)"),
		"cc":       stringOrList("Carbon copy address(es)"),
		"bcc":      stringOrList("Blind carbon copy address(es)"),
		"reply_to": stringOrList("Reply-to address(es)"),
		"subject":  str("Subject template"),
		"body":     str("Body template"),
		"attach_data": {
			Types:       []string{"boolean", "object"},
			Description: "Attach the payload, as true or {format: json|yaml}",
			Properties: map[string]*jsonschema.Schema{
				"format": {Type: "string", Enum: []any{"json", "yaml"}},
			},
		},
	},
}

var indexSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"index":                str("Target index; documents may override it with _index"),
		"doc_id":               str("Document id; generated when empty"),
		"execution_time_field": str("Field that receives the execution time"),
		"timeout":              str("Write timeout, such as 30s"),
	},
}

var webhookSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"url":    str("Full target URL; exclusive with scheme/host/port"),
		"scheme": {Type: "string", Enum: []any{"http", "https", "HTTP", "HTTPS"}},
		"host":   str("Target host"),
		"port":   {Type: "integer", Minimum: ptr(1.0), Maximum: ptr(65535.0)},
		"method": {Type: "string", Enum: []any{
			"GET", "POST", "PUT", "DELETE", "HEAD", "PATCH", "OPTIONS",
			"get", "post", "put", "delete", "head", "patch", "options",
		}},
		"path":    str("Path template"),
		"params":  {Type: "object", AdditionalProperties: &jsonschema.Schema{Type: "string"}},
		"headers": {Type: "object", AdditionalProperties: &jsonschema.Schema{Type: "string"}},
		"body":    str("Body template"),
		"auth": {
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"basic": {
					Type:     "object",
					Required: []string{"username", "password"},
					Properties: map[string]*jsonschema.Schema{
						"username": {Type: "string"},
						"password": {Type: "string"},
					},
				},
			},
		},
		"connection_timeout": str("Connection timeout, such as 10s"),
		"read_timeout":       str("Read timeout, such as 10s"),
	},
}

var slackSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"message"},
	Properties: map[string]*jsonschema.Schema{
		"message": {
			Type:     "object",
			Required: []string{"text"},
			Properties: map[string]*jsonschema.Schema{
				"to":   stringOrList("Channel(s) or user(s)"),
				"from": str("Displayed sender name"),
				"text": str("Message template"),
			},
		},
	},
}

var loggingSchema = &jsonschema.Schema{
	Type:     "object",
	Required: []string{"text"},
	Properties: map[string]*jsonschema.Schema{
		"text":     str("Message template"),
		"level":    {Type: "string", Enum: []any{"debug", "info", "warn", "error"}},
		"category": str("Logged category attribute"),
	},
}

func ptr[T any](v T) *T { return &v }
