package transform

import (
	"context"
	"fmt"

	"github.com/dagucloud/watcher/internal/core"
)

var _ core.Transform = (*Script)(nil)

// Script replaces the payload with the result of a script. Results that are
// not objects are stored under "_value".
type Script struct {
	Script core.Script

	scripts core.ScriptService
}

func parseScript(body any, scripts core.ScriptService, defaultLang string) (core.Transform, error) {
	s, err := core.ParseScript(body, defaultLang)
	if err != nil {
		return nil, err
	}
	return &Script{Script: s, scripts: scripts}, nil
}

func (*Script) Type() string { return TypeScript }

func (s *Script) Spec() any { return s.Script.Spec() }

func (s *Script) Execute(ctx context.Context, ec *core.ExecContext, payload core.Payload) (core.Payload, error) {
	if s.scripts == nil {
		return nil, fmt.Errorf("script transform: no script service configured")
	}
	compiled, err := s.scripts.Compile(s.Script)
	if err != nil {
		return nil, fmt.Errorf("script transform: %w", err)
	}
	out, err := compiled.Run(ctx, ec.ModelFor(payload))
	if err != nil {
		return nil, fmt.Errorf("script transform: %w", err)
	}
	switch v := out.(type) {
	case map[string]any:
		return core.Payload(v), nil
	case core.Payload:
		return v, nil
	default:
		return core.Payload{"_value": v}, nil
	}
}
