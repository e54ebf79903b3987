package condition

import (
	"context"
	"fmt"

	"github.com/dagucloud/watcher/internal/core"
)

var _ core.Condition = (*Script)(nil)

// Script is met when its script evaluates to true.
type Script struct {
	Script core.Script

	scripts core.ScriptService
}

func parseScript(body any, scripts core.ScriptService, defaultLang string) (core.Condition, error) {
	s, err := core.ParseScript(body, defaultLang)
	if err != nil {
		return nil, err
	}
	return &Script{Script: s, scripts: scripts}, nil
}

func (*Script) Type() string { return TypeScript }

func (s *Script) Spec() any { return s.Script.Spec() }

func (s *Script) Execute(ctx context.Context, ec *core.ExecContext) (core.ConditionResult, error) {
	if s.scripts == nil {
		return core.ConditionResult{}, fmt.Errorf("script condition: no script service configured")
	}
	compiled, err := s.scripts.Compile(s.Script)
	if err != nil {
		return core.ConditionResult{}, fmt.Errorf("script condition: %w", err)
	}
	out, err := compiled.Run(ctx, ec.Model())
	if err != nil {
		return core.ConditionResult{}, fmt.Errorf("script condition: %w", err)
	}
	met, ok := out.(bool)
	if !ok {
		return core.ConditionResult{}, fmt.Errorf("script condition: expected a boolean result, got %T", out)
	}
	return core.ConditionResult{Type: TypeScript, Met: met}, nil
}
