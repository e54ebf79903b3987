package action

import (
	"context"
	"fmt"

	"github.com/dagucloud/watcher/internal/cmn/logger"
	"github.com/dagucloud/watcher/internal/cmn/logger/tag"
	"github.com/dagucloud/watcher/internal/cmn/tmpl"
	"github.com/dagucloud/watcher/internal/core"
	"github.com/dagucloud/watcher/internal/core/document"
)

var _ core.Action = (*Logging)(nil)

// Log levels of a logging action.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Logging writes a templated line to the logger of the execution.
type Logging struct {
	Text     string
	Level    string
	Category string
}

type loggingConfig struct {
	Text     string `mapstructure:"text"`
	Level    string `mapstructure:"level"`
	Category string `mapstructure:"category"`
}

func parseLogging(cfg map[string]any) (core.Action, error) {
	var c loggingConfig
	if err := document.DecodeStruct(cfg, &c); err != nil {
		return nil, err
	}
	if err := tmpl.Validate(c.Text); err != nil {
		return nil, core.NewStageValidationError("action.logging", "text", c.Text, err)
	}
	if c.Level == "" {
		c.Level = LevelInfo
	}
	return &Logging{Text: c.Text, Level: c.Level, Category: c.Category}, nil
}

func (*Logging) Type() string { return TypeLogging }

func (l *Logging) Spec() any {
	out := document.Object(
		document.KV("text", l.Text),
		document.KV("level", l.Level),
	)
	if l.Category != "" {
		out = append(out, document.KV("category", l.Category))
	}
	return out
}

func (l *Logging) Execute(ctx context.Context, actionID string, ec *core.ExecContext, payload core.Payload) (map[string]any, error) {
	text, err := tmpl.Render(l.Text, ec.ModelFor(payload))
	if err != nil {
		return nil, fmt.Errorf("logging action: %w", err)
	}
	log := logger.FromContext(ctx).With(tag.Watch(ec.WatchID), tag.Action(actionID))
	if l.Category != "" {
		log = log.With(tag.Category(l.Category))
	}
	switch l.Level {
	case LevelDebug:
		log.Debug(text)
	case LevelWarn:
		log.Warn(text)
	case LevelError:
		log.Error(text)
	default:
		log.Info(text)
	}
	return map[string]any{"logging": map[string]any{"logged_text": text}}, nil
}
