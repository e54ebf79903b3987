// Package tag provides standardized tag functions for structured logging.
//
// All tag keys use kebab-case naming convention for consistency.
package tag

import (
	"log/slog"
	"time"
)

func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Error creates a tag for error objects.
func Error(err any) slog.Attr {
	return slog.Any("err", err)
}

// Watch creates a tag for watch ids.
func Watch(id string) slog.Attr {
	return slog.String("watch", id)
}

// Action creates a tag for action ids.
func Action(id string) slog.Attr {
	return slog.String("action", id)
}

// ExecutionID creates a tag for execution ids.
func ExecutionID(id string) slog.Attr {
	return slog.String("execution-id", id)
}

// Type creates a tag for stage type tags.
func Type(t string) slog.Attr {
	return slog.String("type", t)
}

// Outcome creates a tag for action outcomes.
func Outcome(o string) slog.Attr {
	return slog.String("outcome", o)
}

// Reason creates a tag for human readable reasons.
func Reason(r string) slog.Attr {
	return slog.String("reason", r)
}

// Met creates a tag for condition verdicts.
func Met(met bool) slog.Attr {
	return slog.Bool("met", met)
}

// Index creates a tag for store index names.
func Index(name string) slog.Attr {
	return slog.String("index", name)
}

// URL creates a tag for request URLs.
func URL(u string) slog.Attr {
	return slog.String("url", u)
}

// Method creates a tag for HTTP methods.
func Method(m string) slog.Attr {
	return slog.String("method", m)
}

// Status creates a tag for HTTP status codes.
func Status(code int) slog.Attr {
	return slog.Int("status", code)
}

// File creates a tag for file paths.
func File(path string) slog.Attr {
	return slog.String("file", path)
}

// Count creates a tag for counts.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Duration creates a tag for elapsed durations.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Time creates a tag for points in time.
func Time(key string, t time.Time) slog.Attr {
	return slog.Time(key, t)
}

// Category creates a tag for logging action categories.
func Category(c string) slog.Attr {
	return slog.String("category", c)
}
