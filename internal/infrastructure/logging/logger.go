package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	cblog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/alexisbeaulieu97/reshelf/internal/ports"
)

// Options configures the charmbracelet/log backend.
type Options struct {
	Writer     io.Writer
	Level      string
	TimeFormat string
	// Format is text, json or logfmt. A non-text Formatter takes precedence.
	Format    string
	Formatter cblog.Formatter
	NoColor   bool
	// Layer tags every record with the architectural layer that emitted
	// it. Defaults to "infrastructure".
	Layer     string
	Component string
}

// Logger is the default ports.Logger. Persistent fields live on the
// wrapped charmbracelet logger; the execution id is read from the context
// of each call.
type Logger struct {
	logger *cblog.Logger
}

// New builds a Logger writing to opts.Writer, or stdout when unset.
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	formatter := opts.Formatter
	if formatter == cblog.TextFormatter {
		if formatter, err = ParseFormat(opts.Format); err != nil {
			return nil, err
		}
	}

	layer := opts.Layer
	if layer == "" {
		layer = "infrastructure"
	}
	persistent := []interface{}{"layer", layer}
	if opts.Component != "" {
		persistent = append(persistent, "component", opts.Component)
	}

	base := cblog.NewWithOptions(writer, cblog.Options{
		Level:           level,
		TimeFormat:      opts.TimeFormat,
		ReportTimestamp: true,
		Formatter:       formatter,
		Fields:          persistent,
	})
	if opts.NoColor {
		base.SetColorProfile(termenv.Ascii)
	}
	return &Logger{logger: base}, nil
}

func parseLevel(name string) (cblog.Level, error) {
	if strings.TrimSpace(name) == "" {
		return cblog.InfoLevel, nil
	}
	level, err := cblog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return cblog.InfoLevel, fmt.Errorf("parse log level: %w", err)
	}
	return level, nil
}

// ParseFormat maps a format name onto a charmbracelet/log formatter.
func ParseFormat(name string) (cblog.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "text":
		return cblog.TextFormatter, nil
	case "json":
		return cblog.JSONFormatter, nil
	case "logfmt":
		return cblog.LogfmtFormatter, nil
	}
	return cblog.TextFormatter, fmt.Errorf("unknown log format %q", name)
}

func (l *Logger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.write(ctx, cblog.DebugLevel, msg, fields)
}

func (l *Logger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.write(ctx, cblog.InfoLevel, msg, fields)
}

func (l *Logger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.write(ctx, cblog.WarnLevel, msg, fields)
}

func (l *Logger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.write(ctx, cblog.ErrorLevel, msg, fields)
}

// With returns a child logger. Pairs whose key is not a non-empty string
// are dropped.
func (l *Logger) With(fields ...interface{}) ports.Logger {
	if l == nil || l.logger == nil {
		return NoOpLogger{}
	}
	return &Logger{logger: l.logger.With(keyvals(fields)...)}
}

func (l *Logger) write(ctx context.Context, level cblog.Level, msg string, fields []interface{}) {
	if l == nil || l.logger == nil {
		return
	}
	kv := keyvals(fields)
	if id := ports.ExecutionID(ctx); id != "" {
		kv = append(kv, "execution_id", id)
	}
	l.logger.Log(level, msg, kv...)
}

func keyvals(fields []interface{}) []interface{} {
	out := make([]interface{}, 0, len(fields)+2)
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok && key != "" {
			out = append(out, key, fields[i+1])
		}
	}
	return out
}

var _ ports.Logger = (*Logger)(nil)
