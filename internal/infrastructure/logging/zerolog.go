package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexisbeaulieu97/reshelf/internal/ports"
)

// ZerologOptions configures the zerolog backend used for JSON-lines run logs.
type ZerologOptions struct {
	Level         string
	HumanReadable bool
	Writer        io.Writer
	Layer         string
}

// ZerologLogger implements ports.Logger on top of zerolog.
type ZerologLogger struct {
	base  zerolog.Logger
	layer string
}

// NewZerolog creates a zerolog-backed logger.
func NewZerolog(opts ZerologOptions) (*ZerologLogger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stdout
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	var output io.Writer = writer
	if opts.HumanReadable {
		console := zerolog.NewConsoleWriter()
		console.Out = writer
		console.TimeFormat = time.RFC3339
		output = console
	}

	layer := opts.Layer
	if layer == "" {
		layer = "infrastructure"
	}

	return &ZerologLogger{
		base:  zerolog.New(output).Level(level).With().Timestamp().Logger(),
		layer: layer,
	}, nil
}

func (l *ZerologLogger) Debug(ctx context.Context, msg string, fields ...interface{}) {
	l.emit(ctx, l.base.Debug(), msg, fields)
}

func (l *ZerologLogger) Info(ctx context.Context, msg string, fields ...interface{}) {
	l.emit(ctx, l.base.Info(), msg, fields)
}

func (l *ZerologLogger) Warn(ctx context.Context, msg string, fields ...interface{}) {
	l.emit(ctx, l.base.Warn(), msg, fields)
}

func (l *ZerologLogger) Error(ctx context.Context, msg string, fields ...interface{}) {
	l.emit(ctx, l.base.Error(), msg, fields)
}

// With derives a logger that always writes the supplied fields.
func (l *ZerologLogger) With(fields ...interface{}) ports.Logger {
	if l == nil {
		return NoOpLogger{}
	}
	builder := l.base.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok || key == "" {
			continue
		}
		builder = builder.Interface(key, fields[i+1])
	}
	return &ZerologLogger{base: builder.Logger(), layer: l.layer}
}

func (l *ZerologLogger) emit(ctx context.Context, event *zerolog.Event, msg string, fields []interface{}) {
	if l == nil || event == nil {
		return
	}
	event = event.Str("layer", l.layer)
	if id := ports.ExecutionID(ctx); id != "" {
		event = event.Str("execution_id", id)
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok || key == "" {
			continue
		}
		if err, isErr := fields[i+1].(error); isErr {
			event = event.AnErr(key, err)
			continue
		}
		event = event.Interface(key, fields[i+1])
	}
	event.Msg(msg)
}

var _ ports.Logger = (*ZerologLogger)(nil)
