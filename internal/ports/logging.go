package ports

import (
	"context"

	"github.com/google/uuid"
)

// Logger is the structured logging contract shared by every layer. Fields are
// key/value pairs. Implementations must be safe for concurrent use and should
// add the execution ID from context when present. Common keys:
//   - execution_id
//   - layer (domain|application|infrastructure)
//   - component (engine, scanner, sync, report, ...)
//   - phase / environment
//   - duration_ms for timed operations
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Info(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, msg string, fields ...interface{})
	Error(ctx context.Context, msg string, fields ...interface{})
	With(fields ...interface{}) Logger
}

type executionIDKey struct{}

// WithExecutionID attaches a run identifier to ctx.
func WithExecutionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, executionIDKey{}, id)
}

// ExecutionID returns the run identifier stored in ctx, or "".
func ExecutionID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(executionIDKey{}).(string); ok {
		return id
	}
	return ""
}

// NewExecutionID returns a fresh run identifier.
func NewExecutionID() string {
	return "execution-" + uuid.NewString()
}
