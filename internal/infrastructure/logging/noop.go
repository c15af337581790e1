package logging

import (
	"context"

	"github.com/alexisbeaulieu97/reshelf/internal/ports"
)

// NoOpLogger drops every record. The zero value is ready to use and
// values compare equal, so With hands back an identical logger.
type NoOpLogger struct{}

// NewNoOpLogger returns the discarding logger used by tests and by
// collaborators built without one.
func NewNoOpLogger() ports.Logger { return NoOpLogger{} }

func (NoOpLogger) Debug(context.Context, string, ...interface{}) {}
func (NoOpLogger) Info(context.Context, string, ...interface{}) {}
func (NoOpLogger) Warn(context.Context, string, ...interface{}) {}
func (NoOpLogger) Error(context.Context, string, ...interface{}) {}
func (n NoOpLogger) With(...interface{}) ports.Logger { return n }
