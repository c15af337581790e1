package ports

import (
	"context"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// ConfigLoader turns a configuration document into run settings. An empty
// path means no document: the loader returns organize.DefaultSettings.
//
// Failures are reported as *organize.DomainError with these codes:
//   - ErrCodeNotFound when the document does not exist
//   - ErrCodeValidation for syntax errors, unknown keys and rule violations
//   - ErrCodeCancelled when ctx is done before loading finishes
//   - ErrCodeInternal for anything else, wrapping the cause
type ConfigLoader interface {
	Load(ctx context.Context, path string) (*organize.Settings, error)
	// Validate loads path and discards the settings. Only .yaml and .yml
	// documents are accepted.
	Validate(ctx context.Context, path string) error
}
