package ports

import (
	"context"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
)

// ReportWriter persists the reports produced by the generating_report phase.
type ReportWriter interface {
	WriteReport(ctx context.Context, kind organize.ReportKind, snapshot organize.ExecutionResult) (organize.GeneratedReport, error)
}
