package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/reshelf/internal/ports"
	pkgerrors "github.com/alexisbeaulieu97/reshelf/pkg/errors"
)

// Format names an output format for the integrated report.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatHTML     Format = "html"
	FormatCSV      Format = "csv"
)

var extensions = map[Format]string{
	FormatMarkdown: "md",
	FormatJSON:     "json",
	FormatHTML:     "html",
	FormatCSV:      "csv",
}

// ParseFormats validates raw format names. Blank names are dropped.
func ParseFormats(raw []string) ([]Format, error) {
	formats := make([]Format, 0, len(raw))
	for _, name := range raw {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if name == "md" {
			name = string(FormatMarkdown)
		}
		format := Format(name)
		if _, ok := extensions[format]; !ok {
			return nil, pkgerrors.NewValidationError("report.formats", fmt.Sprintf("unsupported report format %q", name), nil)
		}
		formats = append(formats, format)
	}
	return formats, nil
}

// Reporter renders execution results to files.
type Reporter struct {
	fs        afero.Fs
	outputDir string
	formats   []Format
	logger    ports.Logger
	now       func() time.Time
	system    func() SystemInfo

	mu        sync.Mutex
	generated []string
	subs      []ports.Subscription
}

var _ ports.ReportWriter = (*Reporter)(nil)

// Option configures a Reporter.
type Option func(*Reporter) error

// WithOutputDir sets the directory reports are written to.
func WithOutputDir(dir string) Option {
	return func(r *Reporter) error {
		if dir != "" {
			r.outputDir = dir
		}
		return nil
	}
}

// WithFormats selects the integrated report formats.
func WithFormats(names []string) Option {
	return func(r *Reporter) error {
		formats, err := ParseFormats(names)
		if err != nil {
			return err
		}
		if len(formats) > 0 {
			r.formats = formats
		}
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(r *Reporter) error {
		if logger != nil {
			r.logger = logger
		}
		return nil
	}
}

// WithClock overrides the clock used for timestamps and file names.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) error {
		if now != nil {
			r.now = now
		}
		return nil
	}
}

// WithSystemInfo overrides how the system section is collected.
func WithSystemInfo(collect func() SystemInfo) Option {
	return func(r *Reporter) error {
		if collect != nil {
			r.system = collect
		}
		return nil
	}
}

// New returns a Reporter writing through fs.
func New(fs afero.Fs, opts ...Option) (*Reporter, error) {
	r := &Reporter{
		fs:        fs,
		outputDir: organize.DefaultReportDir,
		formats:   []Format{FormatMarkdown, FormatJSON},
		logger:    logging.NewNoOpLogger(),
		now:       time.Now,
		system: func() SystemInfo {
			wd, _ := os.Getwd()
			return CollectSystemInfo(wd)
		},
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("layer", "infrastructure", "component", "report")
	return r, nil
}

// OutputDir returns the directory reports are written to.
func (r *Reporter) OutputDir() string {
	return r.outputDir
}

// GenerateIntegratedReport writes one file per configured format, all
// derived from result, and returns their paths.
func (r *Reporter) GenerateIntegratedReport(ctx context.Context, result organize.ExecutionResult) ([]string, error) {
	if err := r.fs.MkdirAll(r.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory: %w", err)
	}

	generatedAt := r.now()
	data := newData(result, generatedAt, r.system())
	stamp := timestamp(generatedAt)

	paths := make([]string, 0, len(r.formats))
	for _, format := range r.formats {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		content, err := render(format, data)
		if err != nil {
			return paths, err
		}
		path := filepath.Join(r.outputDir, fmt.Sprintf("file-organization-report-%s.%s", stamp, extensions[format]))
		if err := afero.WriteFile(r.fs, path, content, 0o644); err != nil {
			return paths, fmt.Errorf("write %s report: %w", format, err)
		}
		paths = append(paths, path)
	}

	r.logger.Info(ctx, "integrated report generated", "files", len(paths), "recommendations", len(data.Recommendations))
	return paths, nil
}

// WriteReport writes the markdown sections matching kind for a snapshot
// taken during the generating_report phase.
func (r *Reporter) WriteReport(ctx context.Context, kind organize.ReportKind, snapshot organize.ExecutionResult) (organize.GeneratedReport, error) {
	if err := ctx.Err(); err != nil {
		return organize.GeneratedReport{}, err
	}
	if err := r.fs.MkdirAll(r.outputDir, 0o755); err != nil {
		return organize.GeneratedReport{}, fmt.Errorf("create report directory: %w", err)
	}

	generatedAt := r.now()
	content, err := renderSections(kind, newData(snapshot, generatedAt, r.system()))
	if err != nil {
		return organize.GeneratedReport{}, err
	}
	path := filepath.Join(r.outputDir, fmt.Sprintf("%s-%s.md", kind, timestamp(generatedAt)))
	if err := afero.WriteFile(r.fs, path, content, 0o644); err != nil {
		return organize.GeneratedReport{}, fmt.Errorf("write %s report: %w", kind, err)
	}

	r.logger.Debug(ctx, "report section written", "type", kind, "path", path)
	return organize.GeneratedReport{Kind: kind, FilePath: path, GeneratedAt: generatedAt}, nil
}

// Follow generates the integrated report each time a run published on
// publisher finishes, successfully or not.
func (r *Reporter) Follow(publisher ports.EventPublisher) error {
	for _, eventType := range []string{ports.EventExecutionCompleted, ports.EventExecutionFailed} {
		sub, err := publisher.Subscribe(eventType, r.onFinished)
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", eventType, err)
		}
		r.mu.Lock()
		r.subs = append(r.subs, sub)
		r.mu.Unlock()
	}
	return nil
}

// Unfollow drops the subscriptions made by Follow.
func (r *Reporter) Unfollow() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		sub.Unsubscribe()
	}
	r.subs = nil
}

// Generated returns the integrated report files written so far.
func (r *Reporter) Generated() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.generated...)
}

func (r *Reporter) onFinished(ctx context.Context, event ports.DomainEvent) error {
	result, ok := event.Payload().(organize.ExecutionResult)
	if !ok {
		return fmt.Errorf("unexpected %s payload %T", event.EventType(), event.Payload())
	}
	// An interrupted run still gets its report.
	paths, err := r.GenerateIntegratedReport(context.WithoutCancel(ctx), result)
	r.mu.Lock()
	r.generated = append(r.generated, paths...)
	r.mu.Unlock()
	if err != nil {
		r.logger.Error(ctx, "integrated report failed", "error", err)
		return err
	}
	return nil
}

func render(format Format, data Data) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return renderMarkdown(data)
	case FormatJSON:
		return renderJSON(data)
	case FormatHTML:
		return renderHTML(data)
	case FormatCSV:
		return renderCSV(data)
	default:
		return nil, pkgerrors.NewValidationError("report.formats", fmt.Sprintf("unsupported report format %q", format), nil)
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15-04-05")
}
