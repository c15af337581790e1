package classify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/h2non/filetype"

	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/reshelf/internal/ports"
)

const (
	// sniffLength is the header size filetype needs to recognise every
	// matcher it ships.
	sniffLength = 261

	unknownConfidence = 0.1
	sniffedConfidence = 0.5
	reviewThreshold   = 0.5
	staleAfter        = 365 * 24 * time.Hour

	archiveTarget = "archive/legacy-files"
	assetTarget   = "docs/assets"
)

var sensitiveMarkers = []string{"secret", "password", "credential", "token", ".pem", ".key", "id_rsa"}

// Opener reads a file's content for sniffing.
type Opener func(path string) (io.ReadCloser, error)

type compiledRule struct {
	rule     organize.Rule
	patterns []compiledPattern
}

type compiledPattern struct {
	raw  string
	glob glob.Glob
}

// Classifier assigns each flat file a rule, target directory and mode.
// Rules are tried by descending priority; ties keep declaration order.
type Classifier struct {
	rules    []compiledRule
	preserve []glob.Glob
	open     Opener
	now      func() time.Time
	logger   ports.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithContentSniffing enables the content fallback for files no rule
// matched.
func WithContentSniffing(open Opener) Option {
	return func(c *Classifier) {
		c.open = open
	}
}

// WithClock overrides the clock used to age files.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger ports.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New compiles rules and preserve patterns. Patterns match file names
// case-insensitively.
func New(rules []organize.Rule, preserve []string, opts ...Option) (*Classifier, error) {
	c := &Classifier{
		now:    time.Now,
		logger: logging.NewNoOpLogger(),
	}

	for _, rule := range rules {
		compiled := compiledRule{rule: rule}
		for _, raw := range rule.Patterns {
			g, err := glob.Compile(strings.ToLower(raw))
			if err != nil {
				return nil, fmt.Errorf("rule %s: compile pattern %q: %w", rule.Name, raw, err)
			}
			compiled.patterns = append(compiled.patterns, compiledPattern{raw: strings.ToLower(raw), glob: g})
		}
		c.rules = append(c.rules, compiled)
	}
	sort.SliceStable(c.rules, func(i, j int) bool {
		return c.rules[i].rule.Priority > c.rules[j].rule.Priority
	})

	for _, raw := range preserve {
		g, err := glob.Compile(strings.ToLower(raw))
		if err != nil {
			return nil, fmt.Errorf("compile preserve pattern %q: %w", raw, err)
		}
		c.preserve = append(c.preserve, g)
	}

	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("layer", "infrastructure", "component", "classifier")
	return c, nil
}

// ClassifyEnvironment classifies files for env. Preserved files and files
// scanned in another environment are left out.
func (c *Classifier) ClassifyEnvironment(ctx context.Context, env organize.Environment, files []organize.FileInfo) (organize.Classification, error) {
	results := make([]organize.ClassificationResult, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return organize.Classification{}, err
		}
		if file.IsDirectory || (file.Environment != "" && file.Environment != env) {
			continue
		}
		if c.preserved(file.Name) {
			c.logger.Debug(ctx, "file preserved", "environment", env, "path", file.Path)
			continue
		}
		results = append(results, c.Classify(file))
	}

	c.logger.Debug(ctx, "environment classified", "environment", env, "files", len(files), "classified", len(results))
	return organize.Classification{Classifications: results}, nil
}

// Classify picks the first matching rule for file, falling back to
// content sniffing and then to the unknown target.
func (c *Classifier) Classify(file organize.FileInfo) organize.ClassificationResult {
	name := strings.ToLower(file.Name)
	for _, compiled := range c.rules {
		for _, pattern := range compiled.patterns {
			if !pattern.glob.Match(name) {
				continue
			}
			rule := compiled.rule
			confidence := c.adjust(matchQuality(name, pattern.raw), file)
			result := organize.ClassificationResult{
				File:        file,
				FileType:    rule.FileType,
				TargetPath:  rule.Target,
				Permissions: rule.Permissions,
				Confidence:  confidence,
				Reasoning:   []string{fmt.Sprintf("matched %q of rule %s", pattern.raw, rule.Name)},
				AppliedRule: rule.Name,
			}
			c.review(&result, rule.RequiresReview)
			return result
		}
	}

	if result, ok := c.sniff(file); ok {
		c.review(&result, false)
		return result
	}

	result := organize.ClassificationResult{
		File:        file,
		FileType:    organize.FileTypeUnknown,
		TargetPath:  organize.UnknownTarget,
		Permissions: "0644",
		Confidence:  unknownConfidence,
		Reasoning:   []string{"no rule matched"},
		AppliedRule: "unknown",
	}
	c.review(&result, true)
	return result
}

func (c *Classifier) preserved(name string) bool {
	name = strings.ToLower(name)
	for _, g := range c.preserve {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (c *Classifier) sniff(file organize.FileInfo) (organize.ClassificationResult, bool) {
	if c.open == nil || file.Size == 0 {
		return organize.ClassificationResult{}, false
	}
	rc, err := c.open(file.Path)
	if err != nil {
		return organize.ClassificationResult{}, false
	}
	defer rc.Close()

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return organize.ClassificationResult{}, false
	}
	head = head[:n]

	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return organize.ClassificationResult{}, false
	}

	result := organize.ClassificationResult{
		File:       file,
		Confidence: c.adjust(sniffedConfidence, file),
		Reasoning:  []string{fmt.Sprintf("content looks like %s", kind.MIME.Value)},
	}
	switch {
	case filetype.IsArchive(head):
		result.FileType = organize.FileTypeArchive
		result.TargetPath = archiveTarget
		result.Permissions = "0644"
		result.AppliedRule = "content:archive"
	case filetype.IsImage(head):
		result.FileType = organize.FileTypeAsset
		result.TargetPath = assetTarget
		result.Permissions = "0644"
		result.AppliedRule = "content:image"
	default:
		return organize.ClassificationResult{}, false
	}
	return result, true
}

func (c *Classifier) adjust(confidence float64, file organize.FileInfo) float64 {
	if file.Size == 0 {
		confidence *= 0.8
	}
	if !file.LastModified.IsZero() && c.now().Sub(file.LastModified) > staleAfter {
		confidence *= 0.9
	}
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

func (c *Classifier) review(result *organize.ClassificationResult, required bool) {
	if sensitive(result.File.Name) {
		result.Reasoning = append(result.Reasoning, "sensitive file")
		required = true
	}
	if result.Confidence < reviewThreshold {
		required = true
	}
	result.Reasoning = append(result.Reasoning, "type: "+string(result.FileType))
	result.RequiresReview = required
}

// matchQuality scores how closely name fits pattern once wildcards are
// removed: exact 1.0, prefix 0.8, suffix 0.7, anything else 0.6.
func matchQuality(name, pattern string) float64 {
	literal := strings.NewReplacer("*", "", "?", "").Replace(pattern)
	switch {
	case name == literal:
		return 1.0
	case strings.HasPrefix(name, literal):
		return 0.8
	case strings.HasSuffix(name, literal):
		return 0.7
	default:
		return 0.6
	}
}

func sensitive(name string) bool {
	name = strings.ToLower(name)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}
