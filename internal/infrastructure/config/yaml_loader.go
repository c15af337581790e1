package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	cfgpkg "github.com/alexisbeaulieu97/reshelf/internal/config"
	"github.com/alexisbeaulieu97/reshelf/internal/domain/organize"
	"github.com/alexisbeaulieu97/reshelf/internal/ports"
	apperrors "github.com/alexisbeaulieu97/reshelf/pkg/errors"
)

// YAMLLoader implements the ConfigLoader port by reading YAML files.
type YAMLLoader struct {
	fs     afero.Fs
	logger ports.Logger
}

// LoaderOption configures a YAMLLoader.
type LoaderOption func(*YAMLLoader)

// WithFs reads configuration through fs instead of the host filesystem.
func WithFs(fs afero.Fs) LoaderOption {
	return func(l *YAMLLoader) {
		if fs != nil {
			l.fs = fs
		}
	}
}

func NewYAMLLoader(logger ports.Logger, opts ...LoaderOption) *YAMLLoader {
	l := &YAMLLoader{fs: afero.NewOsFs(), logger: logger}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads path into run settings. An empty path yields the built-in
// defaults.
func (l *YAMLLoader) Load(ctx context.Context, path string) (*organize.Settings, error) {
	if err := contextCheck(ctx); err != nil {
		return nil, err
	}

	if path == "" {
		l.logDebug(ctx, "no configuration file, using defaults", nil)
		settings := organize.DefaultSettings()
		return &settings, nil
	}

	l.logDebug(ctx, "loading run configuration", map[string]interface{}{"path": path})

	cfg, err := cfgpkg.ParseFile(l.fs, path)
	if err != nil {
		l.logError(ctx, "failed to parse configuration", err, map[string]interface{}{"path": path})
		return nil, convertError(err, path)
	}

	if err := contextCheck(ctx); err != nil {
		return nil, err
	}

	settings := cfg.Settings()
	if err := settings.Defaults.Validate(); err != nil {
		l.logError(ctx, "configuration failed domain validation", err, map[string]interface{}{"path": path})
		return nil, err
	}

	l.logInfo(ctx, "run configuration loaded", map[string]interface{}{
		"path":         path,
		"environments": len(settings.Environments),
		"rules":        len(settings.Rules),
	})
	return settings, nil
}

func (l *YAMLLoader) Validate(ctx context.Context, path string) error {
	if err := contextCheck(ctx); err != nil {
		return err
	}

	info, err := l.fs.Stat(path)
	if err != nil {
		l.logError(ctx, "configuration path stat failed", err, map[string]interface{}{"path": path})
		return convertError(err, path)
	}
	if info.IsDir() {
		return organize.NewError(organize.ErrCodeValidation, "configuration path is a directory", nil, map[string]interface{}{"path": path})
	}

	ext := filepath.Ext(path)
	switch ext {
	case ".yaml", ".yml":
		l.logDebug(ctx, "validating run configuration", map[string]interface{}{"path": path})
		_, err = l.Load(ctx, path)
	default:
		err = organize.NewError(organize.ErrCodeValidation, "unsupported configuration file extension", nil, map[string]interface{}{"path": path, "extension": ext})
	}

	return err
}

var _ ports.ConfigLoader = (*YAMLLoader)(nil)

func convertError(err error, path string) error {
	if err == nil {
		return nil
	}
	var parseErr *apperrors.ParseError
	if errors.As(err, &parseErr) {
		if errors.Is(parseErr.Err, os.ErrNotExist) {
			return organize.NewError(organize.ErrCodeNotFound, "configuration not found", parseErr.Err, map[string]interface{}{"path": path})
		}
		return organize.NewError(organize.ErrCodeValidation, "invalid configuration syntax", err, map[string]interface{}{"path": parseErr.Path, "line": parseErr.Line})
	}
	var valErr *apperrors.ValidationError
	if errors.As(err, &valErr) {
		context := map[string]interface{}{"path": path}
		if valErr.Field != "" {
			context["field"] = valErr.Field
		}
		return organize.NewError(organize.ErrCodeValidation, valErr.Message, valErr.Err, context)
	}
	if os.IsNotExist(err) {
		return organize.NewError(organize.ErrCodeNotFound, "configuration not found", err, map[string]interface{}{"path": path})
	}
	return organize.NewError(organize.ErrCodeInternal, "configuration load failed", err, map[string]interface{}{"path": path})
}

func contextCheck(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return organize.NewError(organize.ErrCodeCancelled, "operation cancelled", err, nil)
	}
	return nil
}

func (l *YAMLLoader) logDebug(ctx context.Context, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Debug(ctx, msg, flattenFields(fields)...)
}

func (l *YAMLLoader) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Info(ctx, msg, flattenFields(fields)...)
}

func (l *YAMLLoader) logError(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	payload := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		payload[k] = v
	}
	payload["error"] = err
	l.logger.Error(ctx, msg, flattenFields(payload)...)
}

func flattenFields(fields map[string]interface{}) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]interface{}, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return args
}
