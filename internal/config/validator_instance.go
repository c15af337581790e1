package config

import (
	"path"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gobwas/glob"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	schemaVersionPattern = regexp.MustCompile(`^\d+\.\d+$`)
	environmentPattern   = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)
	octalModePattern     = regexp.MustCompile(`^0?[0-7]{3}$`)
	reportFormats        = map[string]struct{}{"markdown": {}, "json": {}, "html": {}, "csv": {}}
)

// validatorInstance configures and returns the shared validator instance used across the config package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})

		_ = v.RegisterValidation("schema_version", func(fl validator.FieldLevel) bool {
			return schemaVersionPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("environment", func(fl validator.FieldLevel) bool {
			return environmentPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("octal_mode", func(fl validator.FieldLevel) bool {
			return octalModePattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("report_format", func(fl validator.FieldLevel) bool {
			_, ok := reportFormats[fl.Field().String()]
			return ok
		})

		_ = v.RegisterValidation("glob", func(fl validator.FieldLevel) bool {
			pattern := fl.Field().String()
			if strings.TrimSpace(pattern) == "" {
				return false
			}
			_, err := glob.Compile(pattern, '/')
			return err == nil
		})

		_ = v.RegisterValidation("relpath", func(fl validator.FieldLevel) bool {
			return isRelativeTarget(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// GetValidator returns a configured validator instance for use outside the config package.
func GetValidator() *validator.Validate {
	return validatorInstance()
}

// isRelativeTarget accepts clean relative paths that stay below the
// environment root.
func isRelativeTarget(p string) bool {
	if p == "" || strings.Contains(p, "\x00") {
		return false
	}
	if strings.HasPrefix(p, "/") {
		return false
	}
	cleaned := path.Clean(p)
	return cleaned != "." && cleaned != ".." && !strings.HasPrefix(cleaned, "../")
}
