package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	reshelferrors "github.com/alexisbeaulieu97/reshelf/pkg/errors"
)

// convertValidationError reports the first failing field as a
// ValidationError keyed by its YAML path.
func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return reshelferrors.NewValidationError("config", err.Error(), err)
	}
	fe := ves[0]
	field := yamlPath(fe)
	return reshelferrors.NewValidationError(field, describeTag(fe), err)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value is required"
	case "schema_version":
		return fmt.Sprintf("schema version %q does not look like major.minor", fe.Value())
	case "environment":
		return fmt.Sprintf("%q is not a known environment (local, ec2)", fe.Value())
	case "octal_mode":
		return fmt.Sprintf("%q is not an octal file mode such as 0644", fe.Value())
	case "report_format":
		return fmt.Sprintf("%q is not a report format", fe.Value())
	case "glob":
		return fmt.Sprintf("%q is not a valid glob pattern", fe.Value())
	case "relpath":
		return fmt.Sprintf("%q must be a relative path inside the environment root", fe.Value())
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "unique":
		return "must not contain duplicates"
	case "min", "max":
		return fmt.Sprintf("violates %s=%s", fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("failed the %q check", fe.Tag())
}

// yamlPath drops the root type from the namespace. Field names already
// come from yaml tags, so what remains is the document path.
func yamlPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldForRule(index int, field string) string {
	return fmt.Sprintf("rules[%d].%s", index, field)
}
