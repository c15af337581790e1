package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	reshelferrors "github.com/alexisbeaulieu97/reshelf/pkg/errors"
)

var (
	yamlLineRegex = regexp.MustCompile(`line (\d+)`)
	envRefRegex   = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
)

// ParseFile reads path from fs and hands the document to Parse.
func ParseFile(fs afero.Fs, path string) (*Config, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, reshelferrors.NewParseError(path, 0, err)
	}
	return Parse(path, data)
}

// Parse decodes and validates an in-memory document. path only labels
// errors. ${NAME} references are replaced from the process environment
// before decoding; unset names are left as written. Unknown keys are
// rejected so a misspelt rule field does not silently fall back to a
// default.
func Parse(path string, data []byte) (*Config, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(expandEnv(data)))
	decoder.KnownFields(true)

	var cfg Config
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, reshelferrors.NewParseError(path, extractLine(err), err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func expandEnv(data []byte) []byte {
	return envRefRegex.ReplaceAllFunc(data, func(ref []byte) []byte {
		name := envRefRegex.FindSubmatch(ref)[1]
		if value, ok := os.LookupEnv(string(name)); ok {
			return []byte(value)
		}
		return ref
	})
}

// extractLine pulls the first line number out of a yaml.v3 error, or 0.
func extractLine(err error) int {
	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}
	line, convErr := strconv.Atoi(matches[1])
	if convErr != nil {
		return 0
	}
	return line
}
