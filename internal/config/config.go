// Package config loads and validates the lint configuration file.
//
// File layout:
//
//	files:              # project files, relative to this file's directory
//	    - ./evergreen.yml
//	help_url: <url>     # optional, shown after lint errors
//	rules:              # rules to run, in order, with parameter overrides
//	    - rule: "limit-keyval-inc"
//	      limit: 0
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"
	"gopkg.in/yaml.v3"

	"evglint/internal/lint"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = ".evergreen-lint.yml"

// DefaultHelpURL is used when the configuration sets no help_url.
const DefaultHelpURL = "https://github.com/evergreen-ci/config-lint"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config file invalid")

// Config is a validated lint configuration.
type Config struct {
	// Files are absolute paths with globs expanded.
	Files   []string
	HelpURL string
	Rules   []lint.Configured
}

// LoadFile reads the configuration at path. Relative file entries resolve
// against the directory containing path.
func LoadFile(path string, reg lint.Registry) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	defer f.Close()
	return Load(f, filepath.Dir(path), reg)
}

// Load decodes and validates a configuration. Rule names and parameters are
// checked against reg.
func Load(r io.Reader, dir string, reg lint.Registry) (*Config, error) {
	var raw any
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, invalid("%v", err)
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, invalid("expected to read a mapping, but read %s", describe(raw))
	}

	files, err := loadFiles(doc["files"], dir)
	if err != nil {
		return nil, err
	}

	helpURL, _ := doc["help_url"].(string)
	if helpURL == "" {
		helpURL = DefaultHelpURL
	}

	rules, err := loadRules(doc["rules"], reg)
	if err != nil {
		return nil, err
	}
	return &Config{Files: files, HelpURL: helpURL, Rules: rules}, nil
}

func loadFiles(v any, dir string) ([]string, error) {
	entries, _ := v.([]any)
	if len(entries) == 0 {
		return nil, invalid("'files' key: a list of files is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve config dir: %w", err)
	}

	var files []string
	for i, entry := range entries {
		name, ok := entry.(string)
		if !ok {
			return nil, invalid("'files', index %d: expected a string, got %s", i, describe(entry))
		}
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(abs, path)
		}
		if !hasMeta(path) {
			files = append(files, filepath.Clean(path))
			continue
		}
		matches, err := doublestar.Glob(path)
		if err != nil {
			return nil, invalid("'files', index %d: %v", i, err)
		}
		if len(matches) == 0 {
			return nil, invalid("'files', index %d: pattern %q matches no files", i, name)
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	return files, nil
}

func loadRules(v any, reg lint.Registry) ([]lint.Configured, error) {
	entries, _ := v.([]any)
	if len(entries) == 0 {
		return nil, invalid("'rules' key: a list of rules is required")
	}

	out := make([]lint.Configured, 0, len(entries))
	for i, entry := range entries {
		m, _ := entry.(map[string]any)
		name, ok := m["rule"].(string)
		if !ok {
			return nil, invalid("'rules' index %d: unnamed rule (missing 'rule' key)", i)
		}
		rule, err := reg.Lookup(name)
		if err != nil {
			return nil, invalid("'rules' index %d: %v", i, err)
		}

		params := make(lint.Params, len(m)-1)
		for k, v := range m {
			if k != "rule" {
				params[k] = v
			}
		}
		defaults := rule.Defaults()
		var unknown []string
		for _, k := range params.Keys() {
			if _, ok := defaults[k]; !ok {
				unknown = append(unknown, k)
			}
		}
		if len(unknown) > 0 {
			return nil, invalid("'rules' index %d: rule '%s': unknown config params: %s",
				i, name, strings.Join(unknown, ", "))
		}
		if v, ok := rule.(lint.Validator); ok {
			if err := v.Validate(defaults.Merge(params)); err != nil {
				return nil, invalid("'rules' index %d: rule '%s': %v", i, name, err)
			}
		}
		out = append(out, lint.Configured{Rule: rule, Params: params})
	}
	return out, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, "*?[{")
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case map[string]any:
		return "a mapping"
	case []any:
		return "a list"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case int, int64, uint64, float64:
		return "a number"
	}
	return fmt.Sprintf("a %T", v)
}
