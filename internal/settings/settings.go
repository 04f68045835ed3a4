// Package settings loads evglint's own settings from .evglint/settings.yaml
// and EVGLINT_* environment variables.
//
// The deny list follows the familiar permission model: glob patterns naming
// files evglint must never read, written bare ("generated/**") or wrapped in a
// Read() verb ("Read(./generated/**)").
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"
	"github.com/spf13/viper"
)

const (
	// Dir is the settings directory, relative to the working directory.
	Dir = ".evglint"
	// FileName is the settings file inside Dir.
	FileName = "settings.yaml"
	// EnvPrefix prefixes environment overrides, e.g. EVGLINT_LOG_LEVEL.
	EnvPrefix = "EVGLINT"
)

// Settings holds evglint configuration.
type Settings struct {
	Log LogSettings `mapstructure:"log"`
	// Config is the lint configuration used when -c is not given.
	Config      string      `mapstructure:"config"`
	Permissions Permissions `mapstructure:"permissions"`
}

// LogSettings selects the log level and output format.
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Permissions controls which files evglint reads.
type Permissions struct {
	// Deny is a list of glob patterns for files evglint should not read.
	// Example: ["Read(./generated/**)"]
	Deny []string `mapstructure:"deny"`
}

// Load reads root/.evglint/settings.yaml, if present, and applies defaults
// and environment overrides. A missing file is not an error.
func Load(root string) (*Settings, error) {
	v := viper.New()
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("config", ".evergreen-lint.yml")
	v.SetDefault("permissions.deny", []string{})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	source := "defaults"
	path := filepath.Join(root, Dir, FileName)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		source = path
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	return decode(v, source)
}

// decode unmarshals the merged settings in v. source names where they came
// from for error messages.
func decode(v *viper.Viper, source string) (*Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings from %s: %w", source, err)
	}
	return &s, nil
}

// IsDenied reports whether relPath (forward-slash, relative to the working
// directory) matches any deny rule. Safe to call on a nil *Settings receiver.
func (s *Settings) IsDenied(relPath string) bool {
	if s == nil {
		return false
	}
	for _, rule := range s.Permissions.Deny {
		if matchDenyPattern(parseDenyRule(rule), relPath) {
			return true
		}
	}
	return false
}

// parseDenyRule extracts the path glob from a deny rule.
//
//	"Read(./generated/**)" → "generated/**"
//	"generated/**"         → "generated/**"
func parseDenyRule(rule string) string {
	if strings.HasPrefix(rule, "Read(") && strings.HasSuffix(rule, ")") {
		rule = rule[5 : len(rule)-1]
	}
	return strings.TrimPrefix(rule, "./")
}

// matchDenyPattern reports whether path matches a deny glob pattern.
//
// "prefix/**" matches the prefix directory itself and every path beneath it.
// Other patterns use doublestar semantics: * stays within one segment and **
// crosses directories.
func matchDenyPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		if !strings.ContainsAny(prefix, "*?[{") {
			return path == prefix || strings.HasPrefix(path, prefix+"/")
		}
	}
	matched, _ := doublestar.Match(pattern, path)
	return matched
}
