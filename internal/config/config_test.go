package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"evglint/internal/config"
	"evglint/internal/lint"
	"evglint/internal/rules"
)

func load(t *testing.T, dir, src string) (*config.Config, error) {
	t.Helper()
	return config.Load(strings.NewReader(src), dir, rules.Registry())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	cfg, err := load(t, dir, `
files:
  - ./evergreen.yml
  - sub/../other.yml
help_url: https://example.com/lint
rules:
  - rule: limit-keyval-inc
    limit: 3
  - rule: no-shell-exec
`)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	wantFiles := []string{filepath.Join(dir, "evergreen.yml"), filepath.Join(dir, "other.yml")}
	if diff := cmp.Diff(wantFiles, cfg.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if cfg.HelpURL != "https://example.com/lint" {
		t.Errorf("HelpURL = %q", cfg.HelpURL)
	}
	if len(cfg.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(cfg.Rules))
	}
	if cfg.Rules[0].Rule.Name() != "limit-keyval-inc" || cfg.Rules[1].Rule.Name() != "no-shell-exec" {
		t.Errorf("rule order not preserved: %s, %s", cfg.Rules[0].Rule.Name(), cfg.Rules[1].Rule.Name())
	}
	if diff := cmp.Diff(lint.Params{"limit": 3}, cfg.Rules[0].Params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDefaultHelpURL(t *testing.T) {
	cfg, err := load(t, t.TempDir(), "files: [a.yml]\nhelp_url: ''\nrules: [{rule: no-shell-exec}]\n")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HelpURL != config.DefaultHelpURL {
		t.Errorf("HelpURL = %q, want default", cfg.HelpURL)
	}
}

func TestLoadGlobs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"evergreen.yml", "etc/b.yml", "etc/nested/a.yml", "etc/skip.txt"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg, err := load(t, dir, "files: [evergreen.yml, 'etc/**/*.yml']\nrules: [{rule: no-shell-exec}]\n")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{
		filepath.Join(dir, "evergreen.yml"),
		filepath.Join(dir, "etc", "b.yml"),
		filepath.Join(dir, "etc", "nested", "a.yml"),
	}
	if diff := cmp.Diff(want, cfg.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	_, err = load(t, dir, "files: ['missing/*.yml']\nrules: [{rule: no-shell-exec}]\n")
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for an unmatched glob, got %v", err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"empty", "", "expected to read a mapping, but read nothing"},
		{"list", "- a", "expected to read a mapping, but read a list"},
		{"no files", "rules: [{rule: no-shell-exec}]", "'files' key: a list of files is required"},
		{"empty files", "files: []\nrules: [{rule: no-shell-exec}]", "'files' key: a list of files is required"},
		{"file not string", "files: [a.yml, 3]\nrules: [{rule: no-shell-exec}]", "'files', index 1: expected a string, got a number"},
		{"no rules", "files: [a.yml]", "'rules' key: a list of rules is required"},
		{"unnamed rule", "files: [a.yml]\nrules: [{limit: 1}]", "'rules' index 0: unnamed rule (missing 'rule' key)"},
		{"unknown rule", "files: [a.yml]\nrules: [{rule: no-shell-exec}, {rule: nope}]", `'rules' index 1: unknown rule "nope"`},
		{"unknown params", "files: [a.yml]\nrules: [{rule: limit-keyval-inc, max: 1, cap: 2}]", "'rules' index 0: rule 'limit-keyval-inc': unknown config params: cap, max"},
		{"bad params", "files: [a.yml]\nrules: [{rule: limit-keyval-inc, limit: -1}]", "'rules' index 0: rule 'limit-keyval-inc': parameter \"limit\" must be a non-negative integer"},
		{"bad regex", "files: [a.yml]\nrules: [{rule: required-expansions-write, regex: '('}]", "'rules' index 0: rule 'required-expansions-write':"},
		{"bad yaml", "files: [", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(t, t.TempDir(), tc.src)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, config.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.HasPrefix(err.Error(), "config file invalid: ") {
				t.Errorf("error %q lacks the config file invalid prefix", err)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not contain %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.DefaultPath)
	if err := os.WriteFile(path, []byte("files: [evergreen.yml]\nrules: [{rule: no-shell-exec}]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.LoadFile(path, rules.Registry())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "evergreen.yml")}, cfg.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}

	_, err = config.LoadFile(filepath.Join(dir, "missing.yml"), rules.Registry())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestStubLoadsWithDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := load(t, dir, config.Stub(nil, ""))
	if err != nil {
		t.Fatalf("stub does not load: %v\n%s", err, config.Stub(nil, ""))
	}
	if diff := cmp.Diff([]string{filepath.Join(dir, "evergreen.yml")}, cfg.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
	if cfg.HelpURL != config.DefaultHelpURL {
		t.Errorf("HelpURL = %q", cfg.HelpURL)
	}

	var names []string
	for _, c := range cfg.Rules {
		names = append(names, c.Rule.Name())
		if diff := cmp.Diff(c.Rule.Defaults(), c.Params); diff != "" {
			t.Errorf("%s: stub params differ from defaults (-defaults +stub):\n%s", c.Rule.Name(), diff)
		}
	}
	var want []string
	for _, r := range rules.All() {
		want = append(want, r.Name())
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("stub rules mismatch (-want +got):\n%s", diff)
	}
}

func TestStubCustomValues(t *testing.T) {
	stub := config.Stub([]string{"etc/evergreen.yml", "etc/*.yml"}, "https://example.com/help")
	for _, want := range []string{
		"    - etc/evergreen.yml\n",
		"    - etc/*.yml\n",
		"\nhelp_url: https://example.com/help\n",
	} {
		if !strings.Contains(stub, want) {
			t.Errorf("stub does not contain %q:\n%s", want, stub)
		}
	}
	if !strings.Contains(config.Stub(nil, ""), "#help_url: "+config.DefaultHelpURL) {
		t.Error("default help_url should be commented out")
	}
}
