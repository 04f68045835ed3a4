// Package report renders lint results as a directory of markdown pages with
// YAML frontmatter, readable as an Obsidian vault.
//
// Layout:
//
//	index.md          totals, errors per rule, and a link to every file page
//	files/<name>.md   one per linted file, findings grouped by rule
package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"evglint/internal/lint"
)

// FileResult is the outcome of linting one file.
type FileResult struct {
	// Path is the file as shown to the user.
	Path     string
	Findings []lint.Finding
	// LoadError is set when the file could not be read or parsed.
	LoadError error
}

// Bundle holds generated page content keyed by forward-slash path relative to
// the output directory.
type Bundle struct {
	pages map[string]string
}

// Pages returns the page paths in sorted order.
func (b *Bundle) Pages() []string {
	paths := make([]string, 0, len(b.pages))
	for p := range b.pages {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Page returns the content of the page at path.
func (b *Bundle) Page(path string) (string, bool) {
	s, ok := b.pages[path]
	return s, ok
}

type indexMeta struct {
	Tags   []string `yaml:"tags"`
	Files  int      `yaml:"files"`
	Errors int      `yaml:"errors"`
}

type fileMeta struct {
	Tags   []string `yaml:"tags"`
	File   string   `yaml:"file"`
	Errors int      `yaml:"errors"`
}

// Generate builds every page from results. Nothing is written.
func Generate(results []FileResult, helpURL string) (*Bundle, error) {
	pages := make(map[string]string, len(results)+1)
	names := pageNames(results)

	for i, r := range results {
		page, err := buildFilePage(r)
		if err != nil {
			return nil, err
		}
		pages["files/"+names[i]+".md"] = page
	}
	index, err := buildIndexPage(results, names, helpURL)
	if err != nil {
		return nil, err
	}
	pages["index.md"] = index
	return &Bundle{pages: pages}, nil
}

// Write writes all pages in b to dir in sorted path order. files/ is always
// created.
func Write(b *Bundle, dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, "files"), 0o755); err != nil {
		return fmt.Errorf("mkdir files: %w", err)
	}
	for _, p := range b.Pages() {
		if err := writePage(filepath.Join(dir, filepath.FromSlash(p)), b.pages[p]); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Page builders
// ---------------------------------------------------------------------------

func buildIndexPage(results []FileResult, names []string, helpURL string) (string, error) {
	total := 0
	perRule := make(map[string]int)
	for _, r := range results {
		total += len(r.Findings)
		for _, f := range r.Findings {
			perRule[f.Rule]++
		}
	}

	var b strings.Builder
	b.WriteString("# Lint Report\n\n")
	fmt.Fprintf(&b, "- **Files**: %d\n", len(results))
	fmt.Fprintf(&b, "- **Errors**: %d\n", total)
	if helpURL != "" {
		fmt.Fprintf(&b, "- **Help**: %s\n", helpURL)
	}

	if len(perRule) > 0 {
		b.WriteString("\n## Rules\n\n| Rule | Errors |\n|---|---|\n")
		rules := make([]string, 0, len(perRule))
		for r := range perRule {
			rules = append(rules, r)
		}
		sort.Strings(rules)
		for _, r := range rules {
			fmt.Fprintf(&b, "| %s | %d |\n", r, perRule[r])
		}
	}

	if len(results) > 0 {
		b.WriteString("\n## Files\n\n")
		for i, r := range results {
			status := fmt.Sprintf("%d error(s)", len(r.Findings))
			if r.LoadError != nil {
				status = "failed to load"
			}
			fmt.Fprintf(&b, "- [[files/%s|%s]]: %s\n", names[i], r.Path, status)
		}
	}

	return withFrontmatter(indexMeta{
		Tags:   []string{"evglint/index"},
		Files:  len(results),
		Errors: total,
	}, b.String())
}

func buildFilePage(r FileResult) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", r.Path)

	if r.LoadError != nil {
		fmt.Fprintf(&b, "\n## Load error\n\n%s\n", r.LoadError)
	}

	// Findings arrive grouped by rule in configuration order.
	last := ""
	for _, f := range r.Findings {
		if f.Rule != last {
			fmt.Fprintf(&b, "\n## %s\n\n", f.Rule)
			last = f.Rule
		}
		fmt.Fprintf(&b, "- %s\n", f.Error)
	}
	if r.LoadError == nil && len(r.Findings) == 0 {
		b.WriteString("\nNo lint errors.\n")
	}

	tags := []string{"evglint/file"}
	if r.LoadError != nil {
		tags = append(tags, "evglint/load-error")
	} else if len(r.Findings) > 0 {
		tags = append(tags, "evglint/errors")
	}
	return withFrontmatter(fileMeta{Tags: tags, File: r.Path, Errors: len(r.Findings)}, b.String())
}

// withFrontmatter marshals meta as YAML between --- delimiters, followed by a
// blank line and body.
func withFrontmatter(meta any, body string) (string, error) {
	fm, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("frontmatter: marshal: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")
	buf.WriteString(body)
	return buf.String(), nil
}

// pageNames assigns each result a unique sanitized page name. Later results
// whose name collides get a numeric suffix.
func pageNames(results []FileResult) []string {
	names := make([]string, len(results))
	used := make(map[string]bool, len(results))
	for i, r := range results {
		base := sanitizeFilename(r.Path)
		if base == "" {
			base = "file"
		}
		name := base
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s-%d", base, n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// sanitizeFilename replaces / and . with -, collapses consecutive - to one,
// and trims leading/trailing -.
func sanitizeFilename(s string) string {
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, ".", "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

// writePage writes content to path, creating parent directories as needed.
func writePage(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
