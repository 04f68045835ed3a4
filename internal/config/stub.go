package config

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed stub.yml.tmpl
var stubTemplate string

var stubTmpl = template.Must(template.New("stub").Funcs(template.FuncMap{
	"yamlString": yamlString,
}).Parse(stubTemplate))

// DefaultStubFiles is the files list of a stub created without one.
var DefaultStubFiles = []string{"./evergreen.yml"}

// Stub renders a commented configuration that enables every rule with its
// default parameters. An empty files list or help URL falls back to the
// defaults; the help_url line stays commented out unless it differs from
// DefaultHelpURL.
func Stub(files []string, helpURL string) string {
	if len(files) == 0 {
		files = DefaultStubFiles
	}
	if helpURL == "" {
		helpURL = DefaultHelpURL
	}
	var sb strings.Builder
	err := stubTmpl.Execute(&sb, struct {
		Files          []string
		HelpURL        string
		DefaultHelpURL string
	}{files, helpURL, DefaultHelpURL})
	if err != nil {
		panic(fmt.Sprintf("render stub: %v", err))
	}
	return sb.String()
}

// yamlString renders s as a YAML scalar, quoting only when needed.
func yamlString(s string) (string, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(string(out), "\n"), nil
}
