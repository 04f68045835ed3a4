package rules

import (
	"fmt"
	"slices"
	"strings"

	"evglint/internal/lint"
	"evglint/internal/project"
)

// LimitKeyvalInc limits the number of keyval.inc commands in a file.
type LimitKeyvalInc struct{}

func (LimitKeyvalInc) Name() string { return "limit-keyval-inc" }

func (LimitKeyvalInc) Description() string {
	return "Limit to maximum number of uses of keyval.inc to the limit parameter"
}

func (LimitKeyvalInc) Defaults() lint.Params { return lint.Params{"limit": 0} }

func (LimitKeyvalInc) Validate(params lint.Params) error {
	if n, ok := params.Int("limit"); !ok || n < 0 {
		return fmt.Errorf("parameter %q must be a non-negative integer", "limit")
	}
	return nil
}

func (LimitKeyvalInc) Check(params lint.Params, p *project.Project) []lint.LintError {
	limit, _ := params.Int("limit")
	var out []lint.LintError
	for site := range p.Commands() {
		if site.Command.Name == cmdKeyvalInc {
			out = append(out, lint.LintError(fmt.Sprintf(
				"%s uses keyval.inc. The entire file must not use keyval.inc more than %d times.",
				site.Context, limit)))
		}
	}
	if len(out) <= limit {
		return nil
	}
	return out
}

// ShellExecExplicitShell requires shell.exec to name its shell.
type ShellExecExplicitShell struct{}

func (ShellExecExplicitShell) Name() string { return "shell-exec-explicit-shell" }

func (ShellExecExplicitShell) Description() string {
	return "Require that shell.exec invocations explicitly set their shell"
}

func (ShellExecExplicitShell) Defaults() lint.Params { return lint.Params{} }

func (ShellExecExplicitShell) Check(_ lint.Params, p *project.Project) []lint.LintError {
	var out []lint.LintError
	for site := range p.Commands() {
		if site.Command.Name != cmdShellExec {
			continue
		}
		if _, ok := site.Command.Param("shell"); !ok {
			out = append(out, lint.LintError(site.Context+" is a shell.exec command without an explicitly "+
				"declared shell. You almost certainly want to add 'shell: bash' to the parameters list."))
		}
	}
	return out
}

// NoWorkingDirOnShell forbids working_dir on shell and subprocess commands.
type NoWorkingDirOnShell struct{}

func (NoWorkingDirOnShell) Name() string { return "no-working-dir-on-shell" }

func (NoWorkingDirOnShell) Description() string {
	return "Do not allow working_dir to be set on shell.exec, and subprocess.exec"
}

func (NoWorkingDirOnShell) Defaults() lint.Params { return lint.Params{} }

func (NoWorkingDirOnShell) Check(_ lint.Params, p *project.Project) []lint.LintError {
	var out []lint.LintError
	for site := range p.Commands() {
		if !slices.Contains(shellCommands, site.Command.Name) {
			continue
		}
		if _, ok := site.Command.Param("working_dir"); ok {
			out = append(out, lint.LintError(fmt.Sprintf("%s is a %s command with a working_dir parameter. "+
				"Do not set working_dir, instead `cd` into the directory in the shell script.",
				site.Context, site.Command.Name)))
		}
	}
	return out
}

// InvalidFunctionName enforces a naming convention on functions.
type InvalidFunctionName struct{}

func (InvalidFunctionName) Name() string { return "invalid-function-name" }

func (InvalidFunctionName) Description() string {
	return "Lint the names of functions using the given regex"
}

func (InvalidFunctionName) Defaults() lint.Params {
	return lint.Params{"regex": defaultFunctionName}
}

func (InvalidFunctionName) Validate(params lint.Params) error {
	_, err := compileFullMatch(params, "regex")
	return err
}

func (InvalidFunctionName) Check(params lint.Params, p *project.Project) []lint.LintError {
	re, err := compileFullMatch(params, "regex")
	if err != nil {
		return nil
	}
	pattern, _ := params.String("regex")
	var out []lint.LintError
	for _, fn := range p.Functions {
		if !re.MatchString(fn.Name) {
			out = append(out, lint.LintError(fmt.Sprintf("Function '%s' must have a name matching '%s'", fn.Name, pattern)))
		}
	}
	return out
}

// NoShellExec forbids shell.exec in favour of subprocess.exec.
type NoShellExec struct{}

func (NoShellExec) Name() string { return "no-shell-exec" }

func (NoShellExec) Description() string {
	return "Do not allow use of shell.exec (Use subprocess.exec)"
}

func (NoShellExec) Defaults() lint.Params { return lint.Params{} }

func (NoShellExec) Check(_ lint.Params, p *project.Project) []lint.LintError {
	var out []lint.LintError
	for site := range p.Commands() {
		if site.Command.Name == cmdShellExec {
			out = append(out, lint.LintError(site.Context+" is a shell.exec command, which is forbidden. "+
				"Extract your shell script out of the YAML and into a .sh file in directory 'evergreen', "+
				"and use subprocess.exec instead."))
		}
	}
	return out
}

// NoMultilineExpansionsUpdate forbids multi-line values embedded in
// expansions.update.
type NoMultilineExpansionsUpdate struct{}

func (NoMultilineExpansionsUpdate) Name() string { return "no-multiline-expansions-update" }

func (NoMultilineExpansionsUpdate) Description() string {
	return "Do not allow multi-line values for expansions.update"
}

func (NoMultilineExpansionsUpdate) Defaults() lint.Params { return lint.Params{} }

func (NoMultilineExpansionsUpdate) Check(_ lint.Params, p *project.Project) []lint.LintError {
	var out []lint.LintError
	for site := range p.Commands() {
		if site.Command.Name != cmdExpansionsUpdate {
			continue
		}
		raw, _ := site.Command.Param("updates")
		updates, _ := raw.([]any)
		for idx, item := range updates {
			kv, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if v, ok := kv["value"].(string); ok && strings.Contains(v, "\n") {
				out = append(out, lint.LintError(fmt.Sprintf("%s, key-value pair %d is an expansions.update "+
					"command with multi-line values embedded in the yaml, which is forbidden. "+
					"For long-form values, use the files parameter of expansions.update.",
					site.Context, idx)))
			}
		}
	}
	return out
}
