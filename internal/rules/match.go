package rules

import (
	"fmt"
	"regexp"

	"evglint/internal/lint"
	"evglint/internal/project"
)

// Evergreen command identifiers the rules look for.
const (
	cmdExpansionsWrite    = "expansions.write"
	cmdExpansionsUpdate   = "expansions.update"
	cmdTimeoutUpdate      = "timeout.update"
	cmdSubprocessExec     = "subprocess.exec"
	cmdSubprocessScript   = "subprocess.scripting"
	cmdShellExec          = "shell.exec"
	cmdKeyvalInc          = "keyval.inc"
	defaultScriptPattern  = `.*\/evergreen\/.*\.sh`
	defaultFunctionName   = `^f_[a-z][A-Za-z0-9_]*`
	defaultBuildParameter = `[a-z][a-z0-9_]*`
)

// shellCommands are the commands that run a shell or subprocess.
var shellCommands = []string{cmdSubprocessExec, cmdSubprocessScript, cmdShellExec}

// stepKind classifies a command step (or a dict-form function body) for the
// expansions-write analysis. The kinds are mutually exclusive.
type stepKind uint8

const (
	otherStep stepKind = iota
	expansionsWriteStep
	scriptExecStep
	expansionsUpdateStep
	timeoutUpdateStep
)

// scriptMatcher recognises subprocess.exec invocations of evergreen scripts.
type scriptMatcher struct {
	script *regexp.Regexp
}

// kind returns the step kind of a direct invocation.
func (m scriptMatcher) kind(c project.Invocation) stepKind {
	switch c.Name {
	case cmdExpansionsWrite:
		return expansionsWriteStep
	case cmdSubprocessExec:
		if m.runsScript(c) {
			return scriptExecStep
		}
	case cmdExpansionsUpdate:
		return expansionsUpdateStep
	case cmdTimeoutUpdate:
		return timeoutUpdateStep
	}
	return otherStep
}

// runsScript reports whether a subprocess.exec invocation runs a script
// matching the pattern. The first element of params.args is checked when
// present, otherwise params.command. Params naming neither still count.
func (m scriptMatcher) runsScript(c project.Invocation) bool {
	if c.Params == nil {
		return false
	}
	if args, ok := c.Params["args"]; ok {
		list, ok := args.([]any)
		if !ok || len(list) == 0 {
			return false
		}
		first, ok := list[0].(string)
		return ok && m.script.MatchString(first)
	}
	if cmd, ok := c.Params["command"]; ok {
		s, ok := cmd.(string)
		return ok && m.script.MatchString(s)
	}
	return true
}

// compileParam compiles the regular expression stored under key.
func compileParam(params lint.Params, key string) (*regexp.Regexp, error) {
	pattern, ok := params.String(key)
	if !ok {
		return nil, fmt.Errorf("parameter %q must be a string", key)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", key, err)
	}
	return re, nil
}

// compileFullMatch compiles the pattern under key anchored at both ends.
func compileFullMatch(params lint.Params, key string) (*regexp.Regexp, error) {
	if _, err := compileParam(params, key); err != nil {
		return nil, err
	}
	pattern, _ := params.String(key)
	return regexp.Compile(`^(?:` + pattern + `)$`)
}
