package rules

import (
	"fmt"
	"sort"
	"strings"

	"evglint/internal/lint"
	"evglint/internal/project"
)

// RequiredExpansionsWrite requires that evergreen scripts run through
// subprocess.exec only ever see expansions that were written to disk after
// their last change.
//
// A dict-form function can be called by name ("- func: f", which may pass
// vars) or included through a YAML alias ("- *f", which cannot). A list-form
// function can only be called by name. That gives three checks:
//
//  1. A dict-form function that runs a script must not be called with vars,
//     because it has no room for an expansions.write of its own.
//  2. In every command list, expansions.write must come before the first
//     script execution.
//  3. Every expansions.update or timeout.update must be immediately followed
//     by expansions.write.
//
// Dict-form functions whose only command is one of the interesting commands
// stand in for that command wherever they are called.
type RequiredExpansionsWrite struct{}

func (RequiredExpansionsWrite) Name() string { return "required-expansions-write" }

func (RequiredExpansionsWrite) Description() string {
	return "Require expansions.write to be placed before subprocess.exec commands for scripts that match the given regex"
}

func (RequiredExpansionsWrite) Defaults() lint.Params {
	return lint.Params{"regex": defaultScriptPattern}
}

func (RequiredExpansionsWrite) Validate(params lint.Params) error {
	_, err := compileParam(params, "regex")
	return err
}

func (RequiredExpansionsWrite) Check(params lint.Params, p *project.Project) []lint.LintError {
	re, err := compileParam(params, "regex")
	if err != nil {
		return nil
	}
	m := scriptMatcher{script: re}
	c := expansionsChecker{matcher: m, classes: classifyFunctions(p.Functions, m)}

	var out []lint.LintError
	for context, block := range p.CommandLists() {
		list, ok := block.(project.CommandList)
		if !ok {
			continue
		}
		out = append(out, c.checkCommandList(context, list)...)
	}
	out = append(out, c.checkCallSites(p)...)
	return out
}

// functionClasses maps function names to the kind of their dict-form body.
// Unclassified functions are absent.
type functionClasses map[string]stepKind

// classifyFunctions assigns each dict-form function to at most one kind.
// List-form bodies cannot be included through an alias and stay unclassified.
func classifyFunctions(fns []project.Function, m scriptMatcher) functionClasses {
	classes := make(functionClasses)
	for _, fn := range fns {
		single, ok := fn.Body.(project.SingleCommand)
		if !ok {
			continue
		}
		inv, ok := single.Command.(project.Invocation)
		if !ok {
			continue
		}
		if k := m.kind(inv); k != otherStep {
			classes[fn.Name] = k
		}
	}
	return classes
}

// names returns the sorted names of the functions of kind k.
func (fc functionClasses) names(k stepKind) []string {
	var out []string
	for name, kind := range fc {
		if kind == k {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

type expansionsChecker struct {
	matcher scriptMatcher
	classes functionClasses
}

// kind resolves a step to its kind, looking function calls up in the
// classification.
func (c expansionsChecker) kind(cmd project.Command) stepKind {
	switch cmd := cmd.(type) {
	case project.Invocation:
		return c.matcher.kind(cmd)
	case project.FuncCall:
		return c.classes[cmd.Func]
	}
	return otherStep
}

func (c expansionsChecker) checkCommandList(context string, cmds project.CommandList) []lint.LintError {
	var out []lint.LintError
	firstExec, firstWrite := -1, -1
	warned := false

	for idx, cmd := range cmds {
		k := c.kind(cmd)
		if firstExec < 0 && k == scriptExecStep {
			firstExec = idx
		} else if firstWrite < 0 && k == expansionsWriteStep {
			firstWrite = idx
		}

		// Only the first offender per list is reported; the update checks
		// below cover the rest once it is fixed.
		if !warned && k == scriptExecStep && firstWrite < 0 {
			out = append(out, c.execWithoutWrite(stepContext(context, idx, cmd)))
			warned = true
		}

		if k == expansionsUpdateStep || k == timeoutUpdateStep {
			if idx+1 >= len(cmds) || c.kind(cmds[idx+1]) != expansionsWriteStep {
				name := cmdExpansionsUpdate
				if k == timeoutUpdateStep {
					name = cmdTimeoutUpdate
				}
				out = append(out, c.updateWithoutWrite(stepContext(context, idx, cmd), name))
			}
		}
	}

	if !warned && firstExec >= 0 && firstWrite >= 0 && firstExec < firstWrite {
		out = append(out, c.execWithoutWrite(stepContext(context, firstExec, cmds[firstExec])))
	}
	return out
}

func (c expansionsChecker) checkCallSites(p *project.Project) []lint.LintError {
	var out []lint.LintError
	for site := range p.FunctionCalls() {
		if c.classes[site.Call.Func] == scriptExecStep && len(site.Call.Vars) > 0 {
			out = append(out, c.argumentsToScript(site.Context))
		}
	}
	return out
}

func stepContext(context string, idx int, cmd project.Command) string {
	s := fmt.Sprintf("%s, command %d", context, idx)
	if call, ok := cmd.(project.FuncCall); ok {
		s += fmt.Sprintf(", (function call: %s)", call.Func)
	}
	return s
}

// writeFunctions renders the expansions.write functions as a bracketed,
// quoted list.
func (c expansionsChecker) writeFunctions() string {
	names := c.classes.names(expansionsWriteStep)
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func (c expansionsChecker) argumentsToScript(context string) lint.LintError {
	return lint.LintError(fmt.Sprintf("%s cannot safely take arguments. "+
		"Call expansions.write with params: file: expansions.yml; redacted: true, "+
		"(or use one of these functions: %s) in the function, or do not pass arguments to it.",
		context, c.writeFunctions()))
}

func (c expansionsChecker) updateWithoutWrite(context, name string) lint.LintError {
	return lint.LintError(fmt.Sprintf("%s is an %s command that is not immediately followed by an expansions.write call. "+
		"Always call expansions.write with params: file: expansions.yml; redacted: true, "+
		"(or use one of these functions: %s) after calling %s.",
		context, name, c.writeFunctions(), name))
}

func (c expansionsChecker) execWithoutWrite(context string) lint.LintError {
	return lint.LintError(fmt.Sprintf("%s calls an evergreen shell script without a preceding expansions.write call. "+
		"Always call expansions.write with params: file: expansions.yml; redacted: true, "+
		"(or use one of these functions: %s) before calling an evergreen shell script via subprocess.exec.",
		context, c.writeFunctions()))
}
