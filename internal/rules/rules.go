// Package rules implements the evglint rule set.
package rules

import "evglint/internal/lint"

// All returns every rule in the order they are documented in the stub
// configuration.
func All() []lint.Rule {
	return []lint.Rule{
		LimitKeyvalInc{},
		ShellExecExplicitShell{},
		NoWorkingDirOnShell{},
		InvalidFunctionName{},
		NoShellExec{},
		NoMultilineExpansionsUpdate{},
		InvalidBuildParameter{},
		RequiredExpansionsWrite{},
		DependencyForFunc{},
		TasksForVariants{},
		EnforceTagsForTasks{},
	}
}

// Registry returns a registry of every rule.
func Registry() lint.Registry {
	return lint.NewRegistry(All()...)
}
