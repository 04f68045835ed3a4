// Package lint defines the rule contract and runs configured rules against a
// project document.
package lint

import (
	"evglint/internal/project"
)

// LintError is one self-contained, human readable lint finding.
type LintError string

// Rule is the interface every lint rule must implement.
type Rule interface {
	// Name returns the rule's identifier as used in lint configuration
	// (e.g. "required-expansions-write").
	Name() string

	// Description returns a one-line summary of what the rule enforces.
	Description() string

	// Defaults returns every parameter the rule accepts with its default
	// value. Configuration may only override keys present here.
	Defaults() Params

	// Check inspects the project and returns its findings in a stable order.
	// Check must not mutate the project. Malformed input yields fewer
	// findings, never a failure.
	Check(params Params, p *project.Project) []LintError
}

// Validator is implemented by rules whose parameters need checking when the
// lint configuration is loaded.
type Validator interface {
	Validate(params Params) error
}
