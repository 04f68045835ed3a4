package lint

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"evglint/internal/logging"
	"evglint/internal/project"
)

// Configured is a rule paired with the parameter overrides from the lint
// configuration.
type Configured struct {
	Rule   Rule
	Params Params
}

// Finding is a lint error attributed to the rule that produced it.
type Finding struct {
	Rule  string
	Error LintError
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s", f.Rule, f.Error)
}

// Run applies each configured rule to p in order and returns all findings,
// grouped by rule in configuration order.
//
// A rule that panics contributes no findings; the panic is logged and the
// remaining rules still run.
func Run(ctx context.Context, p *project.Project, rules []Configured) []Finding {
	logger := logging.FromContext(ctx)

	var findings []Finding
	for _, c := range rules {
		params := c.Rule.Defaults().Merge(c.Params)

		start := time.Now()
		errs := check(logger, c.Rule, params, p)
		logger.Debug("rule finished",
			slog.String("rule", c.Rule.Name()),
			slog.Int("errors", len(errs)),
			slog.Duration("elapsed", time.Since(start)))

		for _, e := range errs {
			findings = append(findings, Finding{Rule: c.Rule.Name(), Error: e})
		}
	}
	return findings
}

func check(logger *slog.Logger, rule Rule, params Params, p *project.Project) (errs []LintError) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("rule panicked; its findings are discarded",
				slog.String("rule", rule.Name()),
				slog.Any("panic", r))
			errs = nil
		}
	}()
	return rule.Check(params, p)
}
