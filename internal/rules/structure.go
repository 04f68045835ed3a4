package rules

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"evglint/internal/lint"
	"evglint/internal/project"
)

// InvalidBuildParameter lints build parameter names and, optionally,
// requires every parameter to be described.
type InvalidBuildParameter struct{}

func (InvalidBuildParameter) Name() string { return "invalid-build-parameter" }

func (InvalidBuildParameter) Description() string {
	return "Lint build parameter names using the given regex, and optionally require descriptions for the parameter"
}

func (InvalidBuildParameter) Defaults() lint.Params {
	return lint.Params{"regex": defaultBuildParameter, "require-description": true}
}

func (InvalidBuildParameter) Validate(params lint.Params) error {
	if _, err := compileFullMatch(params, "regex"); err != nil {
		return err
	}
	if _, ok := params.Bool("require-description"); !ok {
		return fmt.Errorf("parameter %q must be a boolean", "require-description")
	}
	return nil
}

func (InvalidBuildParameter) Check(params lint.Params, p *project.Project) []lint.LintError {
	re, err := compileFullMatch(params, "regex")
	if err != nil {
		return nil
	}
	pattern, _ := params.String("regex")
	requireDescription, _ := params.Bool("require-description")

	var out []lint.LintError
	for idx, param := range p.Parameters {
		if !re.MatchString(param.Key) {
			out = append(out, lint.LintError(fmt.Sprintf(
				"Build parameter %d, '%s', must have a key matching '%s'", idx, param.Key, pattern)))
		}
		if requireDescription && strings.TrimSpace(param.Description) == "" {
			out = append(out, lint.LintError(fmt.Sprintf(
				"Build parameter %d, '%s', must have a non-empty description", idx, param.Key)))
		}
	}
	return out
}

// DependencyForFunc requires tasks that call a function to depend on the
// tasks configured for that function.
type DependencyForFunc struct{}

func (DependencyForFunc) Name() string { return "dependency-for-func" }

func (DependencyForFunc) Description() string {
	return "Enforce tasks that include specified functions include required dependencies"
}

func (DependencyForFunc) Defaults() lint.Params {
	return lint.Params{"dependencies": map[string]any{}}
}

func (DependencyForFunc) Validate(params lint.Params) error {
	if _, ok := params.StringSliceMap("dependencies"); !ok {
		return fmt.Errorf("parameter %q must map function names to lists of task names", "dependencies")
	}
	return nil
}

func (DependencyForFunc) Check(params lint.Params, p *project.Project) []lint.LintError {
	deps, _ := params.StringSliceMap("dependencies")
	funcs := sortedKeys(deps)

	var out []lint.LintError
	for _, task := range p.Tasks {
		have := task.Dependencies()
		for _, fn := range funcs {
			if !task.CallsFunction(fn) {
				continue
			}
			for _, dep := range deps[fn] {
				if _, ok := have[dep]; !ok {
					out = append(out, lint.LintError(fmt.Sprintf(
						"Task '%s' calls function '%s' and must depend on task '%s'", task.Name, fn, dep)))
				}
			}
		}
	}
	return out
}

// TasksForVariants requires build variants to run a configured set of tasks.
type TasksForVariants struct{}

func (TasksForVariants) Name() string { return "tasks-for-variants" }

func (TasksForVariants) Description() string {
	return "Enforce variants must run the specified list of tasks"
}

func (TasksForVariants) Defaults() lint.Params {
	return lint.Params{"task-variant-mappings": map[string]any{}}
}

func (TasksForVariants) Validate(params lint.Params) error {
	if _, ok := params.StringSliceMap("task-variant-mappings"); !ok {
		return fmt.Errorf("parameter %q must map variant names to lists of task names", "task-variant-mappings")
	}
	return nil
}

func (TasksForVariants) Check(params lint.Params, p *project.Project) []lint.LintError {
	mappings, _ := params.StringSliceMap("task-variant-mappings")

	var out []lint.LintError
	for _, bv := range p.BuildVariants {
		required, ok := mappings[bv.Name]
		if !ok {
			continue
		}
		for _, task := range required {
			if !slices.Contains(bv.Tasks, task) {
				out = append(out, lint.LintError(fmt.Sprintf(
					"Build variant '%s' must run task '%s'", bv.Name, task)))
			}
		}
	}
	return out
}

// EnforceTagsForTasks requires every task to carry at least one tag from each
// configured tag group.
type EnforceTagsForTasks struct{}

func (EnforceTagsForTasks) Name() string { return "enforce-tags-for-tasks" }

func (EnforceTagsForTasks) Description() string { return "Enforce tasks must have tags" }

func (EnforceTagsForTasks) Defaults() lint.Params {
	return lint.Params{"tag_groups": []any{}}
}

func (EnforceTagsForTasks) Validate(params lint.Params) error {
	if _, ok := params.StringSlices("tag_groups"); !ok {
		return fmt.Errorf("parameter %q must be a list of tag lists", "tag_groups")
	}
	return nil
}

func (EnforceTagsForTasks) Check(params lint.Params, p *project.Project) []lint.LintError {
	groups, _ := params.StringSlices("tag_groups")

	var out []lint.LintError
	for _, task := range p.Tasks {
		for _, group := range groups {
			if len(group) == 0 || slices.ContainsFunc(group, task.HasTag) {
				continue
			}
			out = append(out, lint.LintError(fmt.Sprintf(
				"Task '%s' must have at least one of the following tags: %s", task.Name, strings.Join(group, ", "))))
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
