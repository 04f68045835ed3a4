package project

import (
	"gopkg.in/yaml.v3"
)

// pair is one key/value entry of a YAML mapping.
type pair struct {
	key   string
	value *yaml.Node
}

// resolve follows alias nodes to the anchored node.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// pairs returns the entries of a mapping node in document order, with "<<"
// merge keys expanded. Explicit keys win over merged ones. Non-mappings have
// no entries. A merge source that is already being expanded is skipped.
func pairs(n *yaml.Node) []pair {
	return expand(n, make(map[*yaml.Node]bool))
}

func expand(n *yaml.Node, active map[*yaml.Node]bool) []pair {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode || active[n] {
		return nil
	}
	active[n] = true
	defer delete(active, n)

	seen := make(map[string]bool, len(n.Content)/2)
	var out, merged []pair
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := resolve(n.Content[i]), n.Content[i+1]
		if k == nil || k.Kind != yaml.ScalarNode {
			continue
		}
		if k.Value == "<<" && k.ShortTag() == "!!merge" {
			merged = append(merged, mergeSources(v, active)...)
			continue
		}
		if seen[k.Value] {
			continue
		}
		seen[k.Value] = true
		out = append(out, pair{key: k.Value, value: v})
	}
	for _, m := range merged {
		if seen[m.key] {
			continue
		}
		seen[m.key] = true
		out = append(out, m)
	}
	return out
}

func mergeSources(v *yaml.Node, active map[*yaml.Node]bool) []pair {
	v = resolve(v)
	if v == nil {
		return nil
	}
	switch v.Kind {
	case yaml.MappingNode:
		return expand(v, active)
	case yaml.SequenceNode:
		var out []pair
		for _, item := range v.Content {
			out = append(out, expand(item, active)...)
		}
		return out
	}
	return nil
}

// fields indexes the entries of a mapping node by key.
func fields(n *yaml.Node) map[string]*yaml.Node {
	ps := pairs(n)
	m := make(map[string]*yaml.Node, len(ps))
	for _, p := range ps {
		m[p.key] = p.value
	}
	return m
}

// scalar returns the string value of a non-null scalar node.
func scalar(n *yaml.Node) (string, bool) {
	n = resolve(n)
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() == "!!null" {
		return "", false
	}
	return n.Value, true
}

func str(n *yaml.Node) string {
	s, _ := scalar(n)
	return s
}

// decodeMap decodes a mapping node into a generic map. Anything else is nil.
func decodeMap(n *yaml.Node) map[string]any {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	var m map[string]any
	if err := n.Decode(&m); err != nil {
		return nil
	}
	if m == nil {
		m = map[string]any{}
	}
	return m
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "a document"
	case yaml.SequenceNode:
		return "a sequence"
	case yaml.MappingNode:
		return "a mapping"
	case yaml.ScalarNode:
		return "a scalar"
	case yaml.AliasNode:
		return "an alias"
	}
	return "empty"
}

// ---------------------------------------------------------------------------
// Section parsers
// ---------------------------------------------------------------------------

func parseFunctions(n *yaml.Node) []Function {
	var fns []Function
	for _, kv := range pairs(n) {
		fns = append(fns, Function{Name: kv.key, Body: parseBlock(kv.value)})
	}
	return fns
}

// parseBlock returns nil for empty or wrongly shaped blocks.
func parseBlock(n *yaml.Node) Block {
	n = resolve(n)
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.MappingNode:
		if len(n.Content) == 0 {
			return nil
		}
		return SingleCommand{Command: parseCommand(n)}
	case yaml.SequenceNode:
		if len(n.Content) == 0 {
			return nil
		}
		cmds := make(CommandList, 0, len(n.Content))
		for _, item := range n.Content {
			cmds = append(cmds, parseCommand(item))
		}
		return cmds
	}
	return nil
}

func parseCommand(n *yaml.Node) Command {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return Unrecognized{}
	}
	f := fields(n)
	if name, ok := scalar(f["func"]); ok {
		return FuncCall{Func: name, Vars: decodeMap(f["vars"])}
	}
	if name, ok := scalar(f["command"]); ok {
		return Invocation{
			Name:        name,
			Params:      decodeMap(f["params"]),
			Type:        str(f["type"]),
			DisplayName: str(f["display_name"]),
		}
	}
	return Unrecognized{}
}

func parseHooks(f map[string]*yaml.Node) Hooks {
	return Hooks{
		SetupTask:     parseBlock(f["setup_task"]),
		TeardownTask:  parseBlock(f["teardown_task"]),
		SetupGroup:    parseBlock(f["setup_group"]),
		TeardownGroup: parseBlock(f["teardown_group"]),
		Timeout:       parseBlock(f["timeout"]),
	}
}

func parseTasks(n *yaml.Node) []Task {
	n = resolve(n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	var tasks []Task
	for _, item := range n.Content {
		if resolve(item).Kind != yaml.MappingNode {
			continue
		}
		f := fields(item)
		tasks = append(tasks, Task{
			Name:      str(f["name"]),
			Commands:  parseBlock(f["commands"]),
			Hooks:     parseHooks(f),
			DependsOn: parseNameList(f["depends_on"]),
			Tags:      parseStrings(f["tags"]),
		})
	}
	return tasks
}

func parseTaskGroups(n *yaml.Node) []TaskGroup {
	n = resolve(n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	var groups []TaskGroup
	for _, item := range n.Content {
		if resolve(item).Kind != yaml.MappingNode {
			continue
		}
		f := fields(item)
		groups = append(groups, TaskGroup{
			Name:  str(f["name"]),
			Hooks: parseHooks(f),
			Tasks: parseStrings(f["tasks"]),
		})
	}
	return groups
}

func parseBuildVariants(n *yaml.Node) []BuildVariant {
	n = resolve(n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	var variants []BuildVariant
	for _, item := range n.Content {
		if resolve(item).Kind != yaml.MappingNode {
			continue
		}
		f := fields(item)
		variants = append(variants, BuildVariant{
			Name:        str(f["name"]),
			DisplayName: str(f["display_name"]),
			Tasks:       parseNameList(f["tasks"]),
		})
	}
	return variants
}

func parseParameters(n *yaml.Node) []Parameter {
	n = resolve(n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	var params []Parameter
	for _, item := range n.Content {
		if resolve(item).Kind != yaml.MappingNode {
			continue
		}
		f := fields(item)
		params = append(params, Parameter{
			Key:         str(f["key"]),
			Value:       str(f["value"]),
			Description: str(f["description"]),
		})
	}
	return params
}

// parseNameList reads a list whose entries are either plain names or
// mappings carrying a "name" key.
func parseNameList(n *yaml.Node) []string {
	n = resolve(n)
	if n == nil {
		return nil
	}
	if s, ok := scalar(n); ok {
		return []string{s}
	}
	if n.Kind != yaml.SequenceNode {
		return nil
	}
	var names []string
	for _, item := range n.Content {
		item = resolve(item)
		if s, ok := scalar(item); ok {
			names = append(names, s)
			continue
		}
		if name, ok := scalar(fields(item)["name"]); ok {
			names = append(names, name)
		}
	}
	return names
}

func parseStrings(n *yaml.Node) []string {
	n = resolve(n)
	if n == nil || n.Kind != yaml.SequenceNode {
		return nil
	}
	var out []string
	for _, item := range n.Content {
		if s, ok := scalar(item); ok {
			out = append(out, s)
		}
	}
	return out
}
