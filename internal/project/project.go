// Package project provides a typed, read-only view of an Evergreen project
// configuration document.
//
// Evergreen documents are semi-structured: a command step is either a direct
// command or a function call, and a function body (or hook) is either a single
// command mapping or an ordered list of them. Both distinctions are modelled as
// closed sum types ([Command] and [Block]) so consumers switch on the variant
// instead of probing for keys.
//
// Parsing is lenient: missing or wrongly shaped sections produce empty fields,
// never errors. Only YAML that fails to parse, or a document whose root is not
// a mapping, is rejected.
package project

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Command is one step of a command list: an [Invocation], a [FuncCall] or an
// [Unrecognized] step.
type Command interface {
	isCommand()
}

// Invocation is a direct command step, e.g. "command: subprocess.exec".
type Invocation struct {
	Name        string
	Params      map[string]any
	Type        string
	DisplayName string
}

// FuncCall is a step that calls a named function, optionally with vars.
type FuncCall struct {
	Func string
	Vars map[string]any
}

// Unrecognized is a step that is neither a command nor a function call. It is
// kept so that indices into a CommandList match the document.
type Unrecognized struct{}

func (Invocation) isCommand()   {}
func (FuncCall) isCommand()     {}
func (Unrecognized) isCommand() {}

// Param returns the named parameter of the invocation.
func (c Invocation) Param(key string) (any, bool) {
	v, ok := c.Params[key]
	return v, ok
}

// Block is the body of a function or hook: a [SingleCommand] (dict form) or a
// [CommandList] (list form).
type Block interface {
	isBlock()
}

// SingleCommand is a block defined as one command mapping.
type SingleCommand struct {
	Command Command
}

// CommandList is a block defined as an ordered sequence of commands.
type CommandList []Command

func (SingleCommand) isBlock() {}
func (CommandList) isBlock()   {}

// Function is a named, reusable block.
type Function struct {
	Name string
	Body Block
}

// Hooks are the setup, teardown and timeout blocks shared by tasks and task
// groups. Absent hooks are nil.
type Hooks struct {
	SetupTask     Block
	TeardownTask  Block
	SetupGroup    Block
	TeardownGroup Block
	Timeout       Block
}

// Task is one entry of the "tasks" section.
type Task struct {
	Name      string
	Commands  Block
	Hooks     Hooks
	DependsOn []string
	Tags      []string
}

// TaskGroup is one entry of the "task_groups" section.
type TaskGroup struct {
	Name  string
	Hooks Hooks
	Tasks []string
}

// BuildVariant is one entry of the "buildvariants" section.
type BuildVariant struct {
	Name        string
	DisplayName string
	Tasks       []string
}

// Parameter is one entry of the "parameters" section.
type Parameter struct {
	Key         string
	Value       string
	Description string
}

// Project is the typed view of one Evergreen configuration document.
type Project struct {
	Functions     []Function
	Tasks         []Task
	TaskGroups    []TaskGroup
	BuildVariants []BuildVariant
	Parameters    []Parameter
	Pre           Block
	Post          Block
	Timeout       Block
}

// Load reads and parses the project file at path.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse builds a Project from YAML bytes. Anchors, aliases and merge keys are
// resolved.
func Parse(data []byte) (*Project, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return &Project{}, nil
		}
		root = root.Content[0]
	}
	if root.Kind == 0 {
		return &Project{}, nil
	}
	root = resolve(root)
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse project: document root is %s, expected a mapping", kindName(root.Kind))
	}

	var p Project
	for _, kv := range pairs(root) {
		switch kv.key {
		case "functions":
			p.Functions = parseFunctions(kv.value)
		case "tasks":
			p.Tasks = parseTasks(kv.value)
		case "task_groups":
			p.TaskGroups = parseTaskGroups(kv.value)
		case "buildvariants":
			p.BuildVariants = parseBuildVariants(kv.value)
		case "parameters":
			p.Parameters = parseParameters(kv.value)
		case "pre":
			p.Pre = parseBlock(kv.value)
		case "post":
			p.Post = parseBlock(kv.value)
		case "timeout":
			p.Timeout = parseBlock(kv.value)
		}
	}
	return &p, nil
}
