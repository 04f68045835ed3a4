package project

import (
	"fmt"
	"iter"
	"slices"
)

// Top-level sections that may be skipped while walking.
const (
	SectionFunctions  = "functions"
	SectionTaskGroups = "task_groups"
	SectionTasks      = "tasks"
	SectionPre        = "pre"
	SectionPost       = "post"
	SectionTimeout    = "timeout"
)

// CommandSite is a direct command together with where it was found.
type CommandSite struct {
	// Context is a human-friendly description of the command's location.
	Context string
	Command Invocation
	// Block is the whole block the command belongs to.
	Block Block
}

// CallSite is a function call together with where it was found.
type CallSite struct {
	Context string
	Call    FuncCall
	Block   Block
}

type located struct {
	context string
	block   Block
}

// CommandLists yields every non-empty block of the document exactly once:
// function bodies, task group hooks, task commands and hooks, then the global
// pre, post and timeout blocks.
func (p *Project) CommandLists(skip ...string) iter.Seq2[string, Block] {
	return func(yield func(string, Block) bool) {
		for _, lb := range p.blocks(skip) {
			if !yield(lb.context, lb.block) {
				return
			}
		}
	}
}

// Commands yields every direct command in the document. Function calls and
// unrecognized steps are not yielded.
func (p *Project) Commands(skip ...string) iter.Seq[CommandSite] {
	return func(yield func(CommandSite) bool) {
		for _, lb := range p.blocks(skip) {
			switch b := lb.block.(type) {
			case SingleCommand:
				if c, ok := b.Command.(Invocation); ok {
					if !yield(CommandSite{Context: lb.context + ", command", Command: c, Block: b}) {
						return
					}
				}
			case CommandList:
				for idx, cmd := range b {
					c, ok := cmd.(Invocation)
					if !ok {
						continue
					}
					site := CommandSite{Context: fmt.Sprintf("%s, command %d", lb.context, idx), Command: c, Block: b}
					if !yield(site) {
						return
					}
				}
			}
		}
	}
}

// FunctionCalls yields every function call in the document. Function
// definitions themselves are not yielded.
func (p *Project) FunctionCalls(skip ...string) iter.Seq[CallSite] {
	return func(yield func(CallSite) bool) {
		for _, lb := range p.blocks(skip) {
			switch b := lb.block.(type) {
			case SingleCommand:
				if c, ok := b.Command.(FuncCall); ok {
					ctx := fmt.Sprintf("%s, function call '%s'", lb.context, c.Func)
					if !yield(CallSite{Context: ctx, Call: c, Block: b}) {
						return
					}
				}
			case CommandList:
				for idx, cmd := range b {
					c, ok := cmd.(FuncCall)
					if !ok {
						continue
					}
					ctx := fmt.Sprintf("%s, command %d (function call: '%s')", lb.context, idx, c.Func)
					if !yield(CallSite{Context: ctx, Call: c, Block: b}) {
						return
					}
				}
			}
		}
	}
}

func (p *Project) blocks(skip []string) []located {
	var out []located
	add := func(context string, b Block) {
		if !empty(b) {
			out = append(out, located{context: context, block: b})
		}
	}
	process := func(section string) bool { return !slices.Contains(skip, section) }

	if process(SectionFunctions) {
		for _, fn := range p.Functions {
			add(fmt.Sprintf("Function '%s'", fn.Name), fn.Body)
		}
	}
	if process(SectionTaskGroups) {
		for _, tg := range p.TaskGroups {
			prefix := fmt.Sprintf("task_group '%s'", tg.Name)
			addHooks(add, prefix, tg.Hooks)
		}
	}
	if process(SectionTasks) {
		for _, t := range p.Tasks {
			prefix := fmt.Sprintf("Task '%s'", t.Name)
			add(prefix, t.Commands)
			addHooks(add, prefix, t.Hooks)
		}
	}
	if process(SectionPre) {
		add("Global pre", p.Pre)
	}
	if process(SectionPost) {
		add("Global post", p.Post)
	}
	if process(SectionTimeout) {
		add("Global timeout", p.Timeout)
	}
	return out
}

func addHooks(add func(string, Block), prefix string, h Hooks) {
	add(prefix+", setup_task", h.SetupTask)
	add(prefix+", teardown_task", h.TeardownTask)
	add(prefix+", setup_group", h.SetupGroup)
	add(prefix+", teardown_group", h.TeardownGroup)
	add(prefix+", timeout", h.Timeout)
}

func empty(b Block) bool {
	switch b := b.(type) {
	case SingleCommand:
		return b.Command == nil
	case CommandList:
		return len(b) == 0
	}
	return true
}

// Dependencies returns the set of task names the task depends on.
func (t Task) Dependencies() map[string]struct{} {
	deps := make(map[string]struct{}, len(t.DependsOn))
	for _, d := range t.DependsOn {
		deps[d] = struct{}{}
	}
	return deps
}

// CallsFunction reports whether the task's command list calls the named
// function.
func (t Task) CallsFunction(name string) bool {
	switch b := t.Commands.(type) {
	case SingleCommand:
		c, ok := b.Command.(FuncCall)
		return ok && c.Func == name
	case CommandList:
		for _, cmd := range b {
			if c, ok := cmd.(FuncCall); ok && c.Func == name {
				return true
			}
		}
	}
	return false
}

// HasTag reports whether the task carries the tag.
func (t Task) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}
