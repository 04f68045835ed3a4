package project_test

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"evglint/internal/project"
)

const sample = `
functions:
  "f_expansions_write": &f_expansions_write
    command: expansions.write
    params:
      file: expansions.yml
      redacted: true
  "f_run":
    - *f_expansions_write
    - command: subprocess.exec
      params:
        binary: bash
        args: ["src/evergreen/run.sh"]

pre:
  - func: f_expansions_write

task_groups:
  - name: tg
    setup_group:
      - func: f_run
        vars:
          a: b
    tasks: [t1]

tasks:
  - name: t1
    tags: ["lint", "quick"]
    depends_on:
      - compile
      - name: archive
    commands:
      - func: f_run
      - command: shell.exec
        params:
          script: echo hi
      - just: garbage
    timeout:
      command: timeout.update

buildvariants:
  - name: linux
    display_name: Linux
    tasks:
      - name: t1
      - t2

parameters:
  - key: patch_flag
    value: "true"
    description: something
`

func mustParse(t *testing.T, src string) *project.Project {
	t.Helper()
	p, err := project.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return p
}

func TestParseFunctionsKeepOrderAndForm(t *testing.T) {
	p := mustParse(t, sample)

	if len(p.Functions) != 2 {
		t.Fatalf("expected 2 functions, got %d", len(p.Functions))
	}
	if p.Functions[0].Name != "f_expansions_write" || p.Functions[1].Name != "f_run" {
		t.Errorf("function order not preserved: %+v", p.Functions)
	}

	single, ok := p.Functions[0].Body.(project.SingleCommand)
	if !ok {
		t.Fatalf("expected dict-form body, got %T", p.Functions[0].Body)
	}
	inv, ok := single.Command.(project.Invocation)
	if !ok || inv.Name != "expansions.write" {
		t.Fatalf("expected expansions.write invocation, got %#v", single.Command)
	}
	if inv.Params["file"] != "expansions.yml" || inv.Params["redacted"] != true {
		t.Errorf("unexpected params: %v", inv.Params)
	}

	list, ok := p.Functions[1].Body.(project.CommandList)
	if !ok {
		t.Fatalf("expected list-form body, got %T", p.Functions[1].Body)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(list))
	}
	// The alias is resolved to the anchored command.
	if c, ok := list[0].(project.Invocation); !ok || c.Name != "expansions.write" {
		t.Errorf("alias not resolved: %#v", list[0])
	}
}

func TestParseTaskDetails(t *testing.T) {
	p := mustParse(t, sample)
	if len(p.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(p.Tasks))
	}
	task := p.Tasks[0]

	if diff := cmp.Diff([]string{"compile", "archive"}, task.DependsOn); diff != "" {
		t.Errorf("depends_on mismatch (-want +got):\n%s", diff)
	}
	if !task.HasTag("quick") || task.HasTag("slow") {
		t.Errorf("unexpected tags: %v", task.Tags)
	}
	if !task.CallsFunction("f_run") || task.CallsFunction("f_expansions_write") {
		t.Error("CallsFunction mismatch")
	}
	if _, ok := task.Dependencies()["archive"]; !ok {
		t.Error("Dependencies missing archive")
	}

	cmds, ok := task.Commands.(project.CommandList)
	if !ok || len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %#v", task.Commands)
	}
	if _, ok := cmds[2].(project.Unrecognized); !ok {
		t.Errorf("expected unrecognized step, got %#v", cmds[2])
	}
	if _, ok := task.Hooks.Timeout.(project.SingleCommand); !ok {
		t.Errorf("expected dict-form timeout hook, got %#v", task.Hooks.Timeout)
	}
}

func TestParseVariantsAndParameters(t *testing.T) {
	p := mustParse(t, sample)

	want := []project.BuildVariant{{Name: "linux", DisplayName: "Linux", Tasks: []string{"t1", "t2"}}}
	if diff := cmp.Diff(want, p.BuildVariants); diff != "" {
		t.Errorf("buildvariants mismatch (-want +got):\n%s", diff)
	}
	wantParams := []project.Parameter{{Key: "patch_flag", Value: "true", Description: "something"}}
	if diff := cmp.Diff(wantParams, p.Parameters); diff != "" {
		t.Errorf("parameters mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFuncWinsOverCommand(t *testing.T) {
	p := mustParse(t, `
pre:
  - func: f_a
    command: shell.exec
    vars: {x: 1}
`)
	list := p.Pre.(project.CommandList)
	call, ok := list[0].(project.FuncCall)
	if !ok {
		t.Fatalf("expected FuncCall, got %#v", list[0])
	}
	if call.Func != "f_a" || call.Vars["x"] != 1 {
		t.Errorf("unexpected call: %#v", call)
	}
}

func TestParseMergeKeys(t *testing.T) {
	p := mustParse(t, `
base: &base
  command: subprocess.exec
  params: {binary: bash}
functions:
  f_a:
    <<: *base
    type: test
`)
	inv := p.Functions[0].Body.(project.SingleCommand).Command.(project.Invocation)
	if inv.Name != "subprocess.exec" || inv.Type != "test" {
		t.Errorf("merge keys not applied: %#v", inv)
	}
}

func TestParseSelfMerge(t *testing.T) {
	p := mustParse(t, `
functions:
  f_a: &a
    command: shell.exec
    <<: *a
  f_b: &b
    command: expansions.write
    <<: {type: setup, <<: *b}
`)
	for i, want := range []string{"shell.exec", "expansions.write"} {
		inv, ok := p.Functions[i].Body.(project.SingleCommand).Command.(project.Invocation)
		if !ok || inv.Name != want {
			t.Errorf("function %d: unexpected body %#v", i, p.Functions[i].Body)
		}
	}
	inv := p.Functions[1].Body.(project.SingleCommand).Command.(project.Invocation)
	if inv.Type != "setup" {
		t.Errorf("nested merge not applied: %#v", inv)
	}
}

func TestParseLenient(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"functions not a mapping", "functions: [1, 2]"},
		{"tasks not a list", "tasks: {name: x}"},
		{"task entries not mappings", "tasks: [a, b]"},
		{"null sections", "functions:\ntasks:\npre:\n"},
		{"params not a mapping", "pre:\n  - command: subprocess.exec\n    params: nope\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := project.Parse([]byte(tc.src)); err != nil {
				t.Errorf("Parse returned error: %v", err)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"- a\n- b\n", "just a string", "a: [unclosed"} {
		if _, err := project.Parse([]byte(src)); err == nil {
			t.Errorf("expected error for %q", src)
		}
	}
}

func TestCommandListsOrder(t *testing.T) {
	p := mustParse(t, sample+`
post:
  - command: shell.exec
`)
	var got []string
	for ctx := range p.CommandLists() {
		got = append(got, ctx)
	}
	want := []string{
		"Function 'f_expansions_write'",
		"Function 'f_run'",
		"task_group 'tg', setup_group",
		"Task 't1'",
		"Task 't1', timeout",
		"Global pre",
		"Global post",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CommandLists mismatch (-want +got):\n%s", diff)
	}
}

func TestCommandListsSkip(t *testing.T) {
	p := mustParse(t, sample)
	for ctx := range p.CommandLists(project.SectionFunctions, project.SectionTasks) {
		if ctx != "task_group 'tg', setup_group" && ctx != "Global pre" {
			t.Errorf("unexpected context %q", ctx)
		}
	}
}

func TestCommandsContexts(t *testing.T) {
	p := mustParse(t, sample)
	var got []string
	for site := range p.Commands() {
		got = append(got, site.Context+" => "+site.Command.Name)
	}
	want := []string{
		"Function 'f_expansions_write', command => expansions.write",
		"Function 'f_run', command 0 => expansions.write",
		"Function 'f_run', command 1 => subprocess.exec",
		"Task 't1', command 1 => shell.exec",
		"Task 't1', timeout, command => timeout.update",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Commands mismatch (-want +got):\n%s", diff)
	}
}

func TestFunctionCallsContexts(t *testing.T) {
	p := mustParse(t, sample)
	var got []string
	for site := range p.FunctionCalls() {
		got = append(got, site.Context)
	}
	want := []string{
		"task_group 'tg', setup_group, command 0 (function call: 'f_run')",
		"Task 't1', command 0 (function call: 'f_run')",
		"Global pre, command 0 (function call: 'f_expansions_write')",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FunctionCalls mismatch (-want +got):\n%s", diff)
	}
}

func TestFunctionCallsEarlyStop(t *testing.T) {
	p := mustParse(t, sample)
	var n int
	for range p.FunctionCalls() {
		n++
		break
	}
	if n != 1 {
		t.Errorf("expected iteration to stop after 1, got %d", n)
	}
	if !slices.ContainsFunc(p.Functions, func(f project.Function) bool { return f.Name == "f_run" }) {
		t.Error("f_run missing")
	}
}
