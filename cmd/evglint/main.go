package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"evglint/internal/config"
	"evglint/internal/lint"
	"evglint/internal/logging"
	"evglint/internal/project"
	"evglint/internal/report"
	"evglint/internal/rules"
	"evglint/internal/settings"
)

// errLintFailed reports lint errors or unreadable files. The details have
// already been printed when it is returned.
var errLintFailed = errors.New("lint failed")

// session is the state shared by every subcommand.
type session struct {
	ctx      context.Context
	settings *settings.Settings
	stdout   io.Writer
	stderr   io.Writer
}

// command describes a CLI subcommand.
type command struct {
	name  string
	short string
	usage string
	long  string
	run   func(s *session, args []string) error
}

var commands = []command{
	{
		name:  "lint",
		short: "Lint evergreen project files",
		usage: "evglint lint [-c <config>] [-report <dir>] [file ...]",
		long: `Lint the files listed in the lint configuration, or the given files using
the configuration's rules.

Errors are printed as "<file>: <rule>: <error>". The command exits non-zero
if any error is found or any file cannot be read. Files matching a
permissions.deny pattern in .evglint/settings.yaml are skipped.

Flags:
  -c <config>      lint configuration (default from settings, .evergreen-lint.yml)
  -report <dir>    also write a markdown report of the results to dir
`,
		run: runLint,
	},
	{
		name:  "stub",
		short: "Print a stub lint configuration",
		usage: "evglint stub",
		long: `Print a lint configuration that enables every rule with its default
parameters. Comment out a rule to disable it.
`,
		run: runStub,
	},
	{
		name:  "init",
		short: "Create a lint configuration interactively",
		usage: "evglint init [path]",
		long: `Prompt for the files to lint and a help URL, then write a stub lint
configuration to path (default .evergreen-lint.yml).

Errors if the file already exists.
`,
		run: runInit,
	},
	{
		name:  "rules",
		short: "List available rules",
		usage: "evglint rules",
		long: `List every rule with its description and default parameters.
`,
		run: runRules,
	},
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "evglint: evergreen configuration linter\n\n")
	fmt.Fprintf(w, "Usage:\n  evglint [-log-level <level>] [-log-format <format>] <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintf(w, "\nRun 'evglint help <command>' for details on a specific command.\n")
}

func printCommandHelp(w io.Writer, name string) {
	for _, cmd := range commands {
		if cmd.name == name {
			fmt.Fprintf(w, "Usage: %s\n\n%s", cmd.usage, cmd.long)
			return
		}
	}
	fmt.Fprintf(w, "evglint: unknown command %q\n\nRun 'evglint help' for usage.\n", name)
}

func dispatch(args []string, stdout, stderr io.Writer) error {
	st, err := settings.Load(".")
	if err != nil {
		return err
	}

	global := flag.NewFlagSet("evglint", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { printUsage(stdout) }
	level := global.String("log-level", st.Log.Level, "log level: debug, info, warn or error")
	format := global.String("log-format", st.Log.Format, "log format: text or json")
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	args = global.Args()

	if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
		printUsage(stdout)
		return nil
	}
	if args[0] == "help" {
		if len(args) >= 2 {
			printCommandHelp(stdout, args[1])
		} else {
			printUsage(stdout)
		}
		return nil
	}

	logger, err := logging.New(*level, *format, stderr)
	if err != nil {
		return err
	}
	s := &session{
		ctx:      logging.WithLogger(context.Background(), logger),
		settings: st,
		stdout:   stdout,
		stderr:   stderr,
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(s, args[1:])
		}
	}
	return fmt.Errorf("unknown command %q\n\nRun 'evglint help' for usage.", args[0])
}

// ---------------------------------------------------------------------------
// lint
// ---------------------------------------------------------------------------

func runLint(s *session, args []string) error {
	fs := flag.NewFlagSet("lint", flag.ContinueOnError)
	fs.SetOutput(s.stderr)
	configPath := fs.String("c", s.settings.Config, "lint configuration file")
	reportDir := fs.String("report", "", "also write a markdown report to this directory")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("usage: evglint lint [-c <config>] [-report <dir>] [file ...]")
	}

	cfg, err := config.LoadFile(*configPath, rules.Registry())
	if err != nil {
		return err
	}
	files := cfg.Files
	if fs.NArg() > 0 {
		files = nil
		for _, f := range fs.Args() {
			abs, err := filepath.Abs(f)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", f, err)
			}
			files = append(files, abs)
		}
	}

	logger := logging.FromContext(s.ctx)
	wd, _ := os.Getwd()
	var total, withErrs int
	var loadErrs []error
	var results []report.FileResult
	for _, file := range files {
		name := displayPath(wd, file)
		if s.settings.IsDenied(name) {
			logger.Info("skipping denied file", slog.String("file", name))
			continue
		}

		p, err := project.Load(file)
		if err != nil {
			fmt.Fprintf(s.stderr, "%s: %v\n", name, err)
			loadErrs = append(loadErrs, fmt.Errorf("%s: %w", name, err))
			results = append(results, report.FileResult{Path: name, LoadError: err})
			continue
		}

		findings := lint.Run(s.ctx, p, cfg.Rules)
		logger.Debug("linted file", slog.String("file", name), slog.Int("errors", len(findings)))
		for _, f := range findings {
			fmt.Fprintf(s.stdout, "%s: %s\n", name, f)
		}
		results = append(results, report.FileResult{Path: name, Findings: findings})
		if len(findings) > 0 {
			total += len(findings)
			withErrs++
		}
	}

	if *reportDir != "" {
		b, err := report.Generate(results, cfg.HelpURL)
		if err != nil {
			return err
		}
		if err := report.Write(b, *reportDir); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		logger.Info("wrote report", slog.String("dir", *reportDir), slog.Int("files", len(results)))
	}

	if total > 0 {
		fmt.Fprintf(s.stdout, "\n%d lint error(s) found in %d file(s).\n", total, withErrs)
		fmt.Fprintf(s.stdout, "For help resolving lint errors, see: %s\n", cfg.HelpURL)
	}
	if len(loadErrs) > 0 {
		return fmt.Errorf("%w: %w", errLintFailed, errors.Join(loadErrs...))
	}
	if total > 0 {
		return errLintFailed
	}
	return nil
}

// displayPath returns file relative to wd when it lies beneath it, in
// forward-slash form.
func displayPath(wd, file string) string {
	if wd != "" {
		rel, err := filepath.Rel(wd, file)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(file)
}

// ---------------------------------------------------------------------------
// stub
// ---------------------------------------------------------------------------

func runStub(s *session, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: evglint stub")
	}
	fmt.Fprint(s.stdout, config.Stub(nil, ""))
	return nil
}

// ---------------------------------------------------------------------------
// init
// ---------------------------------------------------------------------------

// initQuestions are asked by runInit.
var initQuestions = []question{
	{
		key:         "files",
		prompt:      "Files to lint (comma separated)",
		placeholder: strings.Join(config.DefaultStubFiles, ", "),
		validate:    validateFiles,
	},
	{
		key:         "help_url",
		prompt:      "Help URL shown with lint errors",
		placeholder: config.DefaultHelpURL,
		validate:    validateHelpURL,
	},
}

// prompt asks questions interactively. Replaced in tests.
var prompt = promptQuestions

func runInit(s *session, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: evglint init [path]")
	}
	path := s.settings.Config
	if len(args) == 1 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	answers, err := prompt(initQuestions)
	if err != nil {
		return fmt.Errorf("prompt: %w", err)
	}
	files := splitFiles(answers["files"])

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	stub := config.Stub(files, strings.TrimSpace(answers["help_url"]))
	if err := os.WriteFile(path, []byte(stub), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	logging.FromContext(s.ctx).Info("wrote lint configuration", slog.String("path", path))
	fmt.Fprintf(s.stdout, "created %s\n", path)
	return nil
}

// ---------------------------------------------------------------------------
// rules
// ---------------------------------------------------------------------------

func runRules(s *session, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: evglint rules")
	}
	for _, r := range rules.All() {
		fmt.Fprintf(s.stdout, "%s\n    %s\n", r.Name(), r.Description())
		defaults := r.Defaults()
		for _, k := range defaults.Keys() {
			fmt.Fprintf(s.stdout, "    %s: %v\n", k, defaults[k])
		}
	}
	return nil
}

func main() {
	err := dispatch(os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, errLintFailed) {
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}
