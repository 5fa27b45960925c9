package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mbodiai/pyinfer/pkg/ast"
	"github.com/mbodiai/pyinfer/pkg/driver"
	"github.com/mbodiai/pyinfer/pkg/inference"
)

const cliToolVersion = "pyinfer 0.0.0-dev"

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "--help", "-h", "help":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(stdout, cliToolVersion)
		return 0
	case "lint":
		return runLint(args[1:])
	case "infer":
		return runInfer(args[1:])
	case "type":
		return runType(args[1:])
	case "repl":
		return runRepl(args[1:])
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Fprintln(stderr, "Usage:")
	fmt.Fprintln(stderr, "  pyinfer lint [--config file] [--rev revision] [--jobs n] [--debug] [path ...]")
	fmt.Fprintln(stderr, "  pyinfer infer [--config file] <file.py> <line> <column>")
	fmt.Fprintln(stderr, "  pyinfer type [--overwrite] [-v] <file.py> ...")
	fmt.Fprintln(stderr, "  pyinfer repl")
	fmt.Fprintln(stderr, "  pyinfer version")
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

func newEvaluator(cfg driver.Config, importer inference.Importer, logger *slog.Logger) (*inference.Evaluator, error) {
	return inference.New(
		inference.WithSettings(cfg.Recursion),
		inference.WithImporter(importer),
		inference.WithLogger(logger),
	)
}

// moduleAt finds the loaded module read from file.
func moduleAt(prog *driver.Program, file string) (*ast.Module, bool) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, false
	}
	for _, mod := range prog.Modules() {
		if mod.Path == abs {
			return mod, true
		}
	}
	return nil, false
}

// printFailures reports files that could not be loaded. Their errors
// already name the file.
func printFailures(prog *driver.Program) {
	for _, f := range prog.Failures {
		fmt.Fprintln(stderr, f.Err)
	}
}

// displayPath shortens p relative to the working directory when it lives
// below it.
func displayPath(p string) string {
	wd, err := os.Getwd()
	if err != nil || !filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(wd, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return rel
}
