package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/mbodiai/pyinfer/pkg/driver"
	"github.com/mbodiai/pyinfer/pkg/inference"
	"github.com/mbodiai/pyinfer/pkg/parser"
)

func runInfer(args []string) int {
	fs := flag.NewFlagSet("infer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to "+driver.ConfigFileName)
	debug := fs.Bool("debug", false, "log guard activity")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 3 {
		fmt.Fprintln(stderr, "infer expects <file.py> <line> <column>")
		return 1
	}
	file := fs.Arg(0)
	line, lerr := strconv.Atoi(fs.Arg(1))
	col, cerr := strconv.Atoi(fs.Arg(2))
	if lerr != nil || cerr != nil || line < 1 || col < 1 {
		fmt.Fprintf(stderr, "invalid position %s:%s\n", fs.Arg(1), fs.Arg(2))
		return 1
	}

	cfg, err := driver.ResolveConfig(*configPath, filepath.Dir(file))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	mp, err := parser.NewModuleParser()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer mp.Close()

	// Siblings are loaded so imports of neighbouring modules resolve.
	prog, err := driver.LoadPaths(mp, []string{filepath.Dir(file), file}, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	mod, ok := moduleAt(prog, file)
	if !ok {
		printFailures(prog)
		fmt.Fprintf(stderr, "error: could not load %s\n", file)
		return 1
	}

	ev, err := newEvaluator(cfg, prog, newLogger(*debug || cfg.Debug))
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	stmt, values := ev.InferPosition(mod, line, col)
	if stmt == nil {
		fmt.Fprintf(stderr, "no statement at %s:%d:%d\n", displayPath(mod.Path), line, col)
		return 1
	}
	printValues(values)
	return 0
}

func printValues(values []inference.Value) {
	if len(values) == 0 {
		fmt.Fprintln(stdout, "no values")
		return
	}
	lines := make([]string, 0, len(values))
	for _, v := range values {
		lines = append(lines, inference.Describe(v))
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(stdout, l)
	}
}
