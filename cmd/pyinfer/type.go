package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mbodiai/pyinfer/pkg/driver"
	"github.com/mbodiai/pyinfer/pkg/parser"
	"github.com/mbodiai/pyinfer/pkg/typer"
)

func runType(args []string) int {
	fs := flag.NewFlagSet("type", flag.ContinueOnError)
	fs.SetOutput(stderr)
	overwrite := fs.Bool("overwrite", false, "rewrite the input files instead of writing <name>_typed.py")
	verbose := fs.Bool("v", false, "print the declarations found")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "type expects at least one file")
		return 1
	}

	mp, err := parser.NewModuleParser()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer mp.Close()

	status := 0
	for _, file := range fs.Args() {
		out, err := typeFile(mp, file, *overwrite, *verbose)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			status = 1
			continue
		}
		fmt.Fprintf(stderr, "wrote %s\n", displayPath(out))
	}
	return status
}

func typeFile(mp *parser.ModuleParser, file string, overwrite, verbose bool) (string, error) {
	cfg, err := driver.ResolveConfig("", filepath.Dir(file))
	if err != nil {
		return "", err
	}
	prog, err := driver.LoadPaths(mp, []string{file}, cfg)
	if err != nil {
		return "", err
	}
	mod, ok := moduleAt(prog, file)
	if !ok {
		if len(prog.Failures) > 0 {
			return "", prog.Failures[0].Err
		}
		return "", fmt.Errorf("could not load %s", file)
	}
	ev, err := newEvaluator(cfg, prog, newLogger(cfg.Debug))
	if err != nil {
		return "", err
	}

	decls := typer.Analyse(ev, mod)
	if verbose {
		for _, d := range decls {
			for _, l := range d.Locals {
				fmt.Fprintf(stdout, "%s:%d: %s %s\n", displayPath(mod.Path), d.Position.Line, l.Name, l.Type)
			}
			if d.Returns != "" {
				fmt.Fprintf(stdout, "%s:%d: returns %s\n", displayPath(mod.Path), d.Position.Line, d.Returns)
			}
		}
	}

	source, err := os.ReadFile(mod.Path)
	if err != nil {
		return "", err
	}
	target := mod.Path
	if !overwrite {
		target = strings.TrimSuffix(mod.Path, ".py") + "_typed.py"
	}
	if err := os.WriteFile(target, typer.Inject(source, decls), 0o644); err != nil {
		return "", err
	}
	return target, nil
}
