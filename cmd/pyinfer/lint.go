package main

import (
	"flag"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/mbodiai/pyinfer/pkg/ast"
	"github.com/mbodiai/pyinfer/pkg/driver"
	"github.com/mbodiai/pyinfer/pkg/inference"
	"github.com/mbodiai/pyinfer/pkg/parser"
)

type lintResult struct {
	module      *ast.Module
	diagnostics []inference.Diagnostic
	err         error
}

func runLint(args []string) int {
	fs := flag.NewFlagSet("lint", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to "+driver.ConfigFileName)
	rev := fs.String("rev", "", "lint the files of a git revision instead of the working tree")
	jobs := fs.Int("jobs", runtime.NumCPU(), "modules analyzed in parallel")
	debug := fs.Bool("debug", false, "log guard activity and report recursion cuts")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	paths := fs.Args()
	if len(paths) == 0 {
		paths = []string{"."}
	}

	cfg, err := driver.ResolveConfig(*configPath, paths[0])
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	if *debug {
		cfg.Debug = true
	}
	logger := newLogger(cfg.Debug)

	mp, err := parser.NewModuleParser()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer mp.Close()

	var prog *driver.Program
	if *rev != "" {
		prog, err = driver.LoadGitRevision(mp, paths[0], *rev, cfg)
	} else {
		prog, err = driver.LoadPaths(mp, paths, cfg)
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	printFailures(prog)

	results := analyzeProgram(prog, cfg, logger, *jobs)
	errorsFound := 0
	for _, res := range results {
		if res.err != nil {
			fmt.Fprintf(stderr, "%s: %v\n", displayPath(res.module.Path), res.err)
			errorsFound++
			continue
		}
		for _, d := range res.diagnostics {
			if d.Severity == inference.SeverityInfo && !cfg.Debug {
				continue
			}
			if d.Severity == inference.SeverityError {
				errorsFound++
			}
			pos := d.Node.Span().Start
			fmt.Fprintf(stdout, "%s:%d:%d: %s: %s\n", displayPath(res.module.Path), pos.Line, pos.Column, d.Severity, d.Message)
		}
	}
	logger.Debug("lint finished", "modules", prog.Len(), "failures", len(prog.Failures), "errors", errorsFound)

	if errorsFound > 0 || len(prog.Failures) > 0 {
		return 1
	}
	return 0
}

// analyzeProgram analyzes every module of prog on up to jobs goroutines.
// Each module gets its own evaluator; the program and its trees are only
// read.
func analyzeProgram(prog *driver.Program, cfg driver.Config, logger *slog.Logger, jobs int) []lintResult {
	modules := prog.Modules()
	results := make([]lintResult, len(modules))
	if jobs < 1 {
		jobs = 1
	}

	work := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(jobs, len(modules)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				mod := modules[i]
				results[i].module = mod
				ev, err := newEvaluator(cfg, prog, logger.With("module", mod.Name))
				if err != nil {
					results[i].err = err
					continue
				}
				results[i].diagnostics = ev.Analyze(mod)
			}
		}()
	}
	for i := range modules {
		work <- i
	}
	close(work)
	wg.Wait()
	return results
}
