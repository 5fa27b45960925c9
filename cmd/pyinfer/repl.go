package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/mbodiai/pyinfer/pkg/driver"
	"github.com/mbodiai/pyinfer/pkg/inference"
	"github.com/mbodiai/pyinfer/pkg/parser"
)

const (
	historyFile = ".pyinfer_history"
	promptMain  = ">>> "
	promptCont  = "... "
)

func runRepl(args []string) int {
	if len(args) > 0 {
		fmt.Fprintln(stderr, "repl takes no arguments")
		return 1
	}
	cfg, err := driver.ResolveConfig("", ".")
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	session, err := newReplSession(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer session.close()

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	fmt.Fprintf(stdout, "%s (type :quit to exit, :reset to clear)\n", cliToolVersion)
	for {
		code, ok := readByParseProbe(ln, session.mp)
		if !ok {
			fmt.Fprintln(stdout)
			return 0
		}
		trimmed := strings.TrimSpace(code)
		switch {
		case trimmed == "":
			continue
		case trimmed == ":quit":
			return 0
		case trimmed == ":reset":
			session.reset()
			continue
		case strings.HasPrefix(trimmed, ":"):
			fmt.Fprintln(stdout, "unknown command. Type :quit to exit.")
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		values, err := session.eval(code)
		if err != nil {
			fmt.Fprintln(stderr, err)
			continue
		}
		printValues(values)
	}
}

// readByParseProbe reads lines until they form a complete snippet. A
// compound statement keeps reading until a blank line.
func readByParseProbe(ln *liner.State, mp *parser.ModuleParser) (string, bool) {
	var b strings.Builder
	lines := 0
	for {
		prompt := promptMain
		if lines > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}
		if lines > 0 && strings.TrimSpace(line) == "" {
			return b.String(), true
		}
		if lines > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		lines++

		src := b.String()
		if strings.HasSuffix(strings.TrimSpace(src), ":") {
			continue
		}
		_, perr := mp.ParseModule("__main__", "<stdin>", []byte(src))
		var serr *parser.SyntaxError
		if errors.As(perr, &serr) && serr.Incomplete {
			continue
		}
		if lines == 1 {
			return src, true
		}
	}
}

// replSession accumulates accepted snippets into one module and infers the
// last statement of each new snippet against it.
type replSession struct {
	cfg    driver.Config
	mp     *parser.ModuleParser
	source string
}

func newReplSession(cfg driver.Config) (*replSession, error) {
	mp, err := parser.NewModuleParser()
	if err != nil {
		return nil, err
	}
	return &replSession{cfg: cfg, mp: mp}, nil
}

func (s *replSession) close() {
	s.mp.Close()
}

func (s *replSession) reset() {
	s.source = ""
}

func (s *replSession) eval(code string) ([]inference.Value, error) {
	candidate := s.source + code + "\n"
	mod, err := s.mp.ParseModule("__main__", "<stdin>", []byte(candidate))
	if err != nil {
		return nil, err
	}
	s.source = candidate
	if len(mod.Body) == 0 {
		return nil, nil
	}

	prog := driver.NewProgram()
	if err := prog.Add(mod); err != nil {
		return nil, err
	}
	ev, err := newEvaluator(s.cfg, prog, newLogger(s.cfg.Debug))
	if err != nil {
		return nil, err
	}
	last := mod.Body[len(mod.Body)-1]
	return ev.InferStatement(ev.ModuleContext(mod), last), nil
}
