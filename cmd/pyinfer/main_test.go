package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/mbodiai/pyinfer/pkg/driver"
	"github.com/mbodiai/pyinfer/pkg/inference"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// enterTempDir moves the test into a fresh working directory.
func enterTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	t.Cleanup(func() {
		if chdirErr := os.Chdir(oldWD); chdirErr != nil {
			t.Fatalf("restore working directory: %v", chdirErr)
		}
	})
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	return dir
}

// captureOutput redirects the command writers for the rest of the test.
func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	oldOut, oldErr := stdout, stderr
	stdout, stderr = &out, &errOut
	t.Cleanup(func() { stdout, stderr = oldOut, oldErr })
	return &out, &errOut
}

func TestRunVersion(t *testing.T) {
	out, _ := captureOutput(t)
	if code := run([]string{"--version"}); code != 0 {
		t.Fatalf("run returned exit code %d, want 0", code)
	}
	if strings.TrimSpace(out.String()) != cliToolVersion {
		t.Fatalf("unexpected version output %q", out.String())
	}
}

func TestRunUnknownCommand(t *testing.T) {
	_, errOut := captureOutput(t)
	if code := run([]string{"frobnicate"}); code != 1 {
		t.Fatalf("run returned exit code %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), `unknown command "frobnicate"`) || !strings.Contains(errOut.String(), "Usage:") {
		t.Fatalf("unexpected stderr %q", errOut.String())
	}
}

func TestRunWithoutArgsPrintsUsage(t *testing.T) {
	_, errOut := captureOutput(t)
	if code := run(nil); code != 1 {
		t.Fatalf("run returned exit code %d, want 1", code)
	}
	if !strings.HasPrefix(errOut.String(), "Usage:") {
		t.Fatalf("unexpected stderr %q", errOut.String())
	}
}

func TestLintReportsUndefinedName(t *testing.T) {
	dir := enterTempDir(t)
	out, _ := captureOutput(t)
	writeFile(t, filepath.Join(dir, "app.py"), `
x = 1
print(undefined_name)
`)

	if code := run([]string{"lint"}); code != 1 {
		t.Fatalf("lint returned exit code %d, want 1", code)
	}
	want := `app.py:2:7: error: undefined name "undefined_name"`
	if strings.TrimSpace(out.String()) != want {
		t.Fatalf("lint output = %q, want %q", out.String(), want)
	}
}

func TestLintCleanProgram(t *testing.T) {
	dir := enterTempDir(t)
	out, _ := captureOutput(t)
	writeFile(t, filepath.Join(dir, "app.py"), `
from pkg.util import helper

def fact(n):
    if n <= 1:
        return 1
    return n * fact(n - 1)

total = fact(5) + helper()
`)
	writeFile(t, filepath.Join(dir, "pkg", "__init__.py"), "")
	writeFile(t, filepath.Join(dir, "pkg", "util.py"), `
def helper():
    return 2
`)

	if code := run([]string{"lint", "--jobs", "2", "."}); code != 0 {
		t.Fatalf("lint returned exit code %d, want 0; output %q", code, out.String())
	}
	if out.Len() != 0 {
		t.Fatalf("expected no diagnostics, got %q", out.String())
	}
}

func TestLintHonoursConfigExcludes(t *testing.T) {
	dir := enterTempDir(t)
	out, _ := captureOutput(t)
	writeFile(t, filepath.Join(dir, driver.ConfigFileName), `
exclude:
  - generated
`)
	writeFile(t, filepath.Join(dir, "app.py"), "x = 1")
	writeFile(t, filepath.Join(dir, "generated", "bad.py"), "print(nope)")

	if code := run([]string{"lint"}); code != 0 {
		t.Fatalf("lint returned exit code %d, want 0; output %q", code, out.String())
	}
}

func TestLintReportsSyntaxErrors(t *testing.T) {
	dir := enterTempDir(t)
	_, errOut := captureOutput(t)
	writeFile(t, filepath.Join(dir, "bad.py"), "def broken(:\n    pass")

	if code := run([]string{"lint"}); code != 1 {
		t.Fatalf("lint returned exit code %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "syntax error") {
		t.Fatalf("expected a syntax error on stderr, got %q", errOut.String())
	}
}

func TestLintRejectsInvalidConfig(t *testing.T) {
	dir := enterTempDir(t)
	_, errOut := captureOutput(t)
	writeFile(t, filepath.Join(dir, driver.ConfigFileName), `
recursion:
  max_executions: -1
`)
	writeFile(t, filepath.Join(dir, "app.py"), "x = 1")

	if code := run([]string{"lint"}); code != 1 {
		t.Fatalf("lint returned exit code %d, want 1", code)
	}
	if !strings.Contains(errOut.String(), "recursion.max_executions") {
		t.Fatalf("expected the invalid setting on stderr, got %q", errOut.String())
	}
}

func TestLintGitRevision(t *testing.T) {
	dir := enterTempDir(t)
	out, _ := captureOutput(t)
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	writeFile(t, filepath.Join(dir, "app.py"), "print(missing)")
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if _, err := worktree.Add("app.py"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := worktree.Commit("init", &git.CommitOptions{
		Author: &object.Signature{Name: "pyinfer", Email: "pyinfer@example.com", When: time.Now()},
	}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	writeFile(t, filepath.Join(dir, "app.py"), "missing = 1\nprint(missing)")

	if code := run([]string{"lint"}); code != 0 {
		t.Fatalf("working tree lint returned %d, want 0; output %q", code, out.String())
	}
	if code := run([]string{"lint", "--rev", "HEAD", "."}); code != 1 {
		t.Fatalf("revision lint returned %d, want 1", code)
	}
	want := `HEAD:app.py:1:7: error: undefined name "missing"`
	if strings.TrimSpace(out.String()) != want {
		t.Fatalf("lint output = %q, want %q", out.String(), want)
	}
}

func TestInferPrintsValues(t *testing.T) {
	dir := enterTempDir(t)
	out, _ := captureOutput(t)
	writeFile(t, filepath.Join(dir, "helpers.py"), `
def pick(flag):
    if flag:
        return 1.5
    return "none"
`)
	writeFile(t, filepath.Join(dir, "app.py"), `
from helpers import pick

value = pick(True)
`)

	if code := run([]string{"infer", "app.py", "3", "1"}); code != 0 {
		t.Fatalf("infer returned exit code %d, want 0", code)
	}
	if out.String() != "float\nstr\n" {
		t.Fatalf("unexpected infer output %q", out.String())
	}
}

func TestInferRejectsBadPosition(t *testing.T) {
	dir := enterTempDir(t)
	captureOutput(t)
	writeFile(t, filepath.Join(dir, "app.py"), "x = 1")

	if code := run([]string{"infer", "app.py", "zero", "1"}); code != 1 {
		t.Fatalf("infer returned exit code %d, want 1", code)
	}
	if code := run([]string{"infer", "app.py", "9", "1"}); code != 1 {
		t.Fatalf("infer past the end returned exit code %d, want 1", code)
	}
}

func TestTypeWritesTypedCopy(t *testing.T) {
	dir := enterTempDir(t)
	captureOutput(t)
	writeFile(t, filepath.Join(dir, "app.py"), `
def scale(factor=2.0):
    return factor
`)

	if code := run([]string{"type", "app.py"}); code != 0 {
		t.Fatalf("type returned exit code %d, want 0", code)
	}
	typed, err := os.ReadFile(filepath.Join(dir, "app_typed.py"))
	if err != nil {
		t.Fatalf("read typed output: %v", err)
	}
	want := "import cython\n@cython.locals(factor='double')\n@cython.returns(double)\ndef scale(factor=2.0):\n    return factor\n"
	if string(typed) != want {
		t.Fatalf("unexpected typed output:\n%s", typed)
	}
	original, err := os.ReadFile(filepath.Join(dir, "app.py"))
	if err != nil {
		t.Fatalf("read original: %v", err)
	}
	if strings.Contains(string(original), "cython") {
		t.Fatalf("original file was modified without --overwrite")
	}
}

func TestTypeOverwrite(t *testing.T) {
	dir := enterTempDir(t)
	out, _ := captureOutput(t)
	writeFile(t, filepath.Join(dir, "app.py"), "limit: int = 3")

	if code := run([]string{"type", "--overwrite", "-v", "app.py"}); code != 0 {
		t.Fatalf("type returned exit code %d, want 0", code)
	}
	if strings.TrimSpace(out.String()) != "app.py:1: limit long" {
		t.Fatalf("unexpected verbose output %q", out.String())
	}
	typed, err := os.ReadFile(filepath.Join(dir, "app.py"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(typed) != "import cython\ncython.declare(limit='long')\nlimit: int = 3\n" {
		t.Fatalf("unexpected rewritten file %q", typed)
	}
}

func describe(values []inference.Value) string {
	var out []string
	for _, v := range values {
		out = append(out, inference.Describe(v))
	}
	return strings.Join(out, " | ")
}

func TestReplSessionKeepsDefinitions(t *testing.T) {
	session, err := newReplSession(driver.DefaultConfig())
	if err != nil {
		t.Fatalf("newReplSession: %v", err)
	}
	defer session.close()

	if _, err := session.eval("def double(n):\n    return n * 2"); err != nil {
		t.Fatalf("eval def: %v", err)
	}
	if _, err := session.eval("x = double(4)"); err != nil {
		t.Fatalf("eval assignment: %v", err)
	}
	values, err := session.eval("x")
	if err != nil {
		t.Fatalf("eval x: %v", err)
	}
	if got := describe(values); got != "int" {
		t.Fatalf("x = %q, want int", got)
	}

	if _, err := session.eval("y = ("); err == nil {
		t.Fatalf("expected a syntax error")
	}
	values, err = session.eval("x")
	if err != nil || describe(values) != "int" {
		t.Fatalf("a rejected snippet must leave the session intact: %v %v", values, err)
	}

	session.reset()
	values, err = session.eval("x")
	if err != nil {
		t.Fatalf("eval after reset: %v", err)
	}
	if len(values) != 0 {
		t.Fatalf("expected nothing after reset, got %s", describe(values))
	}
}
