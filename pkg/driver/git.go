package driver

import (
	"fmt"
	"path"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/mbodiai/pyinfer/pkg/parser"
)

// LoadGitRevision parses every *.py file in the tree of rev without
// touching the worktree. Module paths are "rev:path" so diagnostics name
// the revision they came from.
func LoadGitRevision(mp *parser.ModuleParser, repoDir, rev string, cfg Config) (*Program, error) {
	repo, err := git.PlainOpenWithOptions(repoDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("driver: open repository %s: %w", repoDir, err)
	}
	if rev == "" {
		rev = "HEAD"
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("driver: resolve revision %s: %w", rev, err)
	}
	commit, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("driver: load commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("driver: load tree of %s: %w", hash, err)
	}

	packages := make(map[string]bool)
	err = tree.Files().ForEach(func(f *object.File) error {
		if path.Base(f.Name) == "__init__.py" {
			packages[path.Dir(f.Name)] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("driver: list tree of %s: %w", hash, err)
	}

	prog := NewProgram()
	err = tree.Files().ForEach(func(f *object.File) error {
		if !strings.HasSuffix(f.Name, ".py") || cfg.Excluded(f.Name) || hiddenPath(f.Name) {
			return nil
		}
		display := rev + ":" + f.Name
		contents, err := f.Contents()
		if err != nil {
			prog.Failures = append(prog.Failures, Failure{Path: display, Err: fmt.Errorf("driver: read %s: %w", display, err)})
			return nil
		}
		root := treePackageRoot(path.Dir(f.Name), packages)
		rel := f.Name
		if root != "." {
			rel = strings.TrimPrefix(f.Name, root+"/")
		}
		prog.addSource(mp, ModuleName(rel), display, []byte(contents))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("driver: walk tree of %s: %w", hash, err)
	}
	return prog, nil
}

// treePackageRoot is packageRoot for paths inside a git tree.
func treePackageRoot(dir string, packages map[string]bool) string {
	for dir != "." && packages[dir] {
		dir = path.Dir(dir)
	}
	return dir
}

func hiddenPath(name string) bool {
	for _, part := range strings.Split(name, "/") {
		if skippedDir(part) {
			return true
		}
	}
	return false
}
