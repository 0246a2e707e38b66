package git

import (
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// RevisionDates returns the author date of the last commit touching each file
// under docsDir, keyed by the slash separated path relative to docsDir. The
// repository is located from repoRoot. Files without history (untracked or
// only in the index) are absent from the result.
func RevisionDates(repoRoot, docsDir string) (map[string]time.Time, error) {
	repo, root, err := OpenRepository(repoRoot)
	if err != nil {
		return nil, err
	}
	prefix, err := repoRelative(root, docsDir)
	if err != nil {
		return nil, err
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	headCommit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("load HEAD commit: %w", err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, err
	}

	pending := map[string]bool{}
	err = headTree.Files().ForEach(func(f *object.File) error {
		if rel, ok := underPrefix(f.Name, prefix); ok {
			pending[rel] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list HEAD tree: %w", err)
	}

	dates := make(map[string]time.Time, len(pending))
	if len(pending) == 0 {
		return dates, nil
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash(), Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	defer iter.Close()

	for len(pending) > 0 {
		c, nextErr := iter.Next()
		if nextErr == io.EOF {
			break
		}
		if nextErr != nil {
			return nil, fmt.Errorf("read history: %w", nextErr)
		}
		changed, changeErr := changedPaths(c)
		if changeErr != nil {
			return nil, changeErr
		}
		for _, name := range changed {
			rel, ok := underPrefix(name, prefix)
			if !ok || !pending[rel] {
				continue
			}
			dates[rel] = c.Author.When
			delete(pending, rel)
		}
	}
	return dates, nil
}

// changedPaths lists the paths a commit changed relative to its first parent.
// A root commit changes every file it contains.
func changedPaths(c *object.Commit) ([]string, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	var parentTree *object.Tree
	if c.NumParents() > 0 {
		parent, parentErr := c.Parent(0)
		if parentErr != nil {
			return nil, parentErr
		}
		if parentTree, err = parent.Tree(); err != nil {
			return nil, err
		}
	}
	changes, err := object.DiffTree(parentTree, tree)
	if err != nil {
		return nil, fmt.Errorf("diff commit %s: %w", ShortHash(c.Hash.String()), err)
	}
	return changeNames(changes), nil
}

func changeNames(changes object.Changes) []string {
	out := make([]string, 0, len(changes))
	for _, ch := range changes {
		if ch.To.Name != "" {
			out = append(out, ch.To.Name)
		}
		if ch.From.Name != "" && ch.From.Name != ch.To.Name {
			out = append(out, ch.From.Name)
		}
	}
	return out
}

func repoRelative(root, dir string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if r, evalErr := filepath.EvalSymlinks(absRoot); evalErr == nil {
		absRoot = r
	}
	if d, evalErr := filepath.EvalSymlinks(absDir); evalErr == nil {
		absDir = d
	}
	rel, err := filepath.Rel(absRoot, absDir)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside repository %s", dir, root)
	}
	if rel == "." {
		return "", nil
	}
	return rel, nil
}

func underPrefix(name, prefix string) (string, bool) {
	if prefix == "" {
		return name, true
	}
	if !strings.HasPrefix(name, prefix+"/") {
		return "", false
	}
	return path.Clean(strings.TrimPrefix(name, prefix+"/")), true
}
