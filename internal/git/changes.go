package git

import (
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ChangedFiles lists the repository paths that differ between the revisions
// from and to. An empty to means HEAD; an empty from compares to against its
// first parent. The result is sorted and free of duplicates.
func ChangedFiles(repoPath, from, to string) ([]string, error) {
	repo, _, err := OpenRepository(repoPath)
	if err != nil {
		return nil, err
	}
	if to == "" {
		to = "HEAD"
	}
	toCommit, err := resolveCommit(repo, to)
	if err != nil {
		return nil, err
	}

	var names []string
	if from == "" {
		if names, err = changedPaths(toCommit); err != nil {
			return nil, err
		}
	} else {
		fromCommit, resolveErr := resolveCommit(repo, from)
		if resolveErr != nil {
			return nil, resolveErr
		}
		fromTree, treeErr := fromCommit.Tree()
		if treeErr != nil {
			return nil, treeErr
		}
		toTree, treeErr := toCommit.Tree()
		if treeErr != nil {
			return nil, treeErr
		}
		changes, diffErr := object.DiffTree(fromTree, toTree)
		if diffErr != nil {
			return nil, fmt.Errorf("diff %s..%s: %w", from, to, diffErr)
		}
		names = changeNames(changes)
	}

	sort.Strings(names)
	out := names[:0]
	for i, n := range names {
		if i == 0 || n != names[i-1] {
			out = append(out, n)
		}
	}
	return out, nil
}

func resolveCommit(repo *git.Repository, rev string) (*object.Commit, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolve revision %q: %w", rev, err)
	}
	c, err := repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", rev, err)
	}
	return c, nil
}
