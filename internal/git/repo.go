// Package git reads history from the documentation repository and publishes
// built sites to a branch of a remote repository.
package git

import (
	"fmt"

	"github.com/go-git/go-git/v5"
)

// OpenRepository opens the repository containing path, searching parent
// directories for the .git directory.
func OpenRepository(path string) (*git.Repository, string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, "", fmt.Errorf("open repository at %s: %w", path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, "", fmt.Errorf("repository at %s has no worktree: %w", path, err)
	}
	return repo, wt.Filesystem.Root(), nil
}

// HeadCommit returns the HEAD commit hash of the repository containing path.
func HeadCommit(path string) (string, error) {
	repo, _, err := OpenRepository(path)
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// ShortHash truncates a commit hash for log output.
func ShortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

// CurrentBranch returns the short name of the checked out branch, or an empty
// string on a detached HEAD.
func CurrentBranch(path string) (string, error) {
	repo, _, err := OpenRepository(path)
	if err != nil {
		return "", err
	}
	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if !ref.Name().IsBranch() {
		return "", nil
	}
	return ref.Name().Short(), nil
}
