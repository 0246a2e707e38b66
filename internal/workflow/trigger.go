package workflow

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Event describes what happened in the repository.
type Event struct {
	Name string
	// Branch is the pushed branch, or the head branch of a pull request.
	Branch string
	// BaseBranch is the target branch of a pull request.
	BaseBranch string
	// ChangedFiles lists repository relative paths. Nil means unknown, in
	// which case path filters do not prevent a run.
	ChangedFiles []string
}

// Triggers reports whether ev starts the workflow and why.
func (w *Workflow) Triggers(ev Event) (bool, string) {
	f, ok := w.On.Events[ev.Name]
	if !ok {
		return false, fmt.Sprintf("event %q is not configured (configured: %s)", ev.Name, strings.Join(w.On.EventNames(), ", "))
	}
	switch ev.Name {
	case EventPush, EventPullRequest, "pull_request_target":
	default:
		return true, fmt.Sprintf("event %q is configured", ev.Name)
	}

	branch := ev.Branch
	if ev.Name != EventPush && ev.BaseBranch != "" {
		branch = ev.BaseBranch
	}
	if len(f.Branches) > 0 && !matchOrdered(f.Branches, branch) {
		return false, fmt.Sprintf("branch %q does not match branches filter", branch)
	}
	if len(f.BranchesIgnore) > 0 && matchOrdered(f.BranchesIgnore, branch) {
		return false, fmt.Sprintf("branch %q is ignored by branches-ignore", branch)
	}

	if ev.ChangedFiles == nil {
		return true, fmt.Sprintf("%s to %q matches the filters", ev.Name, branch)
	}
	if len(f.Paths) > 0 {
		matched := ""
		for _, file := range ev.ChangedFiles {
			if matchOrdered(f.Paths, file) {
				matched = file
				break
			}
		}
		if matched == "" {
			return false, fmt.Sprintf("none of %d changed files match the paths filter", len(ev.ChangedFiles))
		}
		return true, fmt.Sprintf("%s to %q changed %s", ev.Name, branch, matched)
	}
	if len(f.PathsIgnore) > 0 {
		for _, file := range ev.ChangedFiles {
			if !matchOrdered(f.PathsIgnore, file) {
				return true, fmt.Sprintf("%s to %q changed %s", ev.Name, branch, file)
			}
		}
		return false, fmt.Sprintf("all %d changed files are ignored by paths-ignore", len(ev.ChangedFiles))
	}
	return true, fmt.Sprintf("%s to %q matches the filters", ev.Name, branch)
}

// matchOrdered evaluates patterns in order; a later pattern overrides an
// earlier one and a leading `!` turns a match into an exclusion.
func matchOrdered(patterns []string, name string) bool {
	matched := false
	for _, p := range patterns {
		negate := strings.HasPrefix(p, "!")
		if negate {
			p = p[1:]
		}
		if ok, _ := doublestar.Match(p, name); ok {
			matched = !negate
		}
	}
	return matched
}
