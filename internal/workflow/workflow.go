// Package workflow reads the CI workflow definition that publishes the site
// and decides whether an event would trigger it.
package workflow

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
)

// Event names understood by the trigger model.
const (
	EventPush             = "push"
	EventPullRequest      = "pull_request"
	EventSchedule         = "schedule"
	EventWorkflowDispatch = "workflow_dispatch"
)

// Workflow is a GitHub Actions style workflow definition.
type Workflow struct {
	Name string   `yaml:"name"`
	On   Triggers `yaml:"on"`
	// Permissions is either a scope map such as {contents: write} or a
	// shorthand like "read-all".
	Permissions any            `yaml:"permissions,omitempty"`
	Jobs        map[string]Job `yaml:"jobs"`
}

// Job is one job of the workflow. Steps are executed by the CI platform.
type Job struct {
	Name   string `yaml:"name,omitempty"`
	RunsOn any    `yaml:"runs-on,omitempty"`
	Steps  []Step `yaml:"steps,omitempty"`
}

// Step is one job step.
type Step struct {
	Name string            `yaml:"name,omitempty"`
	Uses string            `yaml:"uses,omitempty"`
	Run  string            `yaml:"run,omitempty"`
	With map[string]string `yaml:"with,omitempty"`
	If   string            `yaml:"if,omitempty"`
}

// Filter holds the branch and path filters of one event.
type Filter struct {
	Branches       []string `yaml:"branches,omitempty"`
	BranchesIgnore []string `yaml:"branches-ignore,omitempty"`
	Paths          []string `yaml:"paths,omitempty"`
	PathsIgnore    []string `yaml:"paths-ignore,omitempty"`
}

// Schedule is one cron entry of the schedule event.
type Schedule struct {
	Cron string `yaml:"cron"`
}

// Triggers maps event names to their filters.
type Triggers struct {
	Events    map[string]Filter
	Schedules []Schedule
}

// UnmarshalYAML accepts `on: push`, `on: [push, pull_request]` and the
// mapping form with per-event filters.
func (t *Triggers) UnmarshalYAML(node *yaml.Node) error {
	t.Events = map[string]Filter{}
	switch node.Kind {
	case yaml.ScalarNode:
		t.Events[node.Value] = Filter{}
		return nil
	case yaml.SequenceNode:
		for _, n := range node.Content {
			if n.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: event names must be strings", n.Line)
			}
			t.Events[n.Value] = Filter{}
		}
		return nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i], node.Content[i+1]
			if key.Value == EventSchedule {
				if err := value.Decode(&t.Schedules); err != nil {
					return fmt.Errorf("line %d: schedule: %w", value.Line, err)
				}
				t.Events[EventSchedule] = Filter{}
				continue
			}
			var f Filter
			if value.Kind == yaml.MappingNode {
				if err := value.Decode(&f); err != nil {
					return fmt.Errorf("line %d: %s: %w", value.Line, key.Value, err)
				}
			}
			t.Events[key.Value] = f
		}
		return nil
	default:
		return fmt.Errorf("line %d: unsupported `on` value", node.Line)
	}
}

// EventNames returns the configured events in sorted order.
func (t Triggers) EventNames() []string {
	names := make([]string, 0, len(t.Events))
	for n := range t.Events {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Parse decodes a workflow and validates its filter patterns.
func Parse(data []byte) (*Workflow, error) {
	var w Workflow
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, errors.WrapError(err, errors.CategoryWorkflow, "failed to parse workflow").Build()
	}
	if len(w.On.Events) == 0 {
		return nil, errors.WorkflowError("workflow has no triggers").Build()
	}
	for name, f := range w.On.Events {
		if len(f.Branches) > 0 && len(f.BranchesIgnore) > 0 {
			return nil, errors.WorkflowError("branches and branches-ignore cannot be combined").
				WithContext("event", name).Build()
		}
		if len(f.Paths) > 0 && len(f.PathsIgnore) > 0 {
			return nil, errors.WorkflowError("paths and paths-ignore cannot be combined").
				WithContext("event", name).Build()
		}
		for _, list := range [][]string{f.Branches, f.BranchesIgnore, f.Paths, f.PathsIgnore} {
			for _, p := range list {
				if !doublestar.ValidatePattern(strings.TrimPrefix(p, "!")) {
					return nil, errors.WorkflowError("invalid filter pattern").
						WithContext("event", name).WithContext("pattern", p).Build()
				}
			}
		}
	}
	for _, s := range w.On.Schedules {
		if strings.TrimSpace(s.Cron) == "" {
			return nil, errors.WorkflowError("schedule entry without cron").Build()
		}
	}
	return &w, nil
}

// Load reads and parses the workflow file at path.
func Load(path string) (*Workflow, error) {
	// #nosec G304 -- path is the configured workflow file.
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapError(err, errors.CategoryNotFound, "workflow file not found").
				WithContext("path", path).UserAction().Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read workflow").
			WithContext("path", path).Build()
	}
	return Parse(data)
}

// Crons returns the cron expressions of the schedule trigger.
func (w *Workflow) Crons() []string {
	out := make([]string, 0, len(w.On.Schedules))
	for _, s := range w.On.Schedules {
		out = append(out, s.Cron)
	}
	return out
}
