package lint

import (
	"sort"

	"git.home.luguber.info/inful/ftdocs/internal/config"
)

// Severity indicates the importance level of a linting issue.
type Severity int

const (
	// SeverityInfo issues are reported but never fail a build.
	SeverityInfo Severity = iota
	// SeverityWarning issues fail the build only in strict mode.
	SeverityWarning
	// SeverityError issues always fail the build.
	SeverityError
)

// String returns the human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SeverityFor maps a configured validation level onto a severity.
// The boolean is false for `ignore`.
func SeverityFor(level config.ValidationLevel) (Severity, bool) {
	switch level {
	case config.LevelWarn:
		return SeverityWarning, true
	case config.LevelInfo:
		return SeverityInfo, true
	default:
		return SeverityInfo, false
	}
}

// Issue represents a single problem found in a page or in the configuration.
type Issue struct {
	File        string   // docs_dir relative page path, or the config file name
	Severity    Severity // Issue severity level
	Rule        string   // Rule identifier (e.g., "link-target")
	Message     string   // Brief description of the issue
	Explanation string   // Detailed explanation with context
	Fix         string   // Suggested fix
	Line        int      // Line number (0 if file-level issue)
	Promoted    bool     // Raised from warning to error by strict mode
}

// Result contains all issues found during validation.
type Result struct {
	Issues     []Issue
	FilesTotal int
}

func (r *Result) count(s Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == s {
			n++
		}
	}
	return n
}

// HasErrors returns true if any error-level issues exist.
func (r *Result) HasErrors() bool { return r.count(SeverityError) > 0 }

// HasWarnings returns true if any warning-level issues exist.
func (r *Result) HasWarnings() bool { return r.count(SeverityWarning) > 0 }

func (r *Result) ErrorCount() int   { return r.count(SeverityError) }
func (r *Result) WarningCount() int { return r.count(SeverityWarning) }
func (r *Result) InfoCount() int    { return r.count(SeverityInfo) }

// Add appends issues and keeps the result ordered by file and line.
func (r *Result) Add(issues ...Issue) {
	r.Issues = append(r.Issues, issues...)
	sort.SliceStable(r.Issues, func(i, j int) bool {
		a, b := r.Issues[i], r.Issues[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Rule < b.Rule
	})
}

// Promote turns every warning into an error when strict is set.
func (r *Result) Promote(strict bool) {
	if !strict {
		return
	}
	for i := range r.Issues {
		if r.Issues[i].Severity == SeverityWarning {
			r.Issues[i].Severity = SeverityError
			r.Issues[i].Promoted = true
		}
	}
}

// Rule is a single validation check over the whole site.
type Rule interface {
	// Name returns the unique identifier for this rule.
	Name() string
	// Check returns the issues found. Severity is assigned by the rule.
	Check(ctx *Context) []Issue
}
