package lint

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Formatter formats validation results for output.
type Formatter interface {
	Format(w io.Writer, result *Result, docsDir string) error
}

// TextFormatter formats results as human-readable text.
type TextFormatter struct{}

// Format outputs results in human-readable text format.
func (f *TextFormatter) Format(w io.Writer, result *Result, docsDir string) error {
	if _, err := fmt.Fprintf(w, "Validating documentation in: %s\n", docsDir); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("━", 60)); err != nil {
		return err
	}

	for _, issue := range result.Issues {
		if err := f.formatIssue(w, issue); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, strings.Repeat("━", 60)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "  %d pages checked\n", result.FilesTotal); err != nil {
		return err
	}
	if n := result.ErrorCount(); n > 0 {
		if _, err := fmt.Fprintf(w, "  %d error%s (blocks build)\n", n, pluralize(n)); err != nil {
			return err
		}
	}
	if n := result.WarningCount(); n > 0 {
		if _, err := fmt.Fprintf(w, "  %d warning%s (fails --strict)\n", n, pluralize(n)); err != nil {
			return err
		}
	}
	if n := result.InfoCount(); n > 0 {
		if _, err := fmt.Fprintf(w, "  %d info\n", n); err != nil {
			return err
		}
	}

	switch {
	case result.HasErrors():
		_, err := fmt.Fprintln(w, "Documentation has errors; the site will not be built.")
		return err
	case result.HasWarnings():
		_, err := fmt.Fprintln(w, "Documentation has warnings.")
		return err
	default:
		_, err := fmt.Fprintln(w, "All documentation passes validation.")
		return err
	}
}

func (f *TextFormatter) formatIssue(w io.Writer, issue Issue) error {
	loc := issue.File
	if issue.Line > 0 {
		loc = fmt.Sprintf("%s:%d", issue.File, issue.Line)
	}
	if _, err := fmt.Fprintf(w, "%-7s %s [%s] %s\n", issue.Severity, loc, issue.Rule, issue.Message); err != nil {
		return err
	}
	if issue.Explanation != "" {
		for _, line := range strings.Split(strings.TrimSpace(issue.Explanation), "\n") {
			if _, err := fmt.Fprintf(w, "        %s\n", line); err != nil {
				return err
			}
		}
	}
	if issue.Fix != "" {
		if _, err := fmt.Fprintf(w, "        Fix: %s\n", issue.Fix); err != nil {
			return err
		}
	}
	return nil
}

// JSONFormatter formats results as JSON.
type JSONFormatter struct{}

// JSONOutput represents the JSON output structure.
type JSONOutput struct {
	DocsDir      string      `json:"docs_dir"`
	FilesTotal   int         `json:"files_total"`
	ErrorCount   int         `json:"error_count"`
	WarningCount int         `json:"warning_count"`
	InfoCount    int         `json:"info_count"`
	Issues       []JSONIssue `json:"issues"`
}

// JSONIssue represents a single issue in JSON format.
type JSONIssue struct {
	File        string `json:"file"`
	Severity    string `json:"severity"`
	Rule        string `json:"rule"`
	Message     string `json:"message"`
	Explanation string `json:"explanation,omitempty"`
	Fix         string `json:"fix,omitempty"`
	Line        int    `json:"line,omitempty"`
	Promoted    bool   `json:"promoted,omitempty"`
}

// Format outputs results in JSON format.
func (f *JSONFormatter) Format(w io.Writer, result *Result, docsDir string) error {
	output := JSONOutput{
		DocsDir:      docsDir,
		FilesTotal:   result.FilesTotal,
		ErrorCount:   result.ErrorCount(),
		WarningCount: result.WarningCount(),
		InfoCount:    result.InfoCount(),
		Issues:       make([]JSONIssue, 0, len(result.Issues)),
	}
	for _, issue := range result.Issues {
		output.Issues = append(output.Issues, JSONIssue{
			File:        issue.File,
			Severity:    issue.Severity.String(),
			Rule:        issue.Rule,
			Message:     issue.Message,
			Explanation: issue.Explanation,
			Fix:         issue.Fix,
			Line:        issue.Line,
			Promoted:    issue.Promoted,
		})
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// NewFormatter creates the appropriate formatter based on format string.
func NewFormatter(format string) Formatter {
	if format == "json" {
		return &JSONFormatter{}
	}
	return &TextFormatter{}
}

// pluralize returns "s" if count != 1, otherwise empty string.
func pluralize(count int) string {
	if count == 1 {
		return ""
	}
	return "s"
}
