// Package tracking reads the compatibility table maintained in the tracking
// page: one row per third-party project with its free-threading support status.
package tracking

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	gmast "github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"

	"git.home.luguber.info/inful/ftdocs/internal/markdown"
)

// ErrNoTable is returned when the page has no table with the key column.
var ErrNoTable = errors.New("no compatibility table found")

// Column roles recognized in the header.
const (
	ColumnProject      = "project"
	ColumnCI           = "ci"
	ColumnRelease      = "release"
	ColumnFirstVersion = "first version"
	ColumnNightly      = "nightly"
)

// Row is one project entry.
type Row struct {
	Project string
	URL     string
	// Cells holds the raw text of every column keyed by header.
	Cells map[string]string
	Line  int

	CITested      Status
	ReleaseStatus Status
	FirstVersion  string
	NightlyWheels Status
}

// Table is the parsed compatibility table.
type Table struct {
	Headers []string
	Rows    []Row
}

var tableParser = markdown.NewParser(markdown.Options{Tables: true})

// Parse reads the first table in body whose header contains keyColumn
// (case-insensitive, defaults to "project").
func Parse(body []byte, keyColumn string) (*Table, error) {
	if keyColumn == "" {
		keyColumn = ColumnProject
	}
	root, _ := tableParser.Parse(body)

	var found *extast.Table
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if t, ok := n.(*extast.Table); ok && headerIndex(t, body, keyColumn) >= 0 {
			found = t
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	if found == nil {
		return nil, fmt.Errorf("%w: missing %q column", ErrNoTable, keyColumn)
	}

	table := &Table{}
	roles := map[int]string{}
	for c := found.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *extast.TableHeader:
			for i, cell := range cells(node) {
				h := markdown.PlainText(cell, body)
				table.Headers = append(table.Headers, h)
				roles[i] = columnRole(h, keyColumn)
			}
		case *extast.TableRow:
			table.Rows = append(table.Rows, parseRow(node, body, table.Headers, roles))
		}
	}
	return table, nil
}

func cells(n gmast.Node) []gmast.Node {
	var out []gmast.Node
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if _, ok := c.(*extast.TableCell); ok {
			out = append(out, c)
		}
	}
	return out
}

func headerIndex(t *extast.Table, src []byte, key string) int {
	header, ok := t.FirstChild().(*extast.TableHeader)
	if !ok {
		return -1
	}
	for i, cell := range cells(header) {
		if strings.Contains(strings.ToLower(markdown.PlainText(cell, src)), strings.ToLower(key)) {
			return i
		}
	}
	return -1
}

func columnRole(header, key string) string {
	h := strings.ToLower(header)
	words := strings.FieldsFunc(h, func(r rune) bool { return r == ' ' || r == '/' || r == '(' || r == ')' })
	hasWord := func(w string) bool {
		for _, x := range words {
			if x == w {
				return true
			}
		}
		return false
	}
	switch {
	case strings.Contains(h, strings.ToLower(key)):
		return ColumnProject
	case strings.Contains(h, "nightly"):
		return ColumnNightly
	case strings.Contains(h, "first") || hasWord("version"):
		return ColumnFirstVersion
	case hasWord("ci"):
		return ColumnCI
	case strings.Contains(h, "release"):
		return ColumnRelease
	default:
		return ""
	}
}

func parseRow(row gmast.Node, src []byte, headers []string, roles map[int]string) Row {
	r := Row{
		Cells:         map[string]string{},
		Line:          markdown.LineOf(row, src),
		CITested:      StatusUnknown,
		ReleaseStatus: StatusUnknown,
		NightlyWheels: StatusUnknown,
	}
	for i, cell := range cells(row) {
		text := markdown.PlainText(cell, src)
		if i < len(headers) {
			r.Cells[headers[i]] = text
		}
		switch roles[i] {
		case ColumnProject:
			r.Project = text
			r.URL = firstLink(cell)
		case ColumnCI:
			r.CITested = ParseStatus(text)
		case ColumnRelease:
			r.ReleaseStatus = ParseStatus(text)
		case ColumnFirstVersion:
			r.FirstVersion = text
		case ColumnNightly:
			r.NightlyWheels = ParseStatus(text)
		}
	}
	return r
}

func firstLink(n gmast.Node) string {
	var dest string
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if l, ok := c.(*gmast.Link); ok && entering {
			dest = string(l.Destination)
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	return dest
}

// Find returns the row for project (case-insensitive).
func (t *Table) Find(project string) (Row, bool) {
	for _, r := range t.Rows {
		if strings.EqualFold(r.Project, project) {
			return r, true
		}
	}
	return Row{}, false
}

type ProblemKind string

const (
	ProblemEmptyName ProblemKind = "empty_name"
	ProblemDuplicate ProblemKind = "duplicate"
	ProblemUnsorted  ProblemKind = "unsorted"
)

// Problem is a maintenance issue in the table.
type Problem struct {
	Kind    ProblemKind
	Line    int
	Project string
	Message string
}

// Check reports rows without a project name, duplicated projects, and rows
// that break the case-insensitive alphabetical order.
func (t *Table) Check() []Problem {
	var problems []Problem
	seen := map[string]int{}
	prev := ""
	for _, r := range t.Rows {
		name := strings.TrimSpace(r.Project)
		if name == "" {
			problems = append(problems, Problem{Kind: ProblemEmptyName, Line: r.Line, Message: "row has no project name"})
			continue
		}
		key := strings.ToLower(name)
		if first, dup := seen[key]; dup {
			problems = append(problems, Problem{
				Kind:    ProblemDuplicate,
				Line:    r.Line,
				Project: name,
				Message: fmt.Sprintf("project %q already listed on line %d", name, first),
			})
			continue
		}
		seen[key] = r.Line
		if prev != "" && key < prev {
			problems = append(problems, Problem{
				Kind:    ProblemUnsorted,
				Line:    r.Line,
				Project: name,
				Message: fmt.Sprintf("project %q is out of alphabetical order", name),
			})
		}
		prev = key
	}
	return problems
}

// Stats summarizes the table.
type Stats struct {
	Projects int            `json:"projects"`
	CI       map[Status]int `json:"ci"`
	Release  map[Status]int `json:"release"`
	Nightly  map[Status]int `json:"nightly"`
}

func (t *Table) Stats() Stats {
	s := Stats{Projects: len(t.Rows), CI: map[Status]int{}, Release: map[Status]int{}, Nightly: map[Status]int{}}
	for _, r := range t.Rows {
		s.CI[r.CITested]++
		s.Release[r.ReleaseStatus]++
		s.Nightly[r.NightlyWheels]++
	}
	return s
}

// Sorted returns the rows ordered by project name.
func (t *Table) Sorted() []Row {
	rows := append([]Row(nil), t.Rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		return strings.ToLower(rows[i].Project) < strings.ToLower(rows[j].Project)
	})
	return rows
}
