package tracking

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
)

type jsonRow struct {
	Project       string `json:"project"`
	URL           string `json:"url,omitempty"`
	CITested      Status `json:"ci_tested"`
	ReleaseStatus Status `json:"release"`
	FirstVersion  string `json:"first_version,omitempty"`
	NightlyWheels Status `json:"nightly_wheels"`
}

// WriteJSON writes the rows as a JSON array.
func (t *Table) WriteJSON(w io.Writer) error {
	rows := make([]jsonRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		rows = append(rows, jsonRow{r.Project, r.URL, r.CITested, r.ReleaseStatus, r.FirstVersion, r.NightlyWheels})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// WriteCSV writes the table with its original headers.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	for _, r := range t.Rows {
		record := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			record[i] = r.Cells[h]
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteText writes an aligned plain text table of normalized statuses.
func (t *Table) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "PROJECT\tCI\tRELEASE\tFIRST VERSION\tNIGHTLY"); err != nil {
		return err
	}
	for _, r := range t.Rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Project, r.CITested, r.ReleaseStatus, r.FirstVersion, r.NightlyWheels); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteText writes the status summary.
func (s Stats) WriteText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%d projects\n", s.Projects); err != nil {
		return err
	}
	for _, col := range []struct {
		name   string
		counts map[Status]int
	}{{"ci", s.CI}, {"release", s.Release}, {"nightly", s.Nightly}} {
		keys := make([]string, 0, len(col.counts))
		for k := range col.counts {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		if _, err := fmt.Fprintf(w, "  %s:", col.name); err != nil {
			return err
		}
		for _, k := range keys {
			if _, err := fmt.Fprintf(w, " %s=%d", k, col.counts[Status(k)]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
