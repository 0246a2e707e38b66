package tracking

import (
	"strings"

	"git.home.luguber.info/inful/ftdocs/internal/foundation/normalization"
)

// Status is the normalized value of a support cell.
type Status string

const (
	StatusYes     Status = "yes"
	StatusNo      Status = "no"
	StatusPartial Status = "partial"
	StatusUnknown Status = "unknown"
	StatusNA      Status = "n/a"
)

var markerStatus = []struct {
	marker string
	status Status
}{
	{"✅", StatusYes},
	{"✔", StatusYes},
	{"❌", StatusNo},
	{"✖", StatusNo},
	{"🚧", StatusPartial},
	{"⚠", StatusPartial},
	{"❓", StatusUnknown},
}

var statusNormalizer = normalization.NewNormalizer(map[string]Status{
	"yes":     StatusYes,
	"y":       StatusYes,
	"true":    StatusYes,
	"no":      StatusNo,
	"n":       StatusNo,
	"false":   StatusNo,
	"partial": StatusPartial,
	"wip":     StatusPartial,
	"?":       StatusUnknown,
	"unknown": StatusUnknown,
	"n/a":     StatusNA,
	"na":      StatusNA,
	"-":       StatusNA,
}, StatusUnknown)

// ParseStatus maps a table cell onto a Status. Emoji markers win over text,
// so "✅ 1.26.0" is Yes.
func ParseStatus(cell string) Status {
	for _, m := range markerStatus {
		if strings.Contains(cell, m.marker) {
			return m.status
		}
	}
	return statusNormalizer.Normalize(cell)
}

// Known reports whether the status carries information.
func (s Status) Known() bool { return s != StatusUnknown }
