package commands

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/ftdocs/internal/tracking"
)

// TrackingCmd implements the 'tracking' command.
type TrackingCmd struct {
	Format string `short:"f" help:"Output format (text|json|csv)" enum:"text,json,csv" default:"text"`
	Status bool   `help:"Print a status summary instead of the rows"`
	Sorted bool   `help:"Order rows by project name"`
}

func (t *TrackingCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	page := filepath.Join(cfg.DocsPath(), filepath.FromSlash(cfg.Tool.Tracking.Page))
	// #nosec G304 -- page comes from the site configuration.
	body, err := os.ReadFile(page)
	if err != nil {
		return errors.FileSystemError("failed to read tracking page").WithCause(err).WithContext("path", page).Build()
	}
	table, err := tracking.Parse(body, cfg.Tool.Tracking.KeyColumn)
	if err != nil {
		return errors.ValidationError("cannot read tracking table").WithCause(err).WithContext("path", page).Build()
	}
	if t.Sorted {
		table.Rows = table.Sorted()
	}

	out := g.out()
	if t.Status {
		return table.Stats().WriteText(out)
	}
	switch t.Format {
	case "json":
		return table.WriteJSON(out)
	case "csv":
		return table.WriteCSV(out)
	default:
		return table.WriteText(out)
	}
}
