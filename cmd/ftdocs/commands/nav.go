package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/ftdocs/internal/build"
	"git.home.luguber.info/inful/ftdocs/internal/nav"
)

// NavCmd implements the 'nav' command.
type NavCmd struct {
	Format string `help:"Output format (text|json)" enum:"text,json" default:"text"`
}

type navJSON struct {
	Title    string    `json:"title"`
	Kind     string    `json:"kind"`
	Src      string    `json:"src,omitempty"`
	URL      string    `json:"url,omitempty"`
	Children []navJSON `json:"children,omitempty"`
}

func (n *NavCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	strict := false
	builder, err := build.New(build.Options{
		Config:       cfg,
		ConfigFile:   root.Config,
		Strict:       &strict,
		ValidateOnly: true,
		Logger:       slog.Default(),
	})
	if err != nil {
		return err
	}
	report, err := builder.Build(g.context())
	if report == nil || report.Nav == nil {
		return err
	}
	var printErr error
	if n.Format == "json" {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		printErr = enc.Encode(toNavJSON(report.Nav.Entries))
	} else {
		printErr = writeNav(g.out(), report.Nav.Entries, 0)
	}
	if err != nil {
		return err
	}
	return printErr
}

func toNavJSON(entries []*nav.Entry) []navJSON {
	out := make([]navJSON, 0, len(entries))
	for _, e := range entries {
		item := navJSON{Title: e.Title, Kind: string(e.Kind), URL: e.URL}
		if e.Page != nil {
			item.Src, item.URL = e.Page.Src, e.Page.URL
		}
		item.Children = toNavJSON(e.Children)
		out = append(out, item)
	}
	return out
}

func writeNav(w io.Writer, entries []*nav.Entry, depth int) error {
	indent := strings.Repeat("  ", depth)
	for _, e := range entries {
		var err error
		switch e.Kind {
		case nav.KindSection:
			_, err = fmt.Fprintf(w, "%s%s/\n", indent, e.Title)
			if err == nil {
				err = writeNav(w, e.Children, depth+1)
			}
		case nav.KindPage:
			_, err = fmt.Fprintf(w, "%s%s  (%s -> /%s)\n", indent, e.Title, e.Page.Src, e.Page.URL)
		default:
			_, err = fmt.Fprintf(w, "%s%s  -> %s\n", indent, e.Title, e.URL)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
