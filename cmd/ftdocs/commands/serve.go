package commands

import (
	"log/slog"

	"git.home.luguber.info/inful/ftdocs/internal/preview"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr    string `short:"a" help:"Listen address" default:"127.0.0.1:8000"`
	SiteDir string `short:"d" name:"site-dir" help:"Directory receiving the preview build (temporary when empty)" type:"path"`
	Metrics string `help:"Serve prometheus metrics on this address"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	ctx := g.context()
	srv, err := preview.New(preview.Options{
		ConfigPath: root.Config,
		SiteDir:    s.SiteDir,
		Addr:       s.Addr,
		Recorder:   startMetrics(ctx, cfg, s.Metrics),
		Logger:     slog.Default(),
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
