package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/ftdocs/cmd/ftdocs/commands"
	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/ftdocs/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Must(cli,
		kong.Name("ftdocs"),
		kong.Description("Build, check and publish the free-threaded Python guide."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
	)
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = kctx.Run(&commands.Global{Ctx: ctx, Out: os.Stdout}, cli)
	stop()
	errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
