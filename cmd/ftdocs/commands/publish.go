package commands

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/ftdocs/internal/build"
	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/ftdocs/internal/git"
	"git.home.luguber.info/inful/ftdocs/internal/logfields"
	"git.home.luguber.info/inful/ftdocs/internal/retry"
	"git.home.luguber.info/inful/ftdocs/internal/version"
)

// PublishCmd implements the 'publish' command: a strict build followed by a
// push to the publish branch, regardless of workflow triggers.
type PublishCmd struct {
	Remote  string `help:"Override the publish remote"`
	Branch  string `short:"b" help:"Override the publish branch"`
	Message string `short:"m" help:"Override the commit message ({sha} and {version} are replaced)"`
	Force   bool   `help:"Force push the publish branch"`
	NoBuild bool   `name:"no-build" help:"Publish the existing site_dir without rebuilding"`
}

func (p *PublishCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	ctx := g.context()
	pub := cfg.Tool.Publish
	if p.Branch != "" {
		pub.Branch = p.Branch
	}
	if p.Message != "" {
		pub.Message = p.Message
	}
	pub.Force = pub.Force || p.Force
	remote := p.Remote
	if remote == "" {
		remote = cfg.PublishRemote()
	}
	if remote == "" {
		return errors.ConfigError("no publish remote: set repo_url or ftdocs.publish.remote").UserAction().Build()
	}

	siteDir := cfg.SitePath()
	if !p.NoBuild {
		builder, err := build.New(build.Options{Config: cfg, ConfigFile: root.Config, Logger: slog.Default()})
		if err != nil {
			return err
		}
		report, err := builder.Build(ctx)
		if err != nil {
			return err
		}
		siteDir = report.SiteDir
	}

	sha, err := git.HeadCommit(cfg.Root())
	if err != nil {
		slog.Warn("Cannot resolve source commit", logfields.Error(err))
	}
	deployer := git.NewDeployer(git.DeployOptions{
		Remote:    remote,
		Publish:   pub,
		SourceSHA: sha,
		Version:   version.Version,
	})

	policy := retry.FromConfig(cfg.Tool.Retry)
	var res *git.DeployResult
	err = policy.Do(ctx, "publish", func(int) error {
		var deployErr error
		res, deployErr = deployer.Deploy(ctx, siteDir)
		return deployErr
	}, errors.IsRetryable)
	if err != nil {
		return err
	}
	if !res.Changed {
		_, err = fmt.Fprintf(g.out(), "Site unchanged; %s is already at %s\n", pub.Branch, git.ShortHash(res.Commit))
		return err
	}
	_, err = fmt.Fprintf(g.out(), "Published %s to %s\n", git.ShortHash(res.Commit), pub.Branch)
	return err
}
