package git

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/ftdocs/internal/logfields"
	"git.home.luguber.info/inful/ftdocs/internal/workspace"
)

// DeployOptions configures a Deployer.
type DeployOptions struct {
	// Remote is the repository that receives the site.
	Remote  string
	Publish config.PublishConfig
	// SourceSHA and Version fill the {sha} and {version} message placeholders.
	SourceSHA string
	Version   string
	// WorkspaceDir is where the target branch is cloned; the system temp
	// directory when empty.
	WorkspaceDir string
	// Auth overrides the token read from Publish.TokenEnv.
	Auth transport.AuthMethod
	Now  func() time.Time
}

// Deployer commits a built site to the publish branch and pushes it.
type Deployer struct {
	opts DeployOptions
}

// DeployResult describes one deploy.
type DeployResult struct {
	Commit  string
	Changed bool
	// Created is set when the branch did not exist on the remote.
	Created bool
}

func NewDeployer(opts DeployOptions) *Deployer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Deployer{opts: opts}
}

// Deploy replaces the content of the publish branch with siteDir. The returned
// commit is the new branch head, or the unchanged head when the site did not
// change.
func (d *Deployer) Deploy(ctx context.Context, siteDir string) (*DeployResult, error) {
	if d.opts.Remote == "" {
		return nil, errors.ConfigError("no publish remote configured").
			WithContext("hint", "set repo_url or ftdocs.publish.remote").
			Build()
	}
	branch := d.opts.Publish.Branch
	ws := workspace.NewManager(d.opts.WorkspaceDir, "ftdocs-deploy")
	if err := ws.Create(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "create deploy workspace").Build()
	}
	defer func() {
		if err := ws.Cleanup(); err != nil {
			slog.Warn("Failed to remove deploy workspace", logfields.Error(err))
		}
	}()

	auth := d.auth()
	repo, created, err := d.checkout(ctx, ws.Path(), branch, auth)
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, ClassifyGitError(err, "worktree", d.opts.Remote)
	}

	if err := replaceTree(ws.Path(), siteDir); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "copy site into deploy workspace").
			WithContext("site_dir", siteDir).
			Build()
	}
	if err := d.writeExtras(ws.Path()); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "write publish metadata files").Build()
	}

	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return nil, ClassifyGitError(err, "add", d.opts.Remote)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, ClassifyGitError(err, "status", d.opts.Remote)
	}
	if status.IsClean() {
		head := ""
		if ref, headErr := repo.Head(); headErr == nil {
			head = ref.Hash().String()
		}
		slog.Info("Site unchanged, nothing to publish", logfields.Branch(branch), logfields.Commit(ShortHash(head)))
		return &DeployResult{Commit: head, Created: created}, nil
	}

	when := d.opts.Now()
	hash, err := wt.Commit(d.message(), &git.CommitOptions{
		Author: &object.Signature{Name: d.opts.Publish.AuthorName, Email: d.opts.Publish.AuthorEmail, When: when},
	})
	if err != nil {
		return nil, ClassifyGitError(err, "commit", d.opts.Remote)
	}

	ref := plumbing.NewBranchReferenceName(branch)
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(ref.String() + ":" + ref.String())},
		Auth:       auth,
		Force:      d.opts.Publish.Force,
	})
	if err != nil && !stderrors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil, ClassifyGitError(err, "push", d.opts.Remote)
	}

	slog.Info("Published site",
		logfields.Branch(branch),
		logfields.Commit(ShortHash(hash.String())),
		slog.Bool("created_branch", created))
	return &DeployResult{Commit: hash.String(), Changed: true, Created: created}, nil
}

// checkout clones the publish branch into dir, or initialises an orphan
// branch when the remote does not have it yet.
func (d *Deployer) checkout(ctx context.Context, dir, branch string, auth transport.AuthMethod) (*git.Repository, bool, error) {
	ref := plumbing.NewBranchReferenceName(branch)
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:           d.opts.Remote,
		ReferenceName: ref,
		SingleBranch:  true,
		Auth:          auth,
	})
	if err == nil {
		return repo, false, nil
	}
	if !isMissingBranch(err) {
		return nil, false, ClassifyGitError(err, "clone", d.opts.Remote)
	}

	slog.Info("Publish branch does not exist yet, creating orphan branch", logfields.Branch(branch))
	if cleanErr := clearDir(dir, nil); cleanErr != nil {
		return nil, false, errors.WrapError(cleanErr, errors.CategoryFileSystem, "reset deploy workspace").Build()
	}
	repo, err = git.PlainInit(dir, false)
	if err != nil {
		return nil, false, ClassifyGitError(err, "init", d.opts.Remote)
	}
	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{d.opts.Remote}}); err != nil {
		return nil, false, ClassifyGitError(err, "remote", d.opts.Remote)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, ref)); err != nil {
		return nil, false, ClassifyGitError(err, "init", d.opts.Remote)
	}
	return repo, true, nil
}

func isMissingBranch(err error) bool {
	if stderrors.Is(err, plumbing.ErrReferenceNotFound) || stderrors.Is(err, transport.ErrEmptyRemoteRepository) {
		return true
	}
	l := strings.ToLower(err.Error())
	return strings.Contains(l, "couldn't find remote ref") || strings.Contains(l, "reference not found")
}

func (d *Deployer) auth() transport.AuthMethod {
	if d.opts.Auth != nil {
		return d.opts.Auth
	}
	if !strings.HasPrefix(d.opts.Remote, "http://") && !strings.HasPrefix(d.opts.Remote, "https://") {
		return nil
	}
	token := os.Getenv(d.opts.Publish.TokenEnv)
	if token == "" {
		return nil
	}
	return &http.BasicAuth{Username: d.opts.Publish.TokenUser, Password: token}
}

func (d *Deployer) message() string {
	sha := d.opts.SourceSHA
	if sha == "" {
		sha = "unknown"
	}
	return strings.NewReplacer("{sha}", sha, "{version}", d.opts.Version).Replace(d.opts.Publish.Message)
}

func (d *Deployer) writeExtras(dir string) error {
	if err := os.WriteFile(filepath.Join(dir, ".nojekyll"), nil, 0o600); err != nil {
		return err
	}
	if d.opts.Publish.CNAME != "" {
		return os.WriteFile(filepath.Join(dir, "CNAME"), []byte(d.opts.Publish.CNAME+"\n"), 0o600)
	}
	return nil
}

// replaceTree empties dir (keeping .git) and copies src into it.
// buildStateDir holds the build manifest inside site_dir. It is never published.
const buildStateDir = ".ftdocs"

func replaceTree(dir, src string) error {
	if err := clearDir(dir, map[string]bool{".git": true}); err != nil {
		return err
	}
	return filepath.WalkDir(src, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(src, p)
		if relErr != nil || rel == "." {
			return relErr
		}
		if entry.IsDir() && (entry.Name() == ".git" || rel == buildStateDir) {
			return filepath.SkipDir
		}
		target := filepath.Join(dir, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		return copyFile(p, target)
	})
}

func clearDir(dir string, keep map[string]bool) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o750)
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if keep[e.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) (err error) {
	// #nosec G304 -- src comes from walking the build output.
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	// #nosec G304 -- dst is inside the deploy workspace.
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err = io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}
