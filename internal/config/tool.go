package config

import (
	"time"

	"git.home.luguber.info/inful/ftdocs/internal/foundation/normalization"
)

// ToolConfig groups the ftdocs specific settings stored under the `ftdocs` key.
type ToolConfig struct {
	Log      LogConfig      `yaml:"log,omitempty"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty"`
	Publish  PublishConfig  `yaml:"publish,omitempty"`
	Retry    RetryConfig    `yaml:"retry,omitempty"`
	Notify   NotifyConfig   `yaml:"notify,omitempty"`
	History  HistoryConfig  `yaml:"history,omitempty"`
	Tracking TrackingConfig `yaml:"tracking,omitempty"`
	Workflow WorkflowConfig `yaml:"workflow,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Listen  string `yaml:"listen,omitempty"`
}

// PublishConfig describes where the built site is pushed.
type PublishConfig struct {
	// Remote is the git URL of the hosting repository; defaults to repo_url.
	Remote string `yaml:"remote,omitempty"`
	// Branch receives the generated site.
	Branch string `yaml:"branch,omitempty"`
	// SourceBranch is the only branch whose pushes are published.
	SourceBranch string `yaml:"source_branch,omitempty"`
	// TokenEnv names the environment variable holding the deploy credential.
	TokenEnv    string `yaml:"token_env,omitempty"`
	TokenUser   string `yaml:"token_user,omitempty"`
	Message     string `yaml:"message,omitempty"`
	CNAME       string `yaml:"cname,omitempty"`
	AuthorName  string `yaml:"author_name,omitempty"`
	AuthorEmail string `yaml:"author_email,omitempty"`
	Force       bool   `yaml:"force,omitempty"`
}

// RetryBackoffMode enumerates supported backoff strategies.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

var retryModeNormalizer = normalization.NewNormalizer(map[string]RetryBackoffMode{
	"fixed":       RetryBackoffFixed,
	"linear":      RetryBackoffLinear,
	"exponential": RetryBackoffExponential,
}, RetryBackoffLinear)

// NormalizeRetryMode maps a raw string onto a backoff mode (linear by default).
func NormalizeRetryMode(raw string) RetryBackoffMode {
	return retryModeNormalizer.Normalize(raw)
}

type RetryConfig struct {
	Mode       RetryBackoffMode `yaml:"mode,omitempty"`
	Initial    time.Duration    `yaml:"initial,omitempty"`
	Max        time.Duration    `yaml:"max,omitempty"`
	MaxRetries int              `yaml:"max_retries,omitempty"`
}

type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

type HistoryConfig struct {
	Disabled bool   `yaml:"disabled,omitempty"`
	Path     string `yaml:"path,omitempty"`
}

type TrackingConfig struct {
	Page      string `yaml:"page,omitempty"`
	KeyColumn string `yaml:"key_column,omitempty"`
	// Level reports table problems. The table is informational, so the
	// default never fails a strict build.
	Level ValidationLevel `yaml:"level,omitempty"`
}

type WorkflowConfig struct {
	Path string `yaml:"path,omitempty"`
}

func (t *ToolConfig) applyDefaults() {
	if t.Metrics.Listen == "" {
		t.Metrics.Listen = ":9464"
	}
	p := &t.Publish
	if p.Branch == "" {
		p.Branch = "gh-pages"
	}
	if p.SourceBranch == "" {
		p.SourceBranch = "main"
	}
	if p.TokenEnv == "" {
		p.TokenEnv = "DEPLOY_TOKEN"
	}
	if p.TokenUser == "" {
		p.TokenUser = "x-access-token"
	}
	if p.Message == "" {
		p.Message = "Deployed {sha} with ftdocs version {version}"
	}
	if p.AuthorName == "" {
		p.AuthorName = "ftdocs"
	}
	if p.AuthorEmail == "" {
		p.AuthorEmail = "ftdocs@users.noreply.github.com"
	}
	r := &t.Retry
	if r.Initial == 0 {
		r.Initial = time.Second
	}
	if r.Max == 0 {
		r.Max = 30 * time.Second
	}
	if r.MaxRetries == 0 {
		r.MaxRetries = 2
	}
	if t.Notify.Subject == "" {
		t.Notify.Subject = "ftdocs.runs"
	}
	if t.History.Path == "" {
		t.History.Path = ".ftdocs/runs.db"
	}
	if t.Tracking.Page == "" {
		t.Tracking.Page = "tracking.md"
	}
	if t.Tracking.KeyColumn == "" {
		t.Tracking.KeyColumn = "project"
	}
	setLevel(&t.Tracking.Level, LevelInfo)
	if t.Workflow.Path == "" {
		t.Workflow.Path = ".github/workflows/deploy.yml"
	}
}

// HistoryPath resolves the run history database location.
func (c *Config) HistoryPath() string { return c.resolve(c.Tool.History.Path) }

// WorkflowPath resolves the workflow definition location.
func (c *Config) WorkflowPath() string { return c.resolve(c.Tool.Workflow.Path) }

// PublishRemote returns the git remote that receives the site.
func (c *Config) PublishRemote() string {
	if c.Tool.Publish.Remote != "" {
		return c.Tool.Publish.Remote
	}
	return c.RepoURL
}
