package config

import (
	"os"

	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
)

const starterConfig = `# Site configuration (mkdocs schema, read by ftdocs).
site_name: My Documentation
site_url: https://example.github.io/docs/
repo_url: https://github.com/example/docs
docs_dir: docs
site_dir: site
strict: true

theme:
  name: ftdocs
  language: en

nav:
  - Home: index.md

plugins:
  - search
  - git-revision-date-localized:
      type: date
      locale: en

markdown_extensions:
  - tables
  - footnotes
  - attr_list
  - toc

ftdocs:
  publish:
    branch: gh-pages
    source_branch: main
    token_env: DEPLOY_TOKEN
`

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.NewError(errors.CategoryConfig, "configuration file already exists (use --force to overwrite)").
			WithContext("path", configPath).
			UserAction().
			Build()
	}
	// #nosec G306 -- configuration is meant to be committed and readable.
	if err := os.WriteFile(configPath, []byte(starterConfig), 0o644); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write config file").
			WithContext("path", configPath).
			Build()
	}
	return nil
}
