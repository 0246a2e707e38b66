// Package jupyter renders .ipynb notebooks as site pages.
package jupyter

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/ftdocs/internal/config"
	"git.home.luguber.info/inful/ftdocs/internal/docs"
	"git.home.luguber.info/inful/ftdocs/internal/foundation/errors"
	"git.home.luguber.info/inful/ftdocs/internal/logfields"
	"git.home.luguber.info/inful/ftdocs/internal/plugin"
)

// Name is the plugin key in mkdocs.yml.
const Name = "mkdocs-jupyter"

type Plugin struct {
	include        []string
	includeSource  bool
	ignoreH1Titles bool
	showInput      bool
}

func New() plugin.Plugin { return &Plugin{} }

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Configure(spec config.PluginSpec) error {
	p.include = spec.Strings("include")
	if len(p.include) == 0 {
		p.include = []string{"**/*.ipynb"}
	}
	for _, pattern := range p.include {
		if !strings.HasSuffix(strings.ToLower(pattern), ".ipynb") {
			return fmt.Errorf("include pattern %q must match .ipynb files", pattern)
		}
	}
	p.includeSource = spec.Bool("include_source", false)
	p.ignoreH1Titles = spec.Bool("ignore_h1_titles", false)
	p.showInput = spec.Bool("show_input", true)
	return nil
}

// PageGlobs makes matching notebooks pages instead of static files.
func (p *Plugin) PageGlobs() []string { return p.include }

func (p *Plugin) OnPage(_ context.Context, page *docs.Page, env *plugin.Env) error {
	if page.Kind != docs.KindNotebook {
		return nil
	}
	nb, err := Parse(page.Raw)
	if err != nil {
		return errors.RenderError("failed to read notebook").
			WithContext("page", page.Src).
			WithCause(err).
			Build()
	}

	if page.Anchors == nil {
		page.Anchors = map[string]bool{}
	}
	var out bytes.Buffer
	resolve := env.Site.LinkResolver(page)
	lang := nb.Metadata.Language()
	title := ""
	for i, cell := range nb.Cells {
		switch cell.Type {
		case "markdown":
			src := []byte(cell.Source)
			analysis, analyzeErr := env.Parser.Analyze(src)
			if analyzeErr != nil {
				return fmt.Errorf("cell %d: %w", i, analyzeErr)
			}
			if title == "" {
				title = analysis.Title()
			}
			page.Headings = append(page.Headings, analysis.Headings...)
			page.Links = append(page.Links, analysis.Links...)
			for id := range analysis.Anchors {
				page.Anchors[id] = true
			}
			rendered, renderErr := env.Parser.Render(src, resolve)
			if renderErr != nil {
				return fmt.Errorf("cell %d: %w", i, renderErr)
			}
			out.WriteString(`<div class="jupyter-cell markdown">`)
			out.Write(rendered)
			out.WriteString("</div>\n")
		case "code":
			writeCodeCell(&out, cell, lang, p.showInput)
		case "raw":
			out.WriteString(`<pre class="jupyter-cell raw">`)
			out.WriteString(html.EscapeString(string(cell.Source)))
			out.WriteString("</pre>\n")
		}
	}
	if p.includeSource {
		fmt.Fprintf(&out, `<p class="notebook-download"><a href="%s" download>Download notebook</a></p>`+"\n",
			html.EscapeString(docs.RelativeURL(page.URL, page.Src)))
	}

	if title != "" && !p.ignoreH1Titles && page.Meta.Title == "" {
		page.Title = title
	}
	page.Content = out.Bytes()
	env.Log().Debug("Rendered notebook", logfields.Page(page.Src), "cells", len(nb.Cells))
	return nil
}

// OnPostBuild copies notebook sources next to their pages for download.
func (p *Plugin) OnPostBuild(_ context.Context, env *plugin.Env) error {
	if !p.includeSource {
		return nil
	}
	for _, page := range env.Site.Pages {
		if page.Kind != docs.KindNotebook {
			continue
		}
		if err := env.Output.Write(page.Src, page.Raw); err != nil {
			return err
		}
	}
	return nil
}

func writeCodeCell(out *bytes.Buffer, cell Cell, lang string, showInput bool) {
	out.WriteString(`<div class="jupyter-cell code">`)
	if showInput {
		fmt.Fprintf(out, `<pre><code class="language-%s">%s</code></pre>`,
			html.EscapeString(lang), html.EscapeString(string(cell.Source)))
	}
	for _, o := range cell.Outputs {
		writeOutput(out, o)
	}
	out.WriteString("</div>\n")
}

func writeOutput(out *bytes.Buffer, o Output) {
	switch o.Type {
	case "stream":
		name := o.Name
		if name == "" {
			name = "stdout"
		}
		fmt.Fprintf(out, `<pre class="output stream-%s">%s</pre>`, html.EscapeString(name), html.EscapeString(string(o.Text)))
	case "error":
		fmt.Fprintf(out, `<pre class="output error">%s: %s</pre>`, html.EscapeString(o.EName), html.EscapeString(o.EValue))
	case "execute_result", "display_data":
		if v, ok := o.Data["text/html"]; ok {
			fmt.Fprintf(out, `<div class="output html">%s</div>`, string(v))
			return
		}
		for _, mime := range o.MIMETypes() {
			if strings.HasPrefix(mime, "image/") && mime != "image/svg+xml" {
				data := strings.ReplaceAll(string(o.Data[mime]), "\n", "")
				fmt.Fprintf(out, `<img class="output" src="data:%s;base64,%s" alt="output">`, mime, data)
				return
			}
		}
		if v, ok := o.Data["image/svg+xml"]; ok {
			fmt.Fprintf(out, `<div class="output svg">%s</div>`, string(v))
			return
		}
		if v, ok := o.Data["text/plain"]; ok {
			fmt.Fprintf(out, `<pre class="output">%s</pre>`, html.EscapeString(string(v)))
		}
	}
}
