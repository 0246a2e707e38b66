package jupyter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Notebook is the subset of the nbformat 4 document the renderer needs.
type Notebook struct {
	Cells    []Cell   `json:"cells"`
	Metadata Metadata `json:"metadata"`
}

type Metadata struct {
	KernelSpec struct {
		Language string `json:"language"`
	} `json:"kernelspec"`
	LanguageInfo struct {
		Name string `json:"name"`
	} `json:"language_info"`
}

// Language returns the notebook programming language, python by default.
func (m Metadata) Language() string {
	if m.LanguageInfo.Name != "" {
		return m.LanguageInfo.Name
	}
	if m.KernelSpec.Language != "" {
		return m.KernelSpec.Language
	}
	return "python"
}

type Cell struct {
	Type    string   `json:"cell_type"`
	Source  Text     `json:"source"`
	Outputs []Output `json:"outputs,omitempty"`
}

type Output struct {
	Type   string          `json:"output_type"`
	Name   string          `json:"name,omitempty"`
	Text   Text            `json:"text,omitempty"`
	Data   map[string]Text `json:"data,omitempty"`
	EName  string          `json:"ename,omitempty"`
	EValue string          `json:"evalue,omitempty"`
}

// MIMETypes returns the keys of Data in sorted order.
func (o Output) MIMETypes() []string {
	out := make([]string, 0, len(o.Data))
	for k := range o.Data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Text is a multiline notebook string, stored either as one string or as a
// list of lines.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err == nil {
		*t = Text(strings.Join(lines, ""))
		return nil
	}
	// Structured output data (application/json) is kept as raw JSON.
	*t = Text(data)
	return nil
}

// Parse decodes notebook JSON.
func Parse(data []byte) (*Notebook, error) {
	var nb Notebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, fmt.Errorf("invalid notebook: %w", err)
	}
	return &nb, nil
}
