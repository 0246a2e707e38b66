// Package manifest records what a build consumed and produced. The manifest
// holds no timestamps, so two builds of the same sources produce the same
// manifest and the same hash.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Manifest is the record of one build.
type Manifest struct {
	SiteName   string            `json:"site_name"`
	ConfigHash string            `json:"config_hash"`
	Plugins    []string          `json:"plugins"`
	Pages      []PageEntry       `json:"pages"`
	Outputs    map[string]string `json:"outputs"`
}

// PageEntry describes one source page.
type PageEntry struct {
	Src          string `json:"src"`
	URL          string `json:"url"`
	Fingerprint  string `json:"fingerprint"`
	RevisionDate string `json:"revision_date,omitempty"`
}

// New creates an empty manifest.
func New(siteName string, configData []byte, plugins []string) *Manifest {
	sum := sha256.Sum256(configData)
	return &Manifest{
		SiteName:   siteName,
		ConfigHash: hex.EncodeToString(sum[:]),
		Plugins:    append([]string(nil), plugins...),
		Outputs:    map[string]string{},
	}
}

// AddPage records a source page.
func (m *Manifest) AddPage(e PageEntry) {
	m.Pages = append(m.Pages, e)
}

// AddOutput records the content hash of an output file.
func (m *Manifest) AddOutput(rel string, data []byte) {
	sum := sha256.Sum256(data)
	m.Outputs[rel] = hex.EncodeToString(sum[:])
}

// OutputPaths returns the recorded output paths in sorted order.
func (m *Manifest) OutputPaths() []string {
	out := make([]string, 0, len(m.Outputs))
	for k := range m.Outputs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ToJSON serializes the manifest to JSON with pages in source order.
func (m *Manifest) ToJSON() ([]byte, error) {
	sort.Slice(m.Pages, func(i, j int) bool { return m.Pages[i].Src < m.Pages[j].Src })
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// FromJSON deserializes a manifest from JSON.
func FromJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	if m.Outputs == nil {
		m.Outputs = map[string]string{}
	}
	return &m, nil
}

// Hash identifies the built site: it covers the inputs and every output file.
func (m *Manifest) Hash() (string, error) {
	data, err := m.ToJSON()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Write stores the manifest at path, creating parent directories.
func (m *Manifest) Write(path string) error {
	data, err := m.ToJSON()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Read loads a manifest written by Write.
func Read(path string) (*Manifest, error) {
	// #nosec G304 -- operator supplied path.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromJSON(data)
}
