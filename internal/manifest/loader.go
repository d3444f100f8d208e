package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Loader loads and serializes versions manifests
type Loader struct{}

// NewLoader creates a new manifest loader
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses a manifest file from the given path. The encoding is
// chosen by file extension: .json and .yaml/.yml dispatch to the matching
// decoder, everything else (including .toml and no extension) decodes as TOML.
func (l *Loader) Load(path string) (*VersionsManifest, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	return l.LoadFromBytes(data, filepath.Ext(path))
}

// LoadFromBytes parses a manifest from raw bytes using the encoding implied
// by ext (case-insensitive, TOML fallback). The top-level versions table is
// required; a document without one fails with a ParseError even when it
// otherwise decodes. An explicitly empty versions table is fine.
func (l *Loader) LoadFromBytes(data []byte, ext string) (*VersionsManifest, error) {
	var m VersionsManifest
	format := formatForExt(ext)

	switch format {
	case "json":
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, &ParseError{Format: format, Err: err}
		}
	case "yaml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, &ParseError{Format: format, Err: err}
		}
	default:
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, &ParseError{Format: format, Err: err}
		}
	}

	if m.Versions == nil {
		return nil, &ParseError{Format: format, Err: errors.New("missing required 'versions' table")}
	}

	return &m, nil
}

// Encode serializes a manifest using the encoding implied by ext. Optional
// fields left at their defaults are omitted, so a load/encode round trip
// reproduces exactly the explicitly-set fields.
func (l *Loader) Encode(m *VersionsManifest, ext string) ([]byte, error) {
	switch format := formatForExt(ext); format {
	case "json":
		return json.MarshalIndent(m, "", "  ")
	case "yaml":
		return yaml.Marshal(m)
	default:
		return toml.Marshal(m)
	}
}

func formatForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".json":
		return "json"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "toml"
	}
}
