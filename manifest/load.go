package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"sigs.k8s.io/yaml"
)

// Format identifies the encoding of a manifest file.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf picks the manifest encoding from the file extension.
// YAML (and therefore JSON) is used for .yaml, .yml and .json files,
// TOML for everything else.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Load reads, validates, and decodes the manifest file at path.
func Load(path string) (*File, error) {
	p, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Problems: []string{fmt.Sprintf("read manifest: %v", err)}}
	}

	f, err := Parse(p, FormatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return f, nil
}

// Parse decodes and validates a manifest document.
func Parse(p []byte, format Format) (*File, error) {
	var doc map[string]any

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(p, &doc); err != nil {
			return nil, &ConfigError{Problems: []string{fmt.Sprintf("decode yaml: %v", err)}}
		}
	default:
		if err := toml.Unmarshal(p, &doc); err != nil {
			return nil, &ConfigError{Problems: []string{fmt.Sprintf("decode toml: %v", err)}}
		}
	}

	// Normalize through JSON so TOML and YAML documents validate and decode
	// identically.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, &ConfigError{Problems: []string{fmt.Sprintf("normalize manifest: %v", err)}}
	}

	if err := validate(raw); err != nil {
		return nil, &ConfigError{Problems: []string{err.Error()}}
	}

	var f File

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&f); err != nil {
		return nil, &ConfigError{Problems: []string{fmt.Sprintf("decode manifest: %v", err)}}
	}

	return &f, nil
}

// Open loads the manifest at path and resolves it against lookup.
func Open(path string, lookup LookupFunc) (*Manifest, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Resolve(f, lookup)
}
