package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type file struct {
	Layers []Entry `yaml:"layers" toml:"layers"`
}

// Load reads a catalog from a .yaml/.yml or .toml file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".toml":
		return ParseTOML(data)
	default:
		return nil, fmt.Errorf("unsupported catalog format: %s", ext)
	}
}

// ParseYAML decodes a YAML catalog document.
func ParseYAML(data []byte) (*Catalog, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing yaml catalog: %w", err)
	}
	return New(f.Layers)
}

// ParseTOML decodes a TOML catalog document ([[layers]] tables).
func ParseTOML(data []byte) (*Catalog, error) {
	var f file
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("parsing toml catalog: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parsing toml catalog: unknown key %s", undecoded[0])
	}
	return New(f.Layers)
}

// Default returns the built-in freight and energy layer table.
func Default() *Catalog {
	c, err := ParseYAML(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return c
}
