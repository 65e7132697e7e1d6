package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"lcaweb/internal/domain"
)

//go:embed seed/materials.yaml
var defaultSeed []byte

// SeedFile is the YAML layout of a catalog seed.
type SeedFile struct {
	Version   int64                   `yaml:"version"`
	Materials []domain.MaterialRecord `yaml:"materials"`
}

// DefaultSeed parses the embedded catalog.
func DefaultSeed() (SeedFile, error) {
	return ParseSeed(defaultSeed)
}

// LoadSeed reads a seed file from disk; an empty path yields the embedded catalog.
func LoadSeed(path string) (SeedFile, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSeed()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("read seed %s: %w", path, err)
	}
	return ParseSeed(raw)
}

// ParseSeed decodes YAML and fills in the density midpoint for ranges.
func ParseSeed(raw []byte) (SeedFile, error) {
	var f SeedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return SeedFile{}, fmt.Errorf("parse seed: %w", err)
	}
	for i := range f.Materials {
		m := &f.Materials[i]
		m.ID = strings.TrimSpace(m.ID)
		if m.ID == "" {
			return SeedFile{}, fmt.Errorf("parse seed: material %d has no id", i)
		}
		if m.Unit == "" {
			m.Unit = "kg"
		}
		if d := m.Density; d != nil && (d.Min != 0 || d.Max != 0) {
			r := domain.NewRange(d.Min, d.Max)
			if d.Value >= r.Min && d.Value <= r.Max && d.Value != 0 {
				r.Value = d.Value
			}
			*d = r
		}
	}
	return f, nil
}
