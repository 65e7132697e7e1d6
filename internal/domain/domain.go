// Package domain holds the types shared by the bill-of-quantities pipeline.
package domain

import (
	"fmt"
	"strings"
)

// Unit is the physical unit of a quantity column.
type Unit string

const (
	UnitMass   Unit = "kg"
	UnitVolume Unit = "m3"
)

// ParseUnit accepts the spellings used by forms and the match API.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "kg", "mass", "masse":
		return UnitMass, nil
	case "m3", "m³", "volume", "volumen":
		return UnitVolume, nil
	default:
		return "", fmt.Errorf("unknown unit %q", s)
	}
}

// Label is the human readable unit name.
func (u Unit) Label() string {
	if u == UnitVolume {
		return "m³"
	}
	return "kg"
}

// Placeholders written into MatchedMaterial when no catalog record applies.
const (
	NoMatchPlaceholder = "No match found"
	ErrorPlaceholder   = "Error: catalog unavailable"
)

// RawRow is one line of the uploaded file. Never mutated after parsing.
type RawRow []string

// Cell returns the cell at i or "" for ragged rows.
func (r RawRow) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// ColumnMapping binds the semantic fields to column positions.
// Positions, not names, because headers may repeat.
type ColumnMapping struct {
	Element  int  `json:"element"`
	Material int  `json:"material"`
	Quantity int  `json:"quantity"`
	Unit     Unit `json:"unit"`
}

// Density is a catalog density in kg/m³, either a point value or a min/max range.
type Density struct {
	Value  float64 `json:"value" yaml:"value"`
	Min    float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max    float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Ranged bool    `json:"ranged,omitempty" yaml:"ranged,omitempty"`
}

// NewRange builds a ranged density whose value starts at the midpoint.
func NewRange(lo, hi float64) Density {
	if lo > hi {
		lo, hi = hi, lo
	}
	return Density{Value: (lo + hi) / 2, Min: lo, Max: hi, Ranged: true}
}

// Fixed reports whether user edits must be rejected.
func (d Density) Fixed() bool {
	return !d.Ranged || d.Min == d.Max
}

// MaterialRecord is one catalog entry. Factors are per kg.
type MaterialRecord struct {
	ID      string   `json:"id" yaml:"id"`
	NameDE  string   `json:"nameDE,omitempty" yaml:"name_de"`
	NameEN  string   `json:"nameEN,omitempty" yaml:"name_en"`
	NameFR  string   `json:"nameFR,omitempty" yaml:"name_fr"`
	Unit    string   `json:"unit" yaml:"unit"`
	Density *Density `json:"density,omitempty" yaml:"density,omitempty"`
	GWP     float64  `json:"gwp" yaml:"gwp"`
	UBP     float64  `json:"ubp" yaml:"ubp"`
	Energy  float64  `json:"energy" yaml:"energy"`
}

// Names lists the non-empty localized names in display priority.
func (m MaterialRecord) Names() []string {
	names := make([]string, 0, 3)
	for _, n := range []string{m.NameDE, m.NameEN, m.NameFR} {
		if strings.TrimSpace(n) != "" {
			names = append(names, n)
		}
	}
	return names
}

// DisplayName is the first localized name, falling back to the id.
func (m MaterialRecord) DisplayName() string {
	if names := m.Names(); len(names) > 0 {
		return names[0]
	}
	return m.ID
}

// MassBased reports whether the record is eligible for matching.
func (m MaterialRecord) MassBased() bool {
	return strings.EqualFold(strings.TrimSpace(m.Unit), "kg")
}

// ProcessedRow is one result row. Mass is always kg.
type ProcessedRow struct {
	Source          int      `json:"source"`
	Element         string   `json:"element"`
	Material        string   `json:"material"`
	Quantity        float64  `json:"quantity"`
	Unit            Unit     `json:"unit"`
	Mass            float64  `json:"mass"`
	MatchedID       string   `json:"matchedId,omitempty"`
	MatchedMaterial string   `json:"matchedMaterial"`
	MatchScore      *float64 `json:"matchScore"`
	Density         *Density `json:"density,omitempty"`
	CO2             float64  `json:"co2"`
	UBP             float64  `json:"ubp"`
	KWh             float64  `json:"kwh"`
}

// Matched reports whether the row carries an accepted catalog match.
func (r ProcessedRow) Matched() bool {
	return r.MatchedID != "" && r.MatchScore != nil
}
