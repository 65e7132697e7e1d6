// Package mapping proposes which upload columns hold element, material and quantity.
package mapping

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"lcaweb/internal/domain"
	"lcaweb/internal/numparse"
)

// Unset marks a field without a column.
const Unset = -1

// quantityEpsilon is the tolerance when matching a normalized quantity back to a raw cell.
const quantityEpsilon = 0.001

var (
	ErrUnassigned = errors.New("column not assigned")
	ErrOutOfRange = errors.New("column index out of range")
)

// Field is a semantic column role.
type Field string

const (
	FieldElement  Field = "element"
	FieldMaterial Field = "material"
	FieldQuantity Field = "quantity"
)

// Fields in form order.
var Fields = []Field{FieldElement, FieldMaterial, FieldQuantity}

// fieldKeywords is consulted in order; within a field the earlier keyword wins.
var fieldKeywords = []struct {
	field    Field
	keywords []string
}{
	{FieldElement, []string{
		"element", "bauteil", "élément", "ifcclass", "typename", "type", "typ",
		"objekt", "object", "ouvrage", "component", "kategorie", "category",
	}},
	{FieldMaterial, []string{
		"material", "matériau", "materiau", "werkstoff", "baustoff", "stoff", "substance",
	}},
	{FieldQuantity, []string{
		"menge", "quantity", "quantité", "quantite", "qty", "anzahl",
		"volume", "volumen", "masse", "mass", "gewicht", "weight", "amount",
	}},
}

var (
	volumeKeywords = []string{"m3", "m³", "volume", "volumen", "kubik", "cbm"}
	massKeywords   = []string{"kg", "mass", "masse", "gewicht", "weight", "tonne"}
)

// Detection is a proposed mapping; Unset marks a field still to be chosen.
type Detection struct {
	Element  int `json:"element"`
	Material int `json:"material"`
	Quantity int `json:"quantity"`
}

// Empty is a detection with nothing assigned.
func Empty() Detection {
	return Detection{Element: Unset, Material: Unset, Quantity: Unset}
}

// Get returns the column for f.
func (d Detection) Get(f Field) int {
	switch f {
	case FieldElement:
		return d.Element
	case FieldMaterial:
		return d.Material
	case FieldQuantity:
		return d.Quantity
	}
	return Unset
}

func (d *Detection) set(f Field, idx int) {
	switch f {
	case FieldElement:
		d.Element = idx
	case FieldMaterial:
		d.Material = idx
	case FieldQuantity:
		d.Quantity = idx
	}
}

// FromMapping turns a stored mapping back into a detection.
func FromMapping(m domain.ColumnMapping) Detection {
	return Detection{Element: m.Element, Material: m.Material, Quantity: m.Quantity}
}

// Detect runs the keyword table over lower-cased headers.
func Detect(headers []string) Detection {
	lower := lowerAll(headers)
	d := Empty()
	for _, fk := range fieldKeywords {
		d.set(fk.field, firstKeywordHit(lower, fk.keywords))
	}
	return d
}

func firstKeywordHit(lower, keywords []string) int {
	for _, kw := range keywords {
		for i, h := range lower {
			if strings.Contains(h, kw) {
				return i
			}
		}
	}
	return Unset
}

// DetectUnit proposes volume only when volume headers exist and mass headers do not.
func DetectUnit(headers []string) domain.Unit {
	lower := lowerAll(headers)
	if anyContains(lower, volumeKeywords) && !anyContains(lower, massKeywords) {
		return domain.UnitVolume
	}
	return domain.UnitMass
}

func anyContains(lower, keywords []string) bool {
	return firstKeywordHit(lower, keywords) != Unset
}

func lowerAll(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

// Validate checks a user submitted detection against the header count.
func Validate(d Detection, unit domain.Unit, headerCount int) (domain.ColumnMapping, error) {
	for _, f := range Fields {
		idx := d.Get(f)
		if idx == Unset {
			return domain.ColumnMapping{}, fmt.Errorf("%s: %w", f, ErrUnassigned)
		}
		if idx < 0 || idx >= headerCount {
			return domain.ColumnMapping{}, fmt.Errorf("%s column %d: %w", f, idx, ErrOutOfRange)
		}
	}
	if unit != domain.UnitVolume {
		unit = domain.UnitMass
	}
	return domain.ColumnMapping{
		Element:  d.Element,
		Material: d.Material,
		Quantity: d.Quantity,
		Unit:     unit,
	}, nil
}

// Reconstruct guesses the columns that produced row from the first raw row.
// Text fields match by equality, the quantity by closeness after normalization.
func Reconstruct(first domain.RawRow, row domain.ProcessedRow) Detection {
	d := Empty()
	used := map[int]bool{}
	d.Element = findCell(first, used, func(c string) bool { return strings.TrimSpace(c) == row.Element })
	d.Material = findCell(first, used, func(c string) bool { return strings.TrimSpace(c) == row.Material })
	d.Quantity = findCell(first, used, func(c string) bool {
		if strings.TrimSpace(c) == "" {
			return false
		}
		return math.Abs(numparse.Normalize(c)-row.Quantity) < quantityEpsilon
	})
	return d
}

// findCell prefers a column not claimed yet, then any column.
func findCell(cells domain.RawRow, used map[int]bool, match func(string) bool) int {
	fallback := Unset
	for i, c := range cells {
		if !match(c) {
			continue
		}
		if !used[i] {
			used[i] = true
			return i
		}
		if fallback == Unset {
			fallback = i
		}
	}
	return fallback
}

// Resume picks the starting point when the mapper is reopened: the stored
// mapping if it still fits, else a reconstruction, else fresh detection.
func Resume(headers []string, prior *domain.ColumnMapping, raw []domain.RawRow, rows []domain.ProcessedRow) (Detection, domain.Unit) {
	if prior != nil {
		if m, err := Validate(FromMapping(*prior), prior.Unit, len(headers)); err == nil {
			return FromMapping(m), m.Unit
		}
	}
	detected := Detect(headers)
	unit := DetectUnit(headers)
	if row, ok := firstSourceRow(rows); ok && len(raw) > 0 {
		rebuilt := Reconstruct(raw[0], row)
		for _, f := range Fields {
			if idx := rebuilt.Get(f); idx != Unset {
				detected.set(f, idx)
			}
		}
		unit = row.Unit
	}
	return detected, unit
}

// firstSourceRow finds the processed row built from the first raw row.
func firstSourceRow(rows []domain.ProcessedRow) (domain.ProcessedRow, bool) {
	for _, r := range rows {
		if r.Source == 0 {
			return r, true
		}
	}
	return domain.ProcessedRow{}, false
}

// Preview returns at most n rows for display beside the form.
func Preview(rows []domain.RawRow, n int) []domain.RawRow {
	if n < 0 || len(rows) <= n {
		return rows
	}
	return rows[:n]
}

// Apply extracts pending result rows from raw rows. Quantities are normalized;
// rows whose three mapped cells are all blank are skipped.
func Apply(raw []domain.RawRow, m domain.ColumnMapping) []domain.ProcessedRow {
	out := make([]domain.ProcessedRow, 0, len(raw))
	for i, r := range raw {
		el := strings.TrimSpace(r.Cell(m.Element))
		mat := strings.TrimSpace(r.Cell(m.Material))
		qty := strings.TrimSpace(r.Cell(m.Quantity))
		if el == "" && mat == "" && qty == "" {
			continue
		}
		out = append(out, domain.ProcessedRow{
			Source:   i,
			Element:  el,
			Material: mat,
			Quantity: numparse.Normalize(qty),
			Unit:     m.Unit,
		})
	}
	return out
}
