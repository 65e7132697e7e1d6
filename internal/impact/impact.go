// Package impact derives mass and environmental impacts for result rows.
//
// Every mutation recomputes mass, CO2, UBP and kWh from scratch.
package impact

import (
	"errors"
	"fmt"
	"math"

	"lcaweb/internal/domain"
)

var (
	ErrDensityFixed   = errors.New("density is fixed for this material")
	ErrInvalidDensity = errors.New("density must be a non-negative number")
)

// Impacts are the derived outputs of one row.
type Impacts struct {
	Mass float64
	CO2  float64
	UBP  float64
	KWh  float64
}

// Compute derives impacts for row. rec is the row's matched record, nil when
// unmatched; factors apply only when the row carries an accepted match.
func Compute(row domain.ProcessedRow, rec *domain.MaterialRecord) Impacts {
	var out Impacts
	switch row.Unit {
	case domain.UnitVolume:
		if row.Density != nil {
			out.Mass = row.Quantity * row.Density.Value
		}
	default:
		out.Mass = row.Quantity
	}
	if rec == nil || !row.Matched() {
		return out
	}
	out.CO2 = rec.GWP * out.Mass
	out.UBP = rec.UBP * out.Mass
	out.KWh = rec.Energy * out.Mass
	return out
}

func apply(row *domain.ProcessedRow, rec *domain.MaterialRecord) {
	im := Compute(*row, rec)
	row.Mass, row.CO2, row.UBP, row.KWh = im.Mass, im.CO2, im.UBP, im.KWh
}

// Assign binds row to rec with the given score and recomputes.
func Assign(row *domain.ProcessedRow, rec domain.MaterialRecord, score float64) {
	row.MatchedID = rec.ID
	row.MatchedMaterial = rec.DisplayName()
	row.MatchScore = &score
	row.Density = nil
	if rec.Density != nil {
		d := *rec.Density
		row.Density = &d
	}
	apply(row, &rec)
}

// AssignManual is a user selection: always a perfect score.
func AssignManual(row *domain.ProcessedRow, rec domain.MaterialRecord) {
	Assign(row, rec, 0)
}

// Reject clears any match, keeping the row's own quantity.
func Reject(row *domain.ProcessedRow, placeholder string) {
	row.MatchedID = ""
	row.MatchedMaterial = placeholder
	row.MatchScore = nil
	row.Density = nil
	apply(row, nil)
}

// Recompute refreshes derived values, e.g. after the unit changed upstream.
func Recompute(row *domain.ProcessedRow, rec *domain.MaterialRecord) {
	apply(row, rec)
}

// EditDensity sets a user density. Ranged densities are clamped to [min, max];
// point densities and degenerate ranges are fixed and left unchanged. Rows
// without a catalog density accept any non-negative value.
func EditDensity(row *domain.ProcessedRow, value float64, rec *domain.MaterialRecord) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return fmt.Errorf("%v: %w", value, ErrInvalidDensity)
	}
	switch {
	case row.Density == nil || (!row.Density.Ranged && row.MatchedID == ""):
		// No catalog density: the value is the user's own.
		row.Density = &domain.Density{Value: value}
	case row.Density.Fixed():
		return ErrDensityFixed
	default:
		d := *row.Density
		d.Value = math.Min(math.Max(value, d.Min), d.Max)
		row.Density = &d
	}
	apply(row, rec)
	return nil
}
