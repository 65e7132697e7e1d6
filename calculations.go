// calculations.go
package main

import (
	"fmt"
	"math"
	"sort"

	"lcaweb/internal/domain"
)

// statOps are the summary columns of the results page.
var statOps = []string{"sum", "average", "median", "min", "max"}

func performCalculation(values []float64, op string) (float64, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("no numeric values")
	}
	switch op {
	case "sum":
		return sum(values), nil
	case "average":
		return avg(values), nil
	case "median":
		return median(values), nil
	case "min":
		return minOf(values), nil
	case "max":
		return maxOf(values), nil
	case "count":
		return float64(len(values)), nil
	case "std":
		return std(values), nil
	default:
		return 0, fmt.Errorf("unsupported operation %q", op)
	}
}

// impactStats summarizes the impact columns of rows.
func impactStats(rows []domain.ProcessedRow) []StatRow {
	metrics := []struct {
		label, unit string
		value       func(domain.ProcessedRow) float64
	}{
		{"Mass", "kg", func(r domain.ProcessedRow) float64 { return r.Mass }},
		{"CO2", "kg CO2-eq", func(r domain.ProcessedRow) float64 { return r.CO2 }},
		{"UBP", "points", func(r domain.ProcessedRow) float64 { return r.UBP }},
		{"Energy", "kWh", func(r domain.ProcessedRow) float64 { return r.KWh }},
	}
	out := make([]StatRow, 0, len(metrics))
	for _, m := range metrics {
		values := make([]float64, len(rows))
		for i, r := range rows {
			values[i] = m.value(r)
		}
		stat := StatRow{Label: m.label, Unit: m.unit, Values: make([]float64, len(statOps))}
		for i, op := range statOps {
			v, err := performCalculation(values, op)
			if err != nil {
				continue
			}
			stat.Values[i] = v
		}
		out = append(out, stat)
	}
	return out
}

// share is part as a percentage of total, 0 when total is 0.
func share(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}

func sum(vals []float64) float64 {
	s := 0.0
	for _, v := range vals {
		s += v
	}
	return s
}

func avg(vals []float64) float64 { return sum(vals) / float64(len(vals)) }

func median(vals []float64) float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

func minOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func std(vals []float64) float64 {
	if len(vals) <= 1 {
		return 0
	}
	mean := avg(vals)
	sumSq := 0.0
	for _, v := range vals {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(vals)-1))
}
