package numparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{"swiss apostrophe", "37'184.090", 37184.09},
		{"typographic apostrophe", "37’184.5", 37184.5},
		{"european groups", "1.234.567", 1234567},
		{"us groups", "1,234,567", 1234567},
		{"space groups", "12 345", 12345},
		{"nbsp groups", "12 345,5", 12345.5},
		{"narrow nbsp", "1 000", 1000},
		{"comma decimal", "3,5", 3.5},
		{"european mixed", "1.234,56", 1234.56},
		{"us mixed", "1,234.56", 1234.56},
		{"lone comma three digits is decimal", "1,234", 1.234},
		{"lone comma four digits is thousands", "12,3456", 123456},
		{"lone dot four digits is thousands", "1.2345", 12345},
		{"plain integer", "100", 100},
		{"plain decimal", "0.25", 0.25},
		{"negative", "-2,5", -2.5},
		{"leading dot", ".5", 0.5},
		{"unit suffix", "12.5 m3", 12.5},
		{"exponent", "1e3", 1000},
		{"padded", "  42  ", 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Normalize(tt.in), 1e-9)
		})
	}
}

func TestNormalizeNeverFails(t *testing.T) {
	for _, in := range []string{"", "   ", "abc", "-", "n/a", ",,", "..", "'", "€"} {
		assert.Equal(t, 0.0, Normalize(in), "input %q", in)
	}
}
