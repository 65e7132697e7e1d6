package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lcaweb/internal/domain"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		headers []string
		want    Detection
	}{
		{
			name:    "german",
			headers: []string{"Nr", "Bauteil", "Material", "Menge"},
			want:    Detection{Element: 1, Material: 2, Quantity: 3},
		},
		{
			name:    "ifc export",
			headers: []string{"GUID", "IFCClass", "Material", "TypeName", "BuildingStorey", "GrossVolume", "NetVolume", "Menge"},
			want:    Detection{Element: 1, Material: 2, Quantity: 7},
		},
		{
			name:    "french",
			headers: []string{"Élément", "Matériau", "Quantité"},
			want:    Detection{Element: 0, Material: 1, Quantity: 2},
		},
		{
			name:    "keyword priority beats header position",
			headers: []string{"Volume", "Element", "Werkstoff", "Quantity"},
			want:    Detection{Element: 1, Material: 2, Quantity: 3},
		},
		{
			name:    "duplicate headers resolve to first position",
			headers: []string{"Material", "Material", "Element", "Menge"},
			want:    Detection{Element: 2, Material: 0, Quantity: 3},
		},
		{
			name:    "nothing recognised",
			headers: []string{"a", "b"},
			want:    Empty(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.headers))
		})
	}
}

func TestDetectUnit(t *testing.T) {
	assert.Equal(t, domain.UnitVolume, DetectUnit([]string{"Element", "Volumen m3"}))
	assert.Equal(t, domain.UnitMass, DetectUnit([]string{"Element", "Volume", "Masse kg"}))
	assert.Equal(t, domain.UnitMass, DetectUnit([]string{"Element", "Menge"}))
}

func TestValidate(t *testing.T) {
	m, err := Validate(Detection{Element: 0, Material: 0, Quantity: 1}, domain.UnitVolume, 2)
	require.NoError(t, err)
	assert.Equal(t, domain.ColumnMapping{Element: 0, Material: 0, Quantity: 1, Unit: domain.UnitVolume}, m)

	_, err = Validate(Detection{Element: 0, Material: Unset, Quantity: 1}, domain.UnitMass, 2)
	assert.ErrorIs(t, err, ErrUnassigned)

	_, err = Validate(Detection{Element: 0, Material: 1, Quantity: 5}, domain.UnitMass, 2)
	assert.ErrorIs(t, err, ErrOutOfRange)

	m, err = Validate(Detection{Element: 0, Material: 1, Quantity: 1}, "", 2)
	require.NoError(t, err)
	assert.Equal(t, domain.UnitMass, m.Unit)
}

func TestReconstruct(t *testing.T) {
	first := domain.RawRow{"x", "Wall", "Concrete", "1'234.50"}
	row := domain.ProcessedRow{Element: "Wall", Material: "Concrete", Quantity: 1234.5}

	assert.Equal(t, Detection{Element: 1, Material: 2, Quantity: 3}, Reconstruct(first, row))
}

func TestReconstructSameTextTwice(t *testing.T) {
	first := domain.RawRow{"Beton", "Beton", "3"}
	row := domain.ProcessedRow{Element: "Beton", Material: "Beton", Quantity: 3}

	assert.Equal(t, Detection{Element: 0, Material: 1, Quantity: 2}, Reconstruct(first, row))
}

func TestResume(t *testing.T) {
	headers := []string{"A", "B", "C"}
	raw := []domain.RawRow{{"Wall", "Concrete", "2"}}
	rows := []domain.ProcessedRow{{Source: 0, Element: "Wall", Material: "Concrete", Quantity: 2, Unit: domain.UnitVolume}}

	prior := &domain.ColumnMapping{Element: 2, Material: 1, Quantity: 0, Unit: domain.UnitMass}
	d, unit := Resume(headers, prior, raw, rows)
	assert.Equal(t, Detection{Element: 2, Material: 1, Quantity: 0}, d)
	assert.Equal(t, domain.UnitMass, unit)

	d, unit = Resume(headers, nil, raw, rows)
	assert.Equal(t, Detection{Element: 0, Material: 1, Quantity: 2}, d)
	assert.Equal(t, domain.UnitVolume, unit)

	stale := &domain.ColumnMapping{Element: 7, Material: 1, Quantity: 0}
	d, _ = Resume(headers, stale, nil, nil)
	assert.Equal(t, Empty(), d)
}

func TestPreview(t *testing.T) {
	rows := []domain.RawRow{{"1"}, {"2"}, {"3"}}
	assert.Len(t, Preview(rows, 2), 2)
	assert.Len(t, Preview(rows, 10), 3)
}

func TestApply(t *testing.T) {
	raw := []domain.RawRow{
		{" Wall ", "Beton", "37'184"},
		{"", "", " "},
		{"Slab", "Holz"},
		{"Roof", "Ziegel", "1,5", "extra"},
	}
	m := domain.ColumnMapping{Element: 0, Material: 1, Quantity: 2, Unit: domain.UnitVolume}

	rows := Apply(raw, m)
	require.Len(t, rows, 3)
	assert.Equal(t, domain.ProcessedRow{Source: 0, Element: "Wall", Material: "Beton", Quantity: 37184, Unit: domain.UnitVolume}, rows[0])
	assert.Equal(t, 2, rows[1].Source)
	assert.Zero(t, rows[1].Quantity, "ragged row")
	assert.Equal(t, 1.5, rows[2].Quantity)
}
