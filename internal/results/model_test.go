package results

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lcaweb/internal/catalog"
	"lcaweb/internal/domain"
	"lcaweb/internal/impact"
)

var (
	concrete = domain.MaterialRecord{ID: "c", NameEN: "Concrete", Unit: "kg", Density: &domain.Density{Value: 2400}, GWP: 0.1, UBP: 50, Energy: 0.5}
	steel    = domain.MaterialRecord{ID: "s", NameEN: "Steel", Unit: "kg", Density: &domain.Density{Value: 7850}, GWP: 1.5, UBP: 3000, Energy: 20}
	timber   = domain.MaterialRecord{ID: "t", NameEN: "Timber", Unit: "kg", Density: &domain.Density{Value: 450, Min: 400, Max: 500, Ranged: true}, GWP: 0.2, UBP: 10, Energy: 1}
)

func testCatalog() *catalog.Catalog {
	return catalog.New(1, []domain.MaterialRecord{concrete, steel, timber})
}

func row(src int, element, material string, qty float64) domain.ProcessedRow {
	r := domain.ProcessedRow{Source: src, Element: element, Material: material, Quantity: qty, Unit: domain.UnitMass}
	impact.Reject(&r, domain.NoMatchPlaceholder)
	return r
}

// fakeModel builds n unmatched rows with random elements and quantities.
func fakeModel(t *testing.T, n int) *Model {
	t.Helper()
	faker := gofakeit.New(7)
	elements := []string{"Wall", "Slab", "Column", "Roof"}

	headers := []string{"Element", "Material", "Qty"}
	raw := make([]domain.RawRow, n)
	rows := make([]domain.ProcessedRow, n)
	for i := range rows {
		el := faker.RandomString(elements)
		mat := faker.Word()
		qty := float64(faker.Number(1, 500))
		raw[i] = domain.RawRow{el, mat, faker.Numerify("###")}
		rows[i] = row(i, el, mat, qty)
	}
	return New(headers, raw, rows, testCatalog())
}

func TestDeleteIsIndexStable(t *testing.T) {
	rows := []domain.ProcessedRow{
		row(0, "A", "a", 1), row(1, "B", "b", 2), row(2, "C", "c", 3), row(3, "D", "d", 4), row(4, "E", "e", 5),
	}
	m := New(nil, nil, rows, testCatalog())
	require.NoError(t, m.SetSelected(4, true))

	assert.Equal(t, 2, m.Delete([]int{3, 1}))
	got := m.Rows()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"A", "C", "E"}, []string{got[0].Element, got[1].Element, got[2].Element})
	assert.Empty(t, m.Selected(), "selection is reset")
}

func TestDeleteIgnoresDuplicatesAndOutOfRange(t *testing.T) {
	m := fakeModel(t, 4)
	assert.Equal(t, 1, m.Delete([]int{2, 2, -1, 99}))
	assert.Equal(t, 3, m.Len())
	assert.Zero(t, m.Delete(nil))
}

func TestDeleteSelected(t *testing.T) {
	m := fakeModel(t, 6)
	m.SelectAll([]int{0, 5}, true)
	assert.Equal(t, 2, m.DeleteSelected())
	assert.Equal(t, 4, m.Len())
}

func TestSelection(t *testing.T) {
	m := fakeModel(t, 5)

	require.NoError(t, m.Toggle(3))
	require.NoError(t, m.Toggle(1))
	assert.Equal(t, []int{1, 3}, m.Selected())

	require.NoError(t, m.Toggle(3))
	assert.Equal(t, []int{1}, m.Selected())

	assert.ErrorIs(t, m.Toggle(5), ErrRowIndex)

	m.ClearSelection()
	assert.Empty(t, m.Selected())
}

func TestBulkAssignUsesEachRowsQuantity(t *testing.T) {
	rows := []domain.ProcessedRow{row(0, "Wall", "x", 10), row(1, "Slab", "y", 20), row(2, "Roof", "z", 30)}
	m := New(nil, nil, rows, testCatalog())
	m.SelectAll([]int{0, 2}, true)

	n, err := m.BulkAssign("s")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := m.Rows()
	assert.Equal(t, "Steel", got[0].MatchedMaterial)
	assert.InDelta(t, 15.0, got[0].CO2, 1e-9)
	assert.InDelta(t, 45.0, got[2].CO2, 1e-9)
	require.NotNil(t, got[2].MatchScore)
	assert.Zero(t, *got[2].MatchScore)
	assert.Equal(t, domain.NoMatchPlaceholder, got[1].MatchedMaterial, "unselected row untouched")
	assert.Equal(t, []int{0, 2}, m.Selected(), "selection survives bulk assign")
}

func TestBulkAssignErrors(t *testing.T) {
	m := fakeModel(t, 3)
	_, err := m.BulkAssign("c")
	assert.ErrorIs(t, err, ErrNoSelection)

	require.NoError(t, m.SetSelected(0, true))
	_, err = m.BulkAssign("nope")
	assert.ErrorIs(t, err, ErrUnknownID)
	assert.Equal(t, domain.NoMatchPlaceholder, m.Rows()[0].MatchedMaterial)
}

func TestAssignAndEditDensity(t *testing.T) {
	r := domain.ProcessedRow{Element: "Beam", Material: "Holz", Quantity: 2, Unit: domain.UnitVolume}
	impact.Reject(&r, domain.NoMatchPlaceholder)
	m := New(nil, nil, []domain.ProcessedRow{r}, testCatalog())

	require.NoError(t, m.Assign(0, "t"))
	got, _ := m.Row(0)
	assert.Equal(t, 900.0, got.Mass)

	require.NoError(t, m.EditDensity(0, 1000))
	got, _ = m.Row(0)
	assert.Equal(t, 500.0, got.Density.Value, "clamped to range max")
	assert.Equal(t, 1000.0, got.Mass)
	assert.InDelta(t, 200.0, got.CO2, 1e-9)

	require.NoError(t, m.Assign(0, "c"))
	assert.ErrorIs(t, m.EditDensity(0, 1), impact.ErrDensityFixed)
	assert.ErrorIs(t, m.EditDensity(3, 1), ErrRowIndex)
	assert.ErrorIs(t, m.Assign(0, "missing"), ErrUnknownID)
}
