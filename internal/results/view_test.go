package results

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lcaweb/internal/domain"
)

func sampleModel(t *testing.T) *Model {
	t.Helper()
	rows := []domain.ProcessedRow{
		row(0, "Wall", "Beton", 100),
		row(1, "Slab", "Beton", 50),
		row(2, "Wall", "Ziegel", 30),
		row(3, "Roof", "Holz", 20),
		row(4, "wall", "Alu", 5),
	}
	m := New(nil, nil, rows, testCatalog())
	require.NoError(t, m.Assign(0, "c"))
	require.NoError(t, m.Assign(1, "c"))
	require.NoError(t, m.Assign(3, "t"))
	return m
}

func elements(v View) []string {
	var out []string
	for _, it := range v.Items {
		if it.Group == nil {
			out = append(out, it.Row.Element+"/"+it.Row.Material)
		}
	}
	return out
}

func TestViewDefaultSort(t *testing.T) {
	v := sampleModel(t).View(Query{})
	assert.Equal(t, []string{"Roof/Holz", "Slab/Beton", "Wall/Beton", "Wall/Ziegel", "wall/Alu"}, elements(v))
	assert.Equal(t, 5, v.Matching)
	assert.Equal(t, 1, v.Pages)
}

func TestViewMultiKeySort(t *testing.T) {
	v := sampleModel(t).View(Query{Sort: []SortKey{{Column: ColCO2, Desc: true}, {Column: ColElement}}})
	got := elements(v)
	assert.Equal(t, "Wall/Beton", got[0])
	assert.Equal(t, "Slab/Beton", got[1])
	assert.Equal(t, "Roof/Holz", got[2])
	assert.Equal(t, []string{"Wall/Ziegel", "wall/Alu"}, got[3:], "zero impacts keep element order")
}

func TestViewSortIsStable(t *testing.T) {
	rows := []domain.ProcessedRow{row(0, "X", "first", 1), row(1, "X", "second", 1), row(2, "X", "third", 1)}
	m := New(nil, nil, rows, testCatalog())
	v := m.View(Query{Sort: []SortKey{{Column: ColQuantity}}})
	assert.Equal(t, []string{"X/first", "X/second", "X/third"}, elements(v))
}

func TestViewScoreSortPutsUnmatchedLast(t *testing.T) {
	v := sampleModel(t).View(Query{Sort: []SortKey{{Column: ColScore}}})
	got := v.Items
	require.Len(t, got, 5)
	assert.NotNil(t, got[0].Row.MatchScore)
	assert.Nil(t, got[4].Row.MatchScore)
}

func TestViewFilter(t *testing.T) {
	m := sampleModel(t)

	v := m.View(Query{Filter: "WALL"})
	assert.Equal(t, 3, v.Matching)

	v = m.View(Query{Filter: "concrete"})
	assert.Equal(t, 2, v.Matching, "matches the matched material")

	v = m.View(Query{Filter: "zieg"})
	assert.Equal(t, []string{"Wall/Ziegel"}, elements(v))
	assert.InDelta(t, 30.0, v.Totals.Quantity, 1e-9)

	v = m.View(Query{Filter: "nothing like it"})
	assert.Zero(t, v.Matching)
	assert.Empty(t, v.Items)
}

func TestViewGroupsConserveTotals(t *testing.T) {
	m := fakeModel(t, 40)
	m.SelectAll([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, true)
	_, err := m.BulkAssign("s")
	require.NoError(t, err)

	for _, col := range GroupColumns {
		v := m.View(Query{GroupBy: col})
		var sum Totals
		for _, g := range v.Groups {
			sum.Count += g.Totals.Count
			sum.Quantity += g.Totals.Quantity
			sum.CO2 += g.Totals.CO2
			sum.UBP += g.Totals.UBP
		}
		assert.Equal(t, v.Totals.Count, sum.Count, "group by %s", col)
		assert.InDelta(t, v.Totals.Quantity, sum.Quantity, 1e-6, "group by %s", col)
		assert.InDelta(t, v.Totals.CO2, sum.CO2, 1e-6, "group by %s", col)
		assert.InDelta(t, v.Totals.UBP, sum.UBP, 1e-6, "group by %s", col)
	}
}

func TestViewGroupExpansion(t *testing.T) {
	m := sampleModel(t)

	v := m.View(Query{GroupBy: ColMaterial})
	require.Len(t, v.Groups, 4)
	assert.Len(t, v.Items, 4, "collapsed groups show headers only")
	assert.Empty(t, v.Visible)

	v = m.View(Query{GroupBy: ColMaterial, Expanded: map[string]bool{"Beton": true}})
	assert.Len(t, v.Items, 6)
	assert.ElementsMatch(t, []int{0, 1}, v.Visible)

	beton := v.Groups[1]
	assert.Equal(t, "Beton", beton.Key)
	assert.InDelta(t, 15.0, beton.Totals.CO2, 1e-9)
}

func TestSelectGroup(t *testing.T) {
	m := sampleModel(t)
	q := Query{GroupBy: ColElement}

	m.SelectGroup(q, "Wall", true)
	assert.Equal(t, []int{0, 2}, m.Selected(), "group keys are case sensitive")

	v := m.View(q)
	for _, g := range v.Groups {
		assert.Equal(t, g.Key == "Wall", g.AllSelected, g.Key)
	}

	m.SelectGroup(q, "Wall", false)
	assert.Empty(t, m.Selected())
}

func TestViewPaging(t *testing.T) {
	m := fakeModel(t, 23)

	v := m.View(Query{PageSize: 10, Page: 3})
	assert.Equal(t, 3, v.Pages)
	assert.Equal(t, 3, v.Page)
	assert.Len(t, v.Items, 3)

	v = m.View(Query{PageSize: 10, Page: 99})
	assert.Equal(t, 3, v.Page, "page is clamped")

	v = m.View(Query{PageSize: 10})
	assert.Equal(t, 1, v.Page)
	assert.Len(t, v.Visible, 10)
	m.SelectAll(v.Visible, true)
	assert.Len(t, m.Selected(), 10, "select all covers the current page only")
	assert.Equal(t, 23, v.Totals.Count, "totals span every filtered row")
}

func TestParseColumn(t *testing.T) {
	c, ok := ParseColumn("co2")
	assert.True(t, ok)
	assert.Equal(t, ColCO2, c)
	assert.False(t, c.Groupable())
	assert.True(t, ColMatched.Groupable())

	_, ok = ParseColumn("password")
	assert.False(t, ok)
}
