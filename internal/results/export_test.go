package results

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"lcaweb/internal/domain"
	"lcaweb/internal/numparse"
)

func exportModel(t *testing.T) *Model {
	t.Helper()
	headers := []string{"Element", "Material", "Menge", "Note"}
	raw := []domain.RawRow{
		{"Wall", "Beton", "37'184", `he said "ok"`},
		{"Slab, ground", "Beton", "1,5"},
		{"Roof", "Holz", "20", "line\nbreak"},
	}
	rows := []domain.ProcessedRow{
		row(0, "Wall", "Beton", 37184),
		row(1, "Slab, ground", "Beton", 1.5),
		row(2, "Roof", "Holz", 20),
	}
	m := New(headers, raw, rows, testCatalog())
	require.NoError(t, m.Assign(0, "c"))
	require.NoError(t, m.Assign(1, "c"))
	return m
}

func TestQuoteField(t *testing.T) {
	tests := map[string]string{
		"plain":      "plain",
		"a,b":        `"a,b"`,
		`say "hi"`:   `"say ""hi"""`,
		"37'184":     `"37'184"`,
		"two\nlines": "\"two\nlines\"",
		"":           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, quoteField(in), in)
	}
}

func TestWriteCSV(t *testing.T) {
	m := exportModel(t)
	var buf bytes.Buffer
	require.NoError(t, m.WriteCSV(&buf, ExportOptions{}))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, utf8BOM))
	lines := strings.SplitN(strings.TrimPrefix(out, utf8BOM), "\n", 2)
	assert.Equal(t, "Element,Material,Menge,Note,Matched Material,CO2,UBP,Energy", lines[0])
	assert.Contains(t, out, `Wall,Beton,"37'184","he said ""ok""",Concrete,3718.4,1859200,18592`)
	assert.Contains(t, out, `"Slab, ground",Beton,"1,5",,Concrete,0.15,75,0.75`)
}

func TestWriteCSVRoundTrip(t *testing.T) {
	m := exportModel(t)
	var buf bytes.Buffer
	require.NoError(t, m.WriteCSV(&buf, ExportOptions{}))

	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), utf8BOM)))
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	want := map[string]float64{"Wall": 37184, "Slab, ground": 1.5, "Roof": 20}
	for _, rec := range records[1:] {
		require.Len(t, rec, 8)
		assert.Equal(t, want[rec[0]], numparse.Normalize(rec[2]), rec[0])
	}
	assert.Equal(t, "line\nbreak", records[1][3], "sorted first: Roof")
}

func TestWriteCSVFilterAndSelection(t *testing.T) {
	m := exportModel(t)

	var buf bytes.Buffer
	require.NoError(t, m.WriteCSV(&buf, ExportOptions{Query: Query{Filter: "holz"}}))
	records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Roof", records[1][0])

	require.NoError(t, m.SetSelected(1, true))
	buf.Reset()
	require.NoError(t, m.WriteCSV(&buf, ExportOptions{OnlySelected: true}))
	assert.Contains(t, buf.String(), "Slab, ground")
	assert.NotContains(t, buf.String(), "Roof")
	assert.Equal(t, []int{1}, m.ExportRows(ExportOptions{OnlySelected: true}))
}

func TestWriteXLSX(t *testing.T) {
	m := exportModel(t)
	var buf bytes.Buffer
	require.NoError(t, m.WriteXLSX(&buf, ExportOptions{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ResultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Matched Material", rows[0][4])
	assert.Equal(t, "Roof", rows[1][0])
	assert.Equal(t, "37'184", rows[3][2])
	assert.Equal(t, "3718.4", rows[3][5])
}
