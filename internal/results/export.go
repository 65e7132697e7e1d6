package results

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"lcaweb/internal/domain"
)

// ExportColumns are appended to the original upload headers.
var ExportColumns = []string{"Matched Material", "CO2", "UBP", "Energy"}

const utf8BOM = "\ufeff"

// ExportOptions pick the exported rows. Rows follow q's filter and sort order;
// grouping and paging are ignored.
type ExportOptions struct {
	Query        Query
	OnlySelected bool
}

// ExportRows returns the indices that an export with opts writes.
func (m *Model) ExportRows(opts ExportOptions) []int {
	if opts.OnlySelected {
		return m.sorted(m.Selected(), opts.Query.sortKeys())
	}
	return m.sorted(m.filter(opts.Query.Filter), opts.Query.sortKeys())
}

func (m *Model) exportHeader() []string {
	return append(append([]string(nil), m.headers...), ExportColumns...)
}

// original returns the upload cells of a row padded to the header width.
func (m *Model) original(row domain.ProcessedRow) []string {
	cells := make([]string, len(m.headers))
	if row.Source >= 0 && row.Source < len(m.raw) {
		for i := range cells {
			cells[i] = m.raw[row.Source].Cell(i)
		}
	}
	return cells
}

// exportNumber rounds away float noise such as 10.000000000000002.
func exportNumber(v float64) float64 {
	return math.Round(v*1e9) / 1e9
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(exportNumber(v), 'f', -1, 64)
}

// WriteCSV writes a UTF-8 CSV with a byte order mark so spreadsheet tools pick
// the right encoding. Numbers use a plain dot decimal.
func (m *Model) WriteCSV(w io.Writer, opts ExportOptions) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(utf8BOM); err != nil {
		return err
	}
	if err := writeCSVLine(bw, m.exportHeader()); err != nil {
		return err
	}
	for _, i := range m.ExportRows(opts) {
		r := m.rows[i]
		line := append(m.original(r),
			r.MatchedMaterial, formatNumber(r.CO2), formatNumber(r.UBP), formatNumber(r.KWh))
		if err := writeCSVLine(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeCSVLine(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(quoteField(f)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

// quoteField quotes fields holding a comma, quote, apostrophe or line break.
// Apostrophes are thousands separators in Swiss numbers and must survive a
// spreadsheet import verbatim.
func quoteField(s string) string {
	if !strings.ContainsAny(s, ",\"'\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ResultsSheet is the sheet name of the workbook export.
const ResultsSheet = "Results"

// WriteXLSX writes the same table as WriteCSV as a workbook. Impact columns are
// numeric cells.
func (m *Model) WriteXLSX(w io.Writer, opts ExportOptions) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ResultsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := m.exportHeader()
	hdr := make([]interface{}, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := f.SetSheetRow(ResultsSheet, "A1", &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for n, i := range m.ExportRows(opts) {
		r := m.rows[i]
		orig := m.original(r)
		line := make([]interface{}, 0, len(header))
		for _, c := range orig {
			line = append(line, c)
		}
		line = append(line, r.MatchedMaterial, exportNumber(r.CO2), exportNumber(r.UBP), exportNumber(r.KWh))

		cell, err := excelize.CoordinatesToCellName(1, n+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ResultsSheet, cell, &line); err != nil {
			return fmt.Errorf("write row %d: %w", n+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
