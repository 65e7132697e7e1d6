// processing.go
package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"lcaweb/internal/domain"
)

var (
	errEmptyFile       = errors.New("file has no header row")
	errUnsupportedType = errors.New("unsupported file type, upload .csv or .xlsx")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// candidate CSV delimiters in preference order for ties
var delimiters = []rune{',', ';', '\t'}

// parseUpload dispatches on the file extension.
func parseUpload(name string, r io.Reader) (Spreadsheet, error) {
	var (
		data Spreadsheet
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".txt", ".tsv":
		data, err = processCSV(r)
	case ".xlsx", ".xlsm":
		data, err = processExcel(r)
	default:
		return Spreadsheet{}, errUnsupportedType
	}
	if err != nil {
		return Spreadsheet{}, err
	}
	data.FileName = name
	return data, nil
}

func processCSV(file io.Reader) (Spreadsheet, error) {
	var data Spreadsheet
	raw, err := io.ReadAll(file)
	if err != nil {
		return data, fmt.Errorf("read csv: %w", err)
	}
	text := decodeText(raw)

	data.Delimiter = sniffDelimiter(text)
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = data.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return data, fmt.Errorf("parse csv: %w", err)
	}
	return fromRows(data, rows)
}

func processExcel(file io.Reader) (Spreadsheet, error) {
	var data Spreadsheet
	f, err := excelize.OpenReader(file)
	if err != nil {
		return data, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return data, fmt.Errorf("no sheets")
	}
	data.Sheet = sheet
	rows, err := f.GetRows(sheet)
	if err != nil {
		return data, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return fromRows(data, rows)
}

// fromRows takes the first non-blank row as headers. Blank header cells get a
// positional name and blank data rows are dropped.
func fromRows(data Spreadsheet, rows [][]string) (Spreadsheet, error) {
	for len(rows) > 0 && blank(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return data, errEmptyFile
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		headers[i] = h
	}
	data.Headers = headers
	data.Rows = make([]domain.RawRow, 0, len(rows)-1)
	for _, r := range rows[1:] {
		if blank(r) {
			continue
		}
		data.Rows = append(data.Rows, domain.RawRow(r))
	}
	return data, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// decodeText strips a UTF-8 byte order mark and falls back to Windows-1252
// for files that are not valid UTF-8, as written by older spreadsheet tools.
func decodeText(raw []byte) string {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

// sniffDelimiter counts candidate delimiters outside quotes on the first
// non-empty line. Ties and lines without any candidate mean comma.
func sniffDelimiter(text string) rune {
	var line string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}
	counts := map[rune]int{}
	quoted := false
	for _, r := range line {
		if r == '"' {
			quoted = !quoted
			continue
		}
		if !quoted {
			counts[r]++
		}
	}
	best := ','
	for _, d := range delimiters {
		if counts[d] > counts[best] {
			best = d
		}
	}
	return best
}
