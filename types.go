// types.go
package main

import (
	"lcaweb/internal/domain"
	"lcaweb/internal/mapping"
	"lcaweb/internal/results"
)

// Spreadsheet is a parsed upload.
type Spreadsheet struct {
	Headers   []string
	Rows      []domain.RawRow
	FileName  string
	FileSize  int64
	Sheet     string
	Delimiter rune
}

type UploadPage struct {
	Error    string
	MaxSize  int64
	FileName string
	Resume   string
}

// FieldChoice is one select of the mapping form.
type FieldChoice struct {
	Field    mapping.Field
	Label    string
	Selected int
}

type MappingPage struct {
	FileName string
	Headers  []string
	Preview  []domain.RawRow
	RowCount int
	Fields   []FieldChoice
	Unit     domain.Unit
	Units    []domain.Unit
	Error    string
}

type LoadingPage struct {
	FileName string
	RowCount int
}

// ColumnHeader is a sortable header cell.
type ColumnHeader struct {
	Key   results.Column
	Label string
	// Sort is the sort parameter a click on the header applies.
	Sort string
	// Rank is the 1-based position in the active sort, 0 when unsorted.
	Rank int
	Desc bool
}

type StatRow struct {
	Label  string
	Unit   string
	Values []float64
}

type ResultsPage struct {
	FileName       string
	View           results.View
	Query          results.Query
	SortParam      string
	Columns        []ColumnHeader
	GroupOptions   []results.Column
	Materials      []domain.MaterialRecord
	SelectedCount  int
	Stats          []StatRow
	StatOps        []string
	Error          string
	Flash          string
	DebounceMillis int64
}

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}
