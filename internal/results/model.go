// Package results is the in-memory table behind the results page.
package results

import (
	"errors"
	"fmt"
	"sort"

	"lcaweb/internal/catalog"
	"lcaweb/internal/domain"
	"lcaweb/internal/impact"
)

var (
	ErrRowIndex    = errors.New("row index out of range")
	ErrNoSelection = errors.New("no rows selected")
	ErrUnknownID   = errors.New("unknown material id")
)

// Model owns the processed rows of one dataset plus what export needs from the
// upload. It is not safe for concurrent use; callers serialize access.
type Model struct {
	headers  []string
	raw      []domain.RawRow
	rows     []domain.ProcessedRow
	selected map[int]bool
	catalog  *catalog.Catalog
}

// New wraps rows. raw and headers are kept by reference and never modified.
func New(headers []string, raw []domain.RawRow, rows []domain.ProcessedRow, cat *catalog.Catalog) *Model {
	if cat == nil {
		cat = catalog.New(0, nil)
	}
	return &Model{
		headers:  headers,
		raw:      raw,
		rows:     rows,
		selected: map[int]bool{},
		catalog:  cat,
	}
}

// Len is the number of rows.
func (m *Model) Len() int { return len(m.rows) }

// Headers are the upload headers.
func (m *Model) Headers() []string { return m.headers }

// Catalog is the shared catalog the rows reference.
func (m *Model) Catalog() *catalog.Catalog { return m.catalog }

// Row returns a copy of row i.
func (m *Model) Row(i int) (domain.ProcessedRow, bool) {
	if i < 0 || i >= len(m.rows) {
		return domain.ProcessedRow{}, false
	}
	return m.rows[i], true
}

// Rows returns a copy of every row.
func (m *Model) Rows() []domain.ProcessedRow {
	return append([]domain.ProcessedRow(nil), m.rows...)
}

// IsSelected reports whether row i is selected.
func (m *Model) IsSelected(i int) bool { return m.selected[i] }

// Selected returns the selected indices in ascending order.
func (m *Model) Selected() []int {
	out := make([]int, 0, len(m.selected))
	for i := range m.selected {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// SetSelected selects or deselects row i.
func (m *Model) SetSelected(i int, on bool) error {
	if i < 0 || i >= len(m.rows) {
		return fmt.Errorf("select %d: %w", i, ErrRowIndex)
	}
	if on {
		m.selected[i] = true
	} else {
		delete(m.selected, i)
	}
	return nil
}

// Toggle flips the selection of row i.
func (m *Model) Toggle(i int) error {
	return m.SetSelected(i, !m.selected[i])
}

// SelectAll selects (or deselects) every index in indices, e.g. a page or a group.
func (m *Model) SelectAll(indices []int, on bool) {
	for _, i := range indices {
		_ = m.SetSelected(i, on)
	}
}

// SelectGroup selects every member of the group key under q's filter.
func (m *Model) SelectGroup(q Query, key string, on bool) {
	for _, g := range m.groups(m.sorted(m.filter(q.Filter), q.sortKeys()), q.GroupBy) {
		if g.Key == key {
			m.SelectAll(g.Members, on)
			return
		}
	}
}

// ClearSelection deselects everything.
func (m *Model) ClearSelection() {
	m.selected = map[int]bool{}
}

// record resolves a row's matched record in the shared catalog.
func (m *Model) record(row domain.ProcessedRow) *domain.MaterialRecord {
	if row.MatchedID == "" {
		return nil
	}
	rec, ok := m.catalog.Get(row.MatchedID)
	if !ok {
		return nil
	}
	return rec
}

func (m *Model) lookup(id string) (domain.MaterialRecord, error) {
	rec, ok := m.catalog.Get(id)
	if !ok {
		return domain.MaterialRecord{}, fmt.Errorf("%s: %w", id, ErrUnknownID)
	}
	return *rec, nil
}

// Assign sets the material of row i by hand.
func (m *Model) Assign(i int, id string) error {
	if i < 0 || i >= len(m.rows) {
		return fmt.Errorf("assign %d: %w", i, ErrRowIndex)
	}
	rec, err := m.lookup(id)
	if err != nil {
		return err
	}
	impact.AssignManual(&m.rows[i], rec)
	return nil
}

// BulkAssign applies one material to every selected row. The selection is
// snapshotted before any row changes; each row recomputes with its own mass.
func (m *Model) BulkAssign(id string) (int, error) {
	targets := m.Selected()
	if len(targets) == 0 {
		return 0, ErrNoSelection
	}
	rec, err := m.lookup(id)
	if err != nil {
		return 0, err
	}
	for _, i := range targets {
		impact.AssignManual(&m.rows[i], rec)
	}
	return len(targets), nil
}

// EditDensity changes the density of row i and recomputes it.
func (m *Model) EditDensity(i int, value float64) error {
	if i < 0 || i >= len(m.rows) {
		return fmt.Errorf("density %d: %w", i, ErrRowIndex)
	}
	row := &m.rows[i]
	return impact.EditDensity(row, value, m.record(*row))
}

// Delete removes the rows at indices in a single descending pass so earlier
// removals never shift later ones. Out-of-range and duplicate indices are
// ignored. The selection is cleared because indices moved.
func (m *Model) Delete(indices []int) int {
	uniq := map[int]bool{}
	for _, i := range indices {
		if i >= 0 && i < len(m.rows) {
			uniq[i] = true
		}
	}
	order := make([]int, 0, len(uniq))
	for i := range uniq {
		order = append(order, i)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(order)))

	for _, i := range order {
		m.rows = append(m.rows[:i], m.rows[i+1:]...)
	}
	m.ClearSelection()
	return len(order)
}

// DeleteSelected removes the selected rows.
func (m *Model) DeleteSelected() int {
	return m.Delete(m.Selected())
}
