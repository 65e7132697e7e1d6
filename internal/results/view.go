package results

import (
	"math"
	"sort"
	"strings"

	"lcaweb/internal/domain"
)

// Column names a sortable or groupable field.
type Column string

const (
	ColElement  Column = "element"
	ColMaterial Column = "material"
	ColQuantity Column = "quantity"
	ColMass     Column = "mass"
	ColMatched  Column = "matched"
	ColScore    Column = "score"
	ColDensity  Column = "density"
	ColCO2      Column = "co2"
	ColUBP      Column = "ubp"
	ColKWh      Column = "kwh"
)

// Columns lists the sortable columns in table order.
var Columns = []Column{
	ColElement, ColMaterial, ColQuantity, ColMass, ColMatched,
	ColScore, ColDensity, ColCO2, ColUBP, ColKWh,
}

// GroupColumns are the allowed grouping keys.
var GroupColumns = []Column{ColElement, ColMaterial, ColMatched}

// ParseColumn validates a column name.
func ParseColumn(s string) (Column, bool) {
	for _, c := range Columns {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// Groupable reports whether c can be used as grouping key.
func (c Column) Groupable() bool {
	for _, g := range GroupColumns {
		if g == c {
			return true
		}
	}
	return false
}

// SortKey is one level of a multi-key sort.
type SortKey struct {
	Column Column `json:"column"`
	Desc   bool   `json:"desc"`
}

// DefaultSort is element then material, both ascending.
var DefaultSort = []SortKey{{Column: ColElement}, {Column: ColMaterial}}

// Query describes what the table shows.
type Query struct {
	Filter   string
	Sort     []SortKey
	GroupBy  Column
	Expanded map[string]bool
	Page     int
	PageSize int
}

func (q Query) sortKeys() []SortKey {
	if len(q.Sort) == 0 {
		return DefaultSort
	}
	return q.Sort
}

// Totals are column sums.
type Totals struct {
	Count    int     `json:"count"`
	Quantity float64 `json:"quantity"`
	Mass     float64 `json:"mass"`
	CO2      float64 `json:"co2"`
	UBP      float64 `json:"ubp"`
	KWh      float64 `json:"kwh"`
}

func (t *Totals) add(r domain.ProcessedRow) {
	t.Count++
	t.Quantity += r.Quantity
	t.Mass += r.Mass
	t.CO2 += r.CO2
	t.UBP += r.UBP
	t.KWh += r.KWh
}

// Group is one grouped block.
type Group struct {
	Key         string
	Members     []int
	Totals      Totals
	Expanded    bool
	AllSelected bool
}

// Item is one rendered table line: a group header or a data row.
type Item struct {
	Group    *Group
	Index    int
	Row      domain.ProcessedRow
	Selected bool
}

// View is the computed table state for one query.
type View struct {
	Items    []Item
	Groups   []Group
	Totals   Totals
	Matching int
	Page     int
	Pages    int
	// Visible are the data row indices shown on this page.
	Visible []int
}

// Filter returns the indices whose element, material or matched material
// contains q, case-insensitively, in row order.
func (m *Model) Filter(q string) []int { return m.filter(q) }

func (m *Model) filter(q string) []int {
	needle := strings.ToLower(strings.TrimSpace(q))
	out := make([]int, 0, len(m.rows))
	for i, r := range m.rows {
		if needle == "" ||
			strings.Contains(strings.ToLower(r.Element), needle) ||
			strings.Contains(strings.ToLower(r.Material), needle) ||
			strings.Contains(strings.ToLower(r.MatchedMaterial), needle) {
			out = append(out, i)
		}
	}
	return out
}

// Sorted orders indices by keys; equal rows keep their relative order.
func (m *Model) Sorted(indices []int, keys []SortKey) []int { return m.sorted(indices, keys) }

func (m *Model) sorted(indices []int, keys []SortKey) []int {
	out := append([]int(nil), indices...)
	sort.SliceStable(out, func(a, b int) bool {
		ra, rb := m.rows[out[a]], m.rows[out[b]]
		for _, k := range keys {
			c := compare(k.Column, ra, rb)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return out
}

func compare(col Column, a, b domain.ProcessedRow) int {
	switch col {
	case ColElement:
		return compareText(a.Element, b.Element)
	case ColMaterial:
		return compareText(a.Material, b.Material)
	case ColMatched:
		return compareText(a.MatchedMaterial, b.MatchedMaterial)
	case ColQuantity:
		return compareFloat(a.Quantity, b.Quantity)
	case ColMass:
		return compareFloat(a.Mass, b.Mass)
	case ColScore:
		return compareOptional(a.MatchScore, b.MatchScore)
	case ColDensity:
		return compareOptional(densityValue(a), densityValue(b))
	case ColCO2:
		return compareFloat(a.CO2, b.CO2)
	case ColUBP:
		return compareFloat(a.UBP, b.UBP)
	case ColKWh:
		return compareFloat(a.KWh, b.KWh)
	}
	return 0
}

func densityValue(r domain.ProcessedRow) *float64 {
	if r.Density == nil {
		return nil
	}
	v := r.Density.Value
	return &v
}

func compareText(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// compareOptional sorts missing values after present ones.
func compareOptional(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return compareFloat(*a, *b)
}

func groupKey(col Column, r domain.ProcessedRow) string {
	switch col {
	case ColElement:
		return r.Element
	case ColMaterial:
		return r.Material
	case ColMatched:
		return r.MatchedMaterial
	}
	return ""
}

// groups buckets sorted indices by col; groups appear in order of their first member.
func (m *Model) groups(sorted []int, col Column) []Group {
	if !col.Groupable() {
		return nil
	}
	pos := map[string]int{}
	var out []Group
	for _, i := range sorted {
		r := m.rows[i]
		key := groupKey(col, r)
		gi, ok := pos[key]
		if !ok {
			gi = len(out)
			pos[key] = gi
			out = append(out, Group{Key: key})
		}
		out[gi].Members = append(out[gi].Members, i)
		out[gi].Totals.add(r)
	}
	return out
}

// View runs filter, sort, grouping and paging.
func (m *Model) View(q Query) View {
	sorted := m.sorted(m.filter(q.Filter), q.sortKeys())

	v := View{Matching: len(sorted)}
	for _, i := range sorted {
		v.Totals.add(m.rows[i])
	}

	if groups := m.groups(sorted, q.GroupBy); groups != nil {
		for gi := range groups {
			g := &groups[gi]
			g.Expanded = q.Expanded[g.Key]
			g.AllSelected = len(g.Members) > 0
			for _, i := range g.Members {
				if !m.selected[i] {
					g.AllSelected = false
					break
				}
			}
		}
		start, end := m.page(&v, q, len(groups))
		v.Groups = groups
		for gi := start; gi < end; gi++ {
			g := &groups[gi]
			v.Items = append(v.Items, Item{Group: g})
			if !g.Expanded {
				continue
			}
			for _, i := range g.Members {
				v.Items = append(v.Items, m.item(i))
				v.Visible = append(v.Visible, i)
			}
		}
		return v
	}

	start, end := m.page(&v, q, len(sorted))
	for _, i := range sorted[start:end] {
		v.Items = append(v.Items, m.item(i))
		v.Visible = append(v.Visible, i)
	}
	return v
}

func (m *Model) item(i int) Item {
	return Item{Index: i, Row: m.rows[i], Selected: m.selected[i]}
}

// page clamps q.Page and returns the [start, end) slice over n units.
// PageSize <= 0 shows everything on one page.
func (m *Model) page(v *View, q Query, n int) (int, int) {
	if q.PageSize <= 0 || n == 0 {
		v.Page, v.Pages = 1, 1
		return 0, n
	}
	v.Pages = int(math.Ceil(float64(n) / float64(q.PageSize)))
	v.Page = q.Page
	if v.Page < 1 {
		v.Page = 1
	}
	if v.Page > v.Pages {
		v.Page = v.Pages
	}
	start := (v.Page - 1) * q.PageSize
	end := start + q.PageSize
	if end > n {
		end = n
	}
	return start, end
}
