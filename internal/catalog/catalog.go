// Package catalog holds the reference material catalog shared by all rows.
package catalog

import (
	"sort"

	"lcaweb/internal/domain"
)

// Catalog is an immutable snapshot. Rows reference records by id instead of
// carrying their own copy.
type Catalog struct {
	version  int64
	records  []domain.MaterialRecord
	byID     map[string]int
	eligible []int
}

// New builds a snapshot. Later records with a duplicate id replace earlier ones.
func New(version int64, records []domain.MaterialRecord) *Catalog {
	c := &Catalog{
		version: version,
		byID:    make(map[string]int, len(records)),
	}
	for _, r := range records {
		if i, ok := c.byID[r.ID]; ok {
			c.records[i] = r
			continue
		}
		c.byID[r.ID] = len(c.records)
		c.records = append(c.records, r)
	}
	for i, r := range c.records {
		if r.MassBased() {
			c.eligible = append(c.eligible, i)
		}
	}
	return c
}

// Version identifies the snapshot, bumped by the store on every reseed.
func (c *Catalog) Version() int64 { return c.version }

// Len is the number of records.
func (c *Catalog) Len() int { return len(c.records) }

// Get finds a record by id.
func (c *Catalog) Get(id string) (*domain.MaterialRecord, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	r := c.records[i]
	return &r, true
}

// All returns a copy of every record in catalog order.
func (c *Catalog) All() []domain.MaterialRecord {
	return append([]domain.MaterialRecord(nil), c.records...)
}

// Eligible calls fn for every mass-based record in catalog order. Returning
// false stops the walk.
func (c *Catalog) Eligible(fn func(pos int, r *domain.MaterialRecord) bool) {
	for pos, i := range c.eligible {
		if !fn(pos, &c.records[i]) {
			return
		}
	}
}

// Sorted returns eligible records ordered by display name, for pickers.
func (c *Catalog) Sorted() []domain.MaterialRecord {
	out := make([]domain.MaterialRecord, 0, len(c.eligible))
	for _, i := range c.eligible {
		out = append(out, c.records[i])
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].DisplayName() < out[b].DisplayName()
	})
	return out
}
