package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lcaweb/internal/domain"
)

func TestNewDeduplicatesAndFiltersEligible(t *testing.T) {
	c := New(3, []domain.MaterialRecord{
		{ID: "a", NameEN: "Concrete", Unit: "kg", GWP: 1},
		{ID: "w", NameEN: "Window", Unit: "m2"},
		{ID: "a", NameEN: "Concrete v2", Unit: "kg", GWP: 2},
	})

	assert.Equal(t, int64(3), c.Version())
	assert.Equal(t, 2, c.Len())

	r, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "Concrete v2", r.NameEN)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	var ids []string
	c.Eligible(func(_ int, r *domain.MaterialRecord) bool {
		ids = append(ids, r.ID)
		return true
	})
	assert.Equal(t, []string{"a"}, ids)
}

func TestGetReturnsCopy(t *testing.T) {
	c := New(1, []domain.MaterialRecord{{ID: "a", NameEN: "Concrete", Unit: "kg"}})
	r, _ := c.Get("a")
	r.NameEN = "changed"

	again, _ := c.Get("a")
	assert.Equal(t, "Concrete", again.NameEN)
}

func TestDefaultSeed(t *testing.T) {
	seed, err := DefaultSeed()
	require.NoError(t, err)
	require.NotEmpty(t, seed.Materials)

	c := New(seed.Version, seed.Materials)
	concrete, ok := c.Get("01.002")
	require.True(t, ok)
	assert.Equal(t, "Concrete C30/37", concrete.NameEN)
	require.NotNil(t, concrete.Density)
	assert.False(t, concrete.Density.Ranged)

	timber, ok := c.Get("04.001")
	require.True(t, ok)
	require.NotNil(t, timber.Density)
	assert.True(t, timber.Density.Ranged)
	assert.Equal(t, 460.0, timber.Density.Value)
	assert.Equal(t, 420.0, timber.Density.Min)
	assert.Equal(t, 500.0, timber.Density.Max)
}

func TestParseSeedRejectsMissingID(t *testing.T) {
	_, err := ParseSeed([]byte("materials:\n  - name_en: x\n"))
	assert.Error(t, err)
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	seed, err := DefaultSeed()
	require.NoError(t, err)

	seeded, err := store.EnsureSeeded(ctx, seed)
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = store.EnsureSeeded(ctx, seed)
	require.NoError(t, err)
	assert.False(t, seeded, "second seeding must leave the store alone")

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(seed.Materials), snap.Len())
	assert.Equal(t, seed.Version, snap.Version())
	assert.Equal(t, seed.Materials, snap.All())
}

func TestStoreReplaceBumpsVersion(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Replace(ctx, 1, []domain.MaterialRecord{{ID: "a", Unit: "kg"}}))
	require.NoError(t, store.Replace(ctx, 2, []domain.MaterialRecord{{ID: "b", Unit: "kg"}, {ID: "c", Unit: "kg"}}))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, err := store.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestSearch(t *testing.T) {
	seed, err := DefaultSeed()
	require.NoError(t, err)
	c := New(seed.Version, seed.Materials)

	hits := c.Search("beton", 0)
	require.Len(t, hits, 3)
	assert.Equal(t, "01.002", hits[0].Record.ID)

	ids := map[string]bool{}
	for _, h := range c.Search("bricks", 0) {
		ids[h.Record.ID] = true
	}
	assert.True(t, ids["02.001"])
	assert.True(t, ids["02.005"])

	assert.Len(t, c.Search("", 5), 5)
	assert.Empty(t, c.Search("window", 0), "non-kg records are not offered")
	assert.NotEmpty(t, c.Search("stah", 0), "prefix of a German word")
}
