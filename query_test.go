package main

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"lcaweb/internal/results"
)

func TestParseAndFormatSort(t *testing.T) {
	keys := parseSort("co2:desc, element ,bogus,co2")
	assert.Equal(t, []results.SortKey{{Column: results.ColCO2, Desc: true}, {Column: results.ColElement}}, keys)
	assert.Equal(t, "co2:desc,element", formatSort(keys))
	assert.Empty(t, parseSort(""))
}

func TestNextSort(t *testing.T) {
	got := nextSort(nil, results.ColElement)
	assert.Equal(t, "element:desc,material", formatSort(got), "primary flips")

	got = nextSort(got, results.ColCO2)
	assert.Equal(t, "co2,element:desc,material", formatSort(got))

	got = nextSort(got, results.ColMaterial)
	assert.Equal(t, "material,co2,element:desc", formatSort(got))
}

func queryContext(rawQuery string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/results?"+rawQuery, nil)
	return c
}

func TestApplyQueryParams(t *testing.T) {
	q := results.Query{Page: 3, PageSize: 10}

	got := applyQueryParams(queryContext(""), q)
	assert.Equal(t, q, got, "no params keep the stored view")

	got = applyQueryParams(queryContext("q=beton"), q)
	assert.Equal(t, "beton", got.Filter)
	assert.Equal(t, 1, got.Page, "new filter resets paging")

	got = applyQueryParams(queryContext("group=material&toggle=Beton"), q)
	assert.Equal(t, results.ColMaterial, got.GroupBy)
	assert.True(t, got.Expanded["Beton"])

	again := applyQueryParams(queryContext("toggle=Beton"), got)
	assert.False(t, again.Expanded["Beton"])
	assert.True(t, got.Expanded["Beton"], "stored map not mutated")

	got = applyQueryParams(queryContext("group=co2"), q)
	assert.Equal(t, results.Column(""), got.GroupBy, "not a grouping column")

	got = applyQueryParams(queryContext("page=2&sort=mass:desc"), q)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, []results.SortKey{{Column: results.ColMass, Desc: true}}, got.Sort)
}
