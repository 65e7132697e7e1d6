// query.go
package main

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"lcaweb/internal/results"
)

// parseSort reads "co2:desc,element" into sort keys. Unknown columns are skipped.
func parseSort(raw string) []results.SortKey {
	var keys []results.SortKey
	seen := map[results.Column]bool{}
	for _, part := range strings.Split(raw, ",") {
		name, dir, _ := strings.Cut(strings.TrimSpace(part), ":")
		col, ok := results.ParseColumn(name)
		if !ok || seen[col] {
			continue
		}
		seen[col] = true
		keys = append(keys, results.SortKey{Column: col, Desc: dir == "desc"})
	}
	return keys
}

func formatSort(keys []results.SortKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k.Column)
		if k.Desc {
			parts[i] += ":desc"
		}
	}
	return strings.Join(parts, ",")
}

// nextSort is the sort after clicking col: an already primary column flips
// direction, any other column becomes primary ascending. Earlier keys stay as
// tie breakers.
func nextSort(keys []results.SortKey, col results.Column) []results.SortKey {
	if len(keys) == 0 {
		keys = results.DefaultSort
	}
	if keys[0].Column == col {
		out := append([]results.SortKey(nil), keys...)
		out[0].Desc = !out[0].Desc
		return out
	}
	out := []results.SortKey{{Column: col}}
	for _, k := range keys {
		if k.Column != col {
			out = append(out, k)
		}
	}
	return out
}

// applyQueryParams merges URL parameters into the stored table query.
// Changing the filter, sort or grouping returns to the first page.
func applyQueryParams(c *gin.Context, q results.Query) results.Query {
	reset := false
	if v, ok := c.GetQuery("q"); ok && v != q.Filter {
		q.Filter = v
		reset = true
	}
	if v, ok := c.GetQuery("sort"); ok {
		q.Sort = parseSort(v)
		reset = true
	}
	if v, ok := c.GetQuery("group"); ok {
		col, valid := results.ParseColumn(v)
		if !valid || !col.Groupable() {
			col = ""
		}
		if col != q.GroupBy {
			q.GroupBy = col
			q.Expanded = nil
			reset = true
		}
	}
	if key, ok := c.GetQuery("toggle"); ok {
		expanded := make(map[string]bool, len(q.Expanded)+1)
		for k, v := range q.Expanded {
			expanded[k] = v
		}
		expanded[key] = !expanded[key]
		q.Expanded = expanded
	}
	if v, ok := c.GetQuery("page"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			q.Page = n
		}
	} else if reset {
		q.Page = 1
	}
	return q
}
