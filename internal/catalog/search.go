package catalog

import (
	"sort"
	"strings"

	"github.com/kljensen/snowball"

	"lcaweb/internal/domain"
	"lcaweb/internal/textfold"
)

// Hit is one picker search result.
type Hit struct {
	Record domain.MaterialRecord `json:"record"`
	Exact  int                   `json:"exact"`
}

// stemLanguages are the snowball stemmers applied to query tokens. German
// names are compared unstemmed, by prefix.
var stemLanguages = []string{"english", "french"}

// Search finds eligible records whose names contain every query token, either
// as a stem or as a word prefix. An empty query lists the catalog by name.
func (c *Catalog) Search(query string, limit int) []Hit {
	qTokens := textfold.Tokens(query)

	var hits []Hit
	if len(qTokens) == 0 {
		for _, r := range c.Sorted() {
			hits = append(hits, Hit{Record: r})
		}
		return truncate(hits, limit)
	}

	qStems := make([][]string, len(qTokens))
	for i, t := range qTokens {
		qStems[i] = stems(t)
	}

	c.Eligible(func(_ int, r *domain.MaterialRecord) bool {
		nameTokens := recordTokens(r)
		exact := 0
		for i, t := range qTokens {
			found, isExact := matchToken(t, qStems[i], nameTokens)
			if !found {
				return true
			}
			if isExact {
				exact++
			}
		}
		hits = append(hits, Hit{Record: *r, Exact: exact})
		return true
	})

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Exact != hits[b].Exact {
			return hits[a].Exact > hits[b].Exact
		}
		return hits[a].Record.DisplayName() < hits[b].Record.DisplayName()
	})
	return truncate(hits, limit)
}

func truncate(hits []Hit, limit int) []Hit {
	if limit > 0 && len(hits) > limit {
		return hits[:limit]
	}
	return hits
}

// recordTokens returns the raw tokens of every name plus their stems.
func recordTokens(r *domain.MaterialRecord) map[string]bool {
	out := map[string]bool{}
	add := func(name, lang string) {
		for _, t := range textfold.Tokens(name) {
			out[t] = true
			if lang == "" {
				continue
			}
			if s, err := snowball.Stem(t, lang, true); err == nil && s != "" {
				out[s] = true
			}
		}
	}
	add(r.NameDE, "")
	add(r.NameEN, "english")
	add(r.NameFR, "french")
	add(r.ID, "")
	return out
}

func stems(token string) []string {
	out := []string{token}
	for _, lang := range stemLanguages {
		if s, err := snowball.Stem(token, lang, true); err == nil && s != "" && s != token {
			out = append(out, s)
		}
	}
	return out
}

// matchToken reports a hit and whether it was a whole-token (or stem) hit
// rather than a prefix.
func matchToken(token string, tokenStems []string, nameTokens map[string]bool) (found, exact bool) {
	for _, s := range tokenStems {
		if nameTokens[s] {
			return true, true
		}
	}
	for nt := range nameTokens {
		if strings.HasPrefix(nt, token) {
			return true, false
		}
	}
	return false, false
}
