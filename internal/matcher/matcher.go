// Package matcher finds the catalog record closest to a free-text material name.
//
// Scores run from 0 (identical) to 1; lower is better.
package matcher

import (
	"sort"

	"lcaweb/internal/catalog"
	"lcaweb/internal/domain"
	"lcaweb/internal/textfold"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultAcceptThreshold = 0.4
	DefaultFuzziness       = 0.6
	DefaultMinMatchLength  = 3
)

// ManualScore marks a user-selected material.
const ManualScore = 0.0

// Score weights: edit errors dominate; coverage prefers names the query spans
// fully, position prefers hits near the start of the name.
const (
	errorWeight    = 0.8
	coverageWeight = 0.1
	positionWeight = 0.1
)

// Options tunes matching.
type Options struct {
	// AcceptThreshold: the best candidate is used only when its score is below it.
	AcceptThreshold float64
	// Fuzziness: candidates with more errors per query rune are not candidates at all.
	Fuzziness float64
	// MinMatchLength: shorter queries never match.
	MinMatchLength int
}

func (o Options) withDefaults() Options {
	if o.AcceptThreshold <= 0 {
		o.AcceptThreshold = DefaultAcceptThreshold
	}
	if o.Fuzziness <= 0 {
		o.Fuzziness = DefaultFuzziness
	}
	if o.MinMatchLength <= 0 {
		o.MinMatchLength = DefaultMinMatchLength
	}
	return o
}

// Candidate is a ranked catalog record.
type Candidate struct {
	Record domain.MaterialRecord `json:"record"`
	Name   string                `json:"name"`
	Score  float64               `json:"score"`
}

// Matcher ranks catalog records against material names.
type Matcher struct {
	opts Options
}

// New builds a matcher; zero option fields take the defaults.
func New(opts Options) *Matcher {
	return &Matcher{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (m *Matcher) Options() Options { return m.opts }

// Rank scores every mass-based record against query, best first. Ties keep
// catalog order, so repeated runs give identical results.
func (m *Matcher) Rank(query string, c *catalog.Catalog, limit int) []Candidate {
	q := []rune(textfold.Upper(query))
	if len(q) < m.opts.MinMatchLength || c == nil {
		return nil
	}

	type ranked struct {
		Candidate
		pos int
	}
	var found []ranked
	c.Eligible(func(pos int, r *domain.MaterialRecord) bool {
		best, bestName, ok := -1.0, "", false
		for _, name := range r.Names() {
			s, hit := m.score(q, []rune(textfold.Upper(name)))
			if hit && (!ok || s < best) {
				best, bestName, ok = s, name, true
			}
		}
		if ok {
			found = append(found, ranked{Candidate{Record: *r, Name: bestName, Score: best}, pos})
		}
		return true
	})

	sort.SliceStable(found, func(a, b int) bool {
		if found[a].Score != found[b].Score {
			return found[a].Score < found[b].Score
		}
		return found[a].pos < found[b].pos
	})

	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	out := make([]Candidate, len(found))
	for i, f := range found {
		out[i] = f.Candidate
	}
	return out
}

// Match returns the best candidate when it clears the acceptance threshold.
func (m *Matcher) Match(query string, c *catalog.Catalog) (Candidate, bool) {
	ranked := m.Rank(query, c, 1)
	if len(ranked) == 0 || ranked[0].Score >= m.opts.AcceptThreshold {
		return Candidate{}, false
	}
	return ranked[0], true
}

// score compares upper-cased rune slices. hit is false when the error ratio
// exceeds the fuzziness tolerance.
func (m *Matcher) score(query, name []rune) (float64, bool) {
	if len(name) == 0 {
		return 1, false
	}
	dist, at := substringDistance(query, name)
	errRatio := float64(dist) / float64(len(query))
	if errRatio > m.opts.Fuzziness {
		return 1, false
	}
	coverage := float64(len(query)) / float64(len(name))
	if coverage > 1 {
		coverage = 1
	}
	s := errorWeight*errRatio +
		coverageWeight*(1-coverage) +
		positionWeight*float64(at)/float64(len(name))
	if s > 1 {
		s = 1
	}
	return s, true
}

// substringDistance is the smallest edit distance between pattern and any
// substring of text (Sellers' algorithm), plus where that substring starts.
// Text before and after the substring is free.
func substringDistance(pattern, text []rune) (dist, start int) {
	n := len(text)
	prev, cur := make([]int, n+1), make([]int, n+1)
	prevStart, curStart := make([]int, n+1), make([]int, n+1)
	for j := range prevStart {
		prevStart[j] = j
	}
	for i := 1; i <= len(pattern); i++ {
		cur[0], curStart[0] = i, 0
		for j := 1; j <= n; j++ {
			cost := 1
			if pattern[i-1] == text[j-1] {
				cost = 0
			}
			// Prefer the diagonal on ties so the start stays put.
			cur[j], curStart[j] = prev[j-1]+cost, prevStart[j-1]
			if v := prev[j] + 1; v < cur[j] {
				cur[j], curStart[j] = v, prevStart[j]
			}
			if v := cur[j-1] + 1; v < cur[j] {
				cur[j], curStart[j] = v, curStart[j-1]
			}
		}
		prev, cur = cur, prev
		prevStart, curStart = curStart, prevStart
	}
	dist, start = prev[0], prevStart[0]
	for j := 1; j <= n; j++ {
		if prev[j] < dist {
			dist, start = prev[j], prevStart[j]
		}
	}
	return dist, start
}
