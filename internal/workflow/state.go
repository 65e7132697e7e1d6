// Package workflow holds the per-session application state and the
// transitions between upload, mapping, matching and results.
//
// Transitions never mutate their input; they return the next State.
package workflow

import (
	"errors"
	"fmt"

	"lcaweb/internal/catalog"
	"lcaweb/internal/domain"
	"lcaweb/internal/mapping"
	"lcaweb/internal/matchapi"
	"lcaweb/internal/results"
)

// Phase is where the session stands.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseUploaded
	PhaseMapped
	PhaseLoading
	PhaseResults
	PhaseError
)

var phaseNames = map[Phase]string{
	PhaseIdle:     "idle",
	PhaseUploaded: "uploaded",
	PhaseMapped:   "mapped",
	PhaseLoading:  "loading",
	PhaseResults:  "results",
	PhaseError:    "error",
}

func (p Phase) String() string {
	if n, ok := phaseNames[p]; ok {
		return n
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

var (
	ErrBusy      = errors.New("a catalog request is already running")
	ErrNoUpload  = errors.New("no file uploaded")
	ErrNotMapped = errors.New("columns are not mapped")
	ErrNoResults = errors.New("no results yet")
	ErrStale     = errors.New("response belongs to an older request")
	ErrEmptyFile = errors.New("file has no header row")
)

// State is one session's view of the application.
type State struct {
	Phase    Phase
	FileName string
	Headers  []string
	Raw      []domain.RawRow

	// Proposal is what the mapping form shows.
	Proposal mapping.Detection
	Unit     domain.Unit
	Mapping  *domain.ColumnMapping

	// Pending holds the rows of the request in flight, for the fallback table.
	Pending []domain.ProcessedRow
	Seq     uint64

	Results *results.Model
	View    results.Query
	Err     string
	// Flash is a one-shot notice for the next rendered page.
	Flash string
}

// Request is one catalog-match call produced by Submit.
type Request struct {
	Seq     uint64
	Pending []domain.ProcessedRow
	Body    matchapi.Request
}

// Loading reports whether a catalog request is in flight.
func (s State) Loading() bool { return s.Phase == PhaseLoading }

// HasResults reports whether a results table can be shown.
func (s State) HasResults() bool {
	return s.Results != nil && (s.Phase == PhaseResults || s.Phase == PhaseError)
}

// Upload replaces the dataset and proposes a fresh mapping.
func Upload(s State, name string, headers []string, raw []domain.RawRow) (State, error) {
	if s.Loading() {
		return s, ErrBusy
	}
	if len(headers) == 0 {
		return s, ErrEmptyFile
	}
	return State{
		Phase:    PhaseUploaded,
		FileName: name,
		Headers:  headers,
		Raw:      raw,
		Proposal: mapping.Detect(headers),
		Unit:     mapping.DetectUnit(headers),
		Seq:      s.Seq,
		View:     results.Query{PageSize: s.View.PageSize},
	}, nil
}

// BeginMapping validates the user's column choice.
func BeginMapping(s State, d mapping.Detection, unit domain.Unit) (State, error) {
	if s.Loading() {
		return s, ErrBusy
	}
	if s.Phase == PhaseIdle || len(s.Headers) == 0 {
		return s, ErrNoUpload
	}
	s.Proposal, s.Unit = d, unit
	m, err := mapping.Validate(d, unit, len(s.Headers))
	if err != nil {
		s.Err = err.Error()
		return s, err
	}
	s.Mapping = &m
	s.Unit = m.Unit
	s.Phase = PhaseMapped
	s.Err = ""
	return s, nil
}

// Submit starts a catalog request for the mapped dataset. Only one request may
// run at a time; the returned Seq identifies it.
func Submit(s State) (State, Request, error) {
	switch {
	case s.Loading():
		return s, Request{}, ErrBusy
	case s.Phase == PhaseIdle || len(s.Headers) == 0:
		return s, Request{}, ErrNoUpload
	case s.Mapping == nil:
		return s, Request{}, ErrNotMapped
	}
	pending := mapping.Apply(s.Raw, *s.Mapping)
	s.Seq++
	s.Phase = PhaseLoading
	s.Pending = pending
	s.Results = nil
	s.Err = ""
	s.View = results.Query{PageSize: s.View.PageSize}
	return s, Request{Seq: s.Seq, Pending: pending, Body: matchapi.RequestFor(pending)}, nil
}

// Complete installs the rows of request seq. Responses to older requests are
// dropped with ErrStale.
func Complete(s State, seq uint64, rows []domain.ProcessedRow, cat *catalog.Catalog) (State, error) {
	if !s.Loading() || seq != s.Seq {
		return s, ErrStale
	}
	s.Results = results.New(s.Headers, s.Raw, rows, cat)
	s.Phase = PhaseResults
	s.Pending = nil
	s.Err = ""
	return s, nil
}

// Fail shows the fallback table for request seq: every row keeps its quantity
// and gets zero impacts. cat may be nil when no catalog could be loaded.
func Fail(s State, seq uint64, cause error, cat *catalog.Catalog) (State, error) {
	if !s.Loading() || seq != s.Seq {
		return s, ErrStale
	}
	s.Results = results.New(s.Headers, s.Raw, matchapi.FallbackRows(s.Pending), cat)
	s.Phase = PhaseError
	s.Pending = nil
	s.Err = "Catalog lookup failed: " + cause.Error()
	return s, nil
}

// Remap returns to the mapping form, starting from the mapping that produced
// the current table.
func Remap(s State) (State, error) {
	if s.Loading() {
		return s, ErrBusy
	}
	if len(s.Headers) == 0 {
		return s, ErrNoUpload
	}
	var rows []domain.ProcessedRow
	if s.Results != nil {
		rows = s.Results.Rows()
	}
	s.Proposal, s.Unit = mapping.Resume(s.Headers, s.Mapping, s.Raw, rows)
	s.Phase = PhaseUploaded
	s.Err = ""
	return s, nil
}

// WithView stores the table query of the results page.
func WithView(s State, q results.Query) (State, error) {
	if !s.HasResults() {
		return s, ErrNoResults
	}
	s.View = q
	return s, nil
}
