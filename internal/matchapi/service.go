// Package matchapi is the catalog-match service: it turns element, material
// and quantity tuples into result rows with a matched material and impacts.
package matchapi

import (
	"context"
	"errors"
	"fmt"

	"lcaweb/internal/catalog"
	"lcaweb/internal/domain"
	"lcaweb/internal/impact"
	"lcaweb/internal/matcher"
)

// ErrService wraps every failure of the match service.
var ErrService = errors.New("catalog service failure")

// Tuple is one row sent for matching.
type Tuple struct {
	Element  string      `json:"element"`
	Material string      `json:"material"`
	Quantity float64     `json:"quantity"`
	Unit     domain.Unit `json:"unit"`
}

// Request is the body of POST /api/match.
type Request struct {
	Rows []Tuple `json:"rows"`
}

// Response carries either rows or an error. Rows line up with the request by
// position; Source holds that position.
type Response struct {
	Rows           []domain.ProcessedRow `json:"rows,omitempty"`
	CatalogVersion int64                 `json:"catalogVersion,omitempty"`
	Error          string                `json:"error,omitempty"`
}

// Service matches tuples and exposes the catalog the result rows refer to.
type Service interface {
	Match(ctx context.Context, req Request) (Response, error)
	Catalog(ctx context.Context) (*catalog.Catalog, error)
}

// RequestFor builds a request from pending rows, keeping their order.
func RequestFor(rows []domain.ProcessedRow) Request {
	req := Request{Rows: make([]Tuple, len(rows))}
	for i, r := range rows {
		req.Rows[i] = Tuple{Element: r.Element, Material: r.Material, Quantity: r.Quantity, Unit: r.Unit}
	}
	return req
}

// Merge copies response rows onto pending rows, restoring each row's Source.
// A response of the wrong length is a service failure.
func Merge(pending []domain.ProcessedRow, resp Response) ([]domain.ProcessedRow, error) {
	if len(resp.Rows) != len(pending) {
		return nil, fmt.Errorf("%w: got %d rows for %d", ErrService, len(resp.Rows), len(pending))
	}
	out := make([]domain.ProcessedRow, len(pending))
	for i, r := range resp.Rows {
		r.Source = pending[i].Source
		out[i] = r
	}
	return out, nil
}

// FallbackRows is what the table shows when the service failed: quantities
// kept, zero impacts, the error placeholder as matched material.
func FallbackRows(pending []domain.ProcessedRow) []domain.ProcessedRow {
	out := make([]domain.ProcessedRow, len(pending))
	for i, r := range pending {
		impact.Reject(&r, domain.ErrorPlaceholder)
		out[i] = r
	}
	return out
}

// Local serves matches in process from one catalog snapshot.
type Local struct {
	matcher *matcher.Matcher
	catalog *catalog.Catalog
}

var _ Service = (*Local)(nil)

// NewLocal builds an in-process service.
func NewLocal(m *matcher.Matcher, cat *catalog.Catalog) *Local {
	if cat == nil {
		cat = catalog.New(0, nil)
	}
	return &Local{matcher: m, catalog: cat}
}

// Catalog returns the snapshot used for matching.
func (l *Local) Catalog(context.Context) (*catalog.Catalog, error) {
	return l.catalog, nil
}

// Match scores every tuple. The same request always yields the same response.
func (l *Local) Match(ctx context.Context, req Request) (Response, error) {
	resp := Response{Rows: make([]domain.ProcessedRow, len(req.Rows)), CatalogVersion: l.catalog.Version()}
	for i, t := range req.Rows {
		if err := ctx.Err(); err != nil {
			return Response{}, fmt.Errorf("%w: %w", ErrService, err)
		}
		resp.Rows[i] = l.matchOne(i, t)
	}
	return resp, nil
}

func (l *Local) matchOne(i int, t Tuple) domain.ProcessedRow {
	unit := t.Unit
	if unit != domain.UnitVolume {
		unit = domain.UnitMass
	}
	row := domain.ProcessedRow{
		Source:   i,
		Element:  t.Element,
		Material: t.Material,
		Quantity: t.Quantity,
		Unit:     unit,
	}
	if c, ok := l.matcher.Match(t.Material, l.catalog); ok {
		impact.Assign(&row, c.Record, c.Score)
	} else {
		impact.Reject(&row, domain.NoMatchPlaceholder)
	}
	return row
}
