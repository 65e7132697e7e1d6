// handlers.go
package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"lcaweb/internal/domain"
	"lcaweb/internal/mapping"
	"lcaweb/internal/numparse"
	"lcaweb/internal/results"
	"lcaweb/internal/workflow"
)

var fieldLabels = map[mapping.Field]string{
	mapping.FieldElement:  "Element",
	mapping.FieldMaterial: "Material",
	mapping.FieldQuantity: "Quantity",
}

var columnLabels = map[results.Column]string{
	results.ColElement:  "Element",
	results.ColMaterial: "Material",
	results.ColQuantity: "Quantity",
	results.ColMass:     "Mass (kg)",
	results.ColMatched:  "Matched material",
	results.ColScore:    "Score",
	results.ColDensity:  "Density (kg/m³)",
	results.ColCO2:      "CO2 (kg)",
	results.ColUBP:      "UBP",
	results.ColKWh:      "Energy (kWh)",
}

func (a *app) render(c *gin.Context, status int, name string, data any) {
	c.Header("Cache-Control", "no-cache")
	c.HTML(status, name, data)
}

func (a *app) uploadPageHandler(c *gin.Context) {
	page := UploadPage{MaxSize: a.cfg.Upload.MaxBytes}
	session(c).Read(func(s workflow.State) {
		page.FileName = s.FileName
		switch {
		case s.HasResults() || s.Loading():
			page.Resume = "/results"
		case s.Phase == workflow.PhaseUploaded || s.Phase == workflow.PhaseMapped:
			page.Resume = "/mapping"
		}
	})
	a.render(c, http.StatusOK, "upload.html", page)
}

func (a *app) uploadError(c *gin.Context, status int, msg string) {
	a.render(c, status, "upload.html", UploadPage{MaxSize: a.cfg.Upload.MaxBytes, Error: msg})
}

func (a *app) uploadHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.cfg.Upload.MaxBytes)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.uploadError(c, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		a.uploadError(c, http.StatusBadRequest, "Failed to read file")
		return
	}
	file, err := header.Open()
	if err != nil {
		a.uploadError(c, http.StatusBadRequest, "Failed to read file")
		return
	}
	defer file.Close()

	data, err := parseUpload(header.Filename, file)
	if err != nil {
		_ = c.Error(err)
		a.uploadError(c, http.StatusBadRequest, fmt.Sprintf("Could not read %s: %v", header.Filename, err))
		return
	}
	data.FileSize = header.Size
	if limit := a.cfg.Catalog.MaxRows; limit > 0 && len(data.Rows) > limit {
		a.uploadError(c, http.StatusBadRequest, fmt.Sprintf("Too many rows (> %d)", limit))
		return
	}

	err = session(c).Update(func(s workflow.State) (workflow.State, error) {
		return workflow.Upload(s, data.FileName, data.Headers, data.Rows)
	})
	if err != nil {
		a.uploadError(c, http.StatusConflict, err.Error())
		return
	}
	a.logger.Info("file uploaded", "file", data.FileName, "size", data.FileSize, "rows", len(data.Rows),
		"columns", len(data.Headers), "request_id", requestID(c))
	c.Redirect(http.StatusSeeOther, "/mapping")
}

func (a *app) mappingPage(s workflow.State) MappingPage {
	page := MappingPage{
		FileName: s.FileName,
		Headers:  s.Headers,
		Preview:  mapping.Preview(s.Raw, a.cfg.Upload.PreviewRows),
		RowCount: len(s.Raw),
		Unit:     s.Unit,
		Units:    []domain.Unit{domain.UnitMass, domain.UnitVolume},
		Error:    s.Err,
	}
	for _, f := range mapping.Fields {
		page.Fields = append(page.Fields, FieldChoice{Field: f, Label: fieldLabels[f], Selected: s.Proposal.Get(f)})
	}
	return page
}

func (a *app) mappingPageHandler(c *gin.Context) {
	var (
		page     MappingPage
		redirect string
	)
	session(c).Read(func(s workflow.State) {
		switch {
		case s.Phase == workflow.PhaseIdle:
			redirect = "/"
		case s.Loading():
			redirect = "/results"
		default:
			page = a.mappingPage(s)
		}
	})
	if redirect != "" {
		c.Redirect(http.StatusSeeOther, redirect)
		return
	}
	a.render(c, http.StatusOK, "mapping.html", page)
}

// formColumn reads a column select; blank or invalid means unassigned.
func formColumn(c *gin.Context, name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(c.PostForm(name)))
	if err != nil {
		return mapping.Unset
	}
	return n
}

func (a *app) mappingHandler(c *gin.Context) {
	d := mapping.Detection{
		Element:  formColumn(c, string(mapping.FieldElement)),
		Material: formColumn(c, string(mapping.FieldMaterial)),
		Quantity: formColumn(c, string(mapping.FieldQuantity)),
	}
	unit, err := domain.ParseUnit(c.PostForm("unit"))
	if err != nil {
		unit = domain.UnitMass
	}

	sess := session(c)
	var (
		req     workflow.Request
		invalid workflow.State
	)
	err = sess.Update(func(s workflow.State) (workflow.State, error) {
		next, err := workflow.BeginMapping(s, d, unit)
		if err != nil {
			invalid = next
			return s, err
		}
		next, req, err = workflow.Submit(next)
		return next, err
	})
	switch {
	case errors.Is(err, workflow.ErrBusy):
		c.Redirect(http.StatusSeeOther, "/results")
		return
	case errors.Is(err, workflow.ErrNoUpload):
		c.Redirect(http.StatusSeeOther, "/")
		return
	case err != nil:
		a.render(c, http.StatusBadRequest, "mapping.html", a.mappingPage(invalid))
		return
	}

	a.logger.Info("mapping submitted", "seq", req.Seq, "rows", len(req.Pending), "request_id", requestID(c))
	a.startMatch(sess, req)
	c.Redirect(http.StatusSeeOther, "/results")
}

func (a *app) remapHandler(c *gin.Context) {
	err := session(c).Update(workflow.Remap)
	switch {
	case errors.Is(err, workflow.ErrBusy):
		c.Redirect(http.StatusSeeOther, "/results")
	case err != nil:
		c.Redirect(http.StatusSeeOther, "/")
	default:
		c.Redirect(http.StatusSeeOther, "/mapping")
	}
}

func (a *app) columnHeaders(q results.Query) []ColumnHeader {
	active := q.Sort
	if len(active) == 0 {
		active = results.DefaultSort
	}
	out := make([]ColumnHeader, 0, len(results.Columns))
	for _, col := range results.Columns {
		h := ColumnHeader{Key: col, Label: columnLabels[col], Sort: formatSort(nextSort(q.Sort, col))}
		for i, k := range active {
			if k.Column == col {
				h.Rank, h.Desc = i+1, k.Desc
			}
		}
		out = append(out, h)
	}
	return out
}

func (a *app) resultsPage(s workflow.State) ResultsPage {
	m := s.Results
	filtered := m.Filter(s.View.Filter)
	rows := make([]domain.ProcessedRow, 0, len(filtered))
	for _, i := range filtered {
		r, _ := m.Row(i)
		rows = append(rows, r)
	}
	return ResultsPage{
		FileName:       s.FileName,
		View:           m.View(s.View),
		Query:          s.View,
		SortParam:      formatSort(s.View.Sort),
		Columns:        a.columnHeaders(s.View),
		GroupOptions:   results.GroupColumns,
		Materials:      m.Catalog().Sorted(),
		SelectedCount:  len(m.Selected()),
		Stats:          impactStats(rows),
		StatOps:        statOps,
		Error:          s.Err,
		Flash:          s.Flash,
		DebounceMillis: a.cfg.Results.FilterDebounce.Milliseconds(),
	}
}

func (a *app) resultsHandler(c *gin.Context) {
	var (
		name     string
		data     any
		redirect string
	)
	_ = session(c).Update(func(s workflow.State) (workflow.State, error) {
		switch {
		case s.Loading():
			name, data = "loading.html", LoadingPage{FileName: s.FileName, RowCount: len(s.Pending)}
			return s, nil
		case !s.HasResults():
			redirect = "/mapping"
			if s.Phase == workflow.PhaseIdle {
				redirect = "/"
			}
			return s, nil
		}
		s, _ = workflow.WithView(s, applyQueryParams(c, s.View))
		name, data = "results.html", a.resultsPage(s)
		s.Flash = ""
		return s, nil
	})
	if redirect != "" {
		c.Redirect(http.StatusSeeOther, redirect)
		return
	}
	a.render(c, http.StatusOK, name, data)
}

// withResults runs fn on the session's results table and redirects back to
// the results page, carrying fn's error as a flash notice.
func (a *app) withResults(c *gin.Context, fn func(m *results.Model, s *workflow.State) error) {
	var actionErr error
	err := session(c).Update(func(s workflow.State) (workflow.State, error) {
		if s.Loading() {
			return s, workflow.ErrBusy
		}
		if !s.HasResults() {
			return s, workflow.ErrNoResults
		}
		if actionErr = fn(s.Results, &s); actionErr != nil {
			s.Flash = actionErr.Error()
		}
		return s, nil
	})
	if err != nil && !errors.Is(err, workflow.ErrBusy) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	if actionErr != nil {
		_ = c.Error(actionErr)
		a.logger.Debug("results action rejected", "path", c.FullPath(), "error", actionErr)
	}
	c.Redirect(http.StatusSeeOther, "/results")
}

func formIndex(c *gin.Context) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(c.PostForm("index")))
	if err != nil {
		return 0, fmt.Errorf("invalid row index %q", c.PostForm("index"))
	}
	return n, nil
}

func formIndices(c *gin.Context) []int {
	var out []int
	for _, v := range c.PostFormArray("index") {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func (a *app) assignHandler(c *gin.Context) {
	a.withResults(c, func(m *results.Model, _ *workflow.State) error {
		i, err := formIndex(c)
		if err != nil {
			return err
		}
		return m.Assign(i, c.PostForm("material"))
	})
}

func (a *app) densityHandler(c *gin.Context) {
	a.withResults(c, func(m *results.Model, _ *workflow.State) error {
		i, err := formIndex(c)
		if err != nil {
			return err
		}
		raw := strings.TrimSpace(c.PostForm("density"))
		if raw == "" {
			return errors.New("density is required")
		}
		return m.EditDensity(i, numparse.Normalize(raw))
	})
}

func (a *app) selectHandler(c *gin.Context) {
	a.withResults(c, func(m *results.Model, s *workflow.State) error {
		on := c.PostForm("on") != "0"
		switch action := c.PostForm("action"); action {
		case "toggle":
			i, err := formIndex(c)
			if err != nil {
				return err
			}
			return m.Toggle(i)
		case "page":
			m.SelectAll(m.View(s.View).Visible, on)
		case "group":
			m.SelectGroup(s.View, c.PostForm("key"), on)
		case "clear":
			m.ClearSelection()
		default:
			return fmt.Errorf("unknown selection action %q", action)
		}
		return nil
	})
}

func (a *app) bulkHandler(c *gin.Context) {
	a.withResults(c, func(m *results.Model, s *workflow.State) error {
		n, err := m.BulkAssign(c.PostForm("material"))
		if err != nil {
			return err
		}
		s.Flash = fmt.Sprintf("Assigned material to %d rows", n)
		return nil
	})
}

func (a *app) deleteHandler(c *gin.Context) {
	a.withResults(c, func(m *results.Model, s *workflow.State) error {
		var n int
		if indices := formIndices(c); len(indices) > 0 {
			n = m.Delete(indices)
		} else {
			n = m.DeleteSelected()
		}
		if n == 0 {
			return results.ErrNoSelection
		}
		s.Flash = fmt.Sprintf("Deleted %d rows", n)
		return nil
	})
}

type exportFunc func(m *results.Model, opts results.ExportOptions, c *gin.Context) error

func (a *app) export(c *gin.Context, contentType, ext string, write exportFunc) {
	var (
		err  error
		name string
	)
	found := false
	session(c).Read(func(s workflow.State) {
		if !s.HasResults() {
			return
		}
		found = true
		name = exportName(s.FileName, ext)
		c.Header("Content-Type", contentType)
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		opts := results.ExportOptions{Query: s.View, OnlySelected: c.Query("selected") == "1"}
		err = write(s.Results, opts, c)
	})
	if !found {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	if err != nil {
		a.logger.Error("export failed", "file", name, "error", err)
		_ = c.Error(err)
	}
}

func exportName(upload, ext string) string {
	base := upload
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	if base == "" {
		base = "results"
	}
	base = strings.NewReplacer(`"`, "", "/", "_", `\`, "_").Replace(base)
	return base + "_lca" + ext
}

func (a *app) exportCSVHandler(c *gin.Context) {
	a.export(c, "text/csv; charset=utf-8", ".csv", func(m *results.Model, opts results.ExportOptions, c *gin.Context) error {
		return m.WriteCSV(c.Writer, opts)
	})
}

func (a *app) exportXLSXHandler(c *gin.Context) {
	a.export(c, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ".xlsx",
		func(m *results.Model, opts results.ExportOptions, c *gin.Context) error {
			return m.WriteXLSX(c.Writer, opts)
		})
}
