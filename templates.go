// templates.go
package main

import (
	"embed"
	"fmt"
	"html/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"lcaweb/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var numberPrinter = message.NewPrinter(language.English)

var templateFuncs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"formatSize": func(size int64) string {
		const unit = 1024
		if size < unit {
			return fmt.Sprintf("%d B", size)
		}
		div, exp := int64(unit), 0
		for n := size / unit; n >= unit; n /= unit {
			div *= unit
			exp++
		}
		return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
	},
	"formatNumber": func(f float64) string {
		return numberPrinter.Sprintf("%.2f", f)
	},
	"formatScore": func(s *float64) string {
		if s == nil {
			return "-"
		}
		return fmt.Sprintf("%.2f", *s)
	},
	"formatDensity": func(d *domain.Density) string {
		if d == nil {
			return ""
		}
		return fmt.Sprintf("%g", d.Value)
	},
	"densityRange": func(d *domain.Density) string {
		if d == nil || !d.Ranged {
			return ""
		}
		return fmt.Sprintf("%g-%g", d.Min, d.Max)
	},
	"densityFixed": func(row domain.ProcessedRow) bool {
		return row.Density != nil && row.MatchedID != "" && row.Density.Fixed()
	},
	"share": share,
	"pages": func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = i + 1
		}
		return out
	},
	"fieldSelected": func(selected, idx int) bool { return selected == idx },
}

func loadTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}
