package reports

import (
	"bytes"
	"embed"
	"fmt"
	"math"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bryanwahyu/triangle-intel/internal/domain/report"
)

//go:embed templates/*.md.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("reports").Funcs(template.FuncMap{
	"money": func(v float64) string { return "$" + humanize.Commaf(math.Round(v)) },
	"pct":   func(v float64) string { return humanize.Ftoa(math.Round(v*10)/10) + "%" },
	"field": func(v view, key, def string) string { return v.req.Field(key, def) },
}).ParseFS(templateFS, "templates/*.md.tmpl"))

type view struct {
	req         report.Request
	ID          string
	Title       string
	Company     string
	TradeVolume float64
	Components  []report.Component
	Facts       report.Assessment
	GeneratedAt time.Time
}

// renderTemplate produces the deterministic markdown for a kind.
func renderTemplate(id string, req report.Request, facts report.Assessment, at time.Time) (string, error) {
	company := req.CompanyName
	if company == "" {
		company = "Your company"
	}
	v := view{
		req:         req,
		ID:          id,
		Title:       req.Kind.Title(),
		Company:     company,
		TradeVolume: req.TradeVolume,
		Components:  req.Components,
		Facts:       facts,
		GeneratedAt: at,
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(req.Kind)+".md.tmpl", v); err != nil {
		return "", fmt.Errorf("render %s template: %w", req.Kind, err)
	}
	return buf.String(), nil
}
