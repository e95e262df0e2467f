package reports

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/triangle-intel/internal/application"
	"github.com/bryanwahyu/triangle-intel/internal/domain/report"
)

type Service struct {
	Writer report.Writer
	Store  report.Store
	Repo   report.Repository
	Clock  application.Clock
	Logger *zap.Logger
	// RequireAI: quota habis dikembalikan sebagai error, bukan fallback template
	RequireAI bool
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// ObjectKey is where a report body lives in the object store.
func ObjectKey(kind report.Kind, id string) string {
	return fmt.Sprintf("reports/%s/%s.md", kind, id)
}

// Generate drafts the report with the writer, falling back to the template,
// uploads the markdown and records its metadata. Upload and metadata failures
// are logged; the report is still returned.
func (s *Service) Generate(ctx context.Context, req report.Request) (*report.Report, error) {
	if !req.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", report.ErrUnknownKind, req.Kind)
	}
	now := s.clock().Now()
	rep := &report.Report{
		ID:               uuid.NewString(),
		Kind:             req.Kind,
		ServiceRequestID: req.ServiceRequestID,
		CompanyName:      req.CompanyName,
		CreatedAt:        now,
	}
	log := s.log().With(zap.String("report_id", rep.ID), zap.String("kind", string(req.Kind)))

	facts := report.AssessUSMCA(req.TradeVolume, req.Components,
		rate(req.Field("avg_tariff_rate", "")),
		rate(req.Field("china_tariff_rate", "")),
		number(req.Field("usmca_threshold", "")),
	)

	if s.Writer != nil {
		md, err := s.Writer.WriteReport(ctx, req, facts)
		switch {
		case err == nil && md != "":
			rep.Markdown = md
			rep.Generator = report.GeneratorAI
		case errors.Is(err, report.ErrQuotaExceeded) && s.RequireAI:
			return nil, err
		case err != nil:
			log.Warn("ai writer failed, using template", zap.Error(err))
			rep.AIError = err.Error()
		}
	}
	if rep.Markdown == "" {
		md, err := renderTemplate(rep.ID, req, facts, now)
		if err != nil {
			return nil, err
		}
		rep.Markdown = md
		rep.Generator = report.GeneratorTemplate
	}

	if s.Store != nil {
		key := ObjectKey(req.Kind, rep.ID)
		url, err := s.Store.Put(ctx, key, []byte(rep.Markdown), "text/markdown; charset=utf-8")
		if err != nil {
			log.Warn("upload report failed", zap.Error(err))
		} else {
			rep.ObjectKey = key
			rep.URL = url
		}
	}
	if s.Repo != nil {
		if err := s.Repo.Save(ctx, rep); err != nil {
			log.Warn("save report metadata failed", zap.Error(err))
		}
	}
	log.Info("report generated", zap.String("generator", string(rep.Generator)))
	return rep, nil
}

// rate accepts either a fraction (0.25) or a percentage (25).
func rate(s string) float64 {
	v := number(s)
	if v > 1 {
		return v / 100
	}
	return v
}

func number(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
