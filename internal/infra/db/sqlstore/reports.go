package sqlstore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bryanwahyu/triangle-intel/internal/domain/report"
)

type ReportRepository struct{ base }

func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{newBase(db)}
}

func (r *ReportRepository) Save(ctx context.Context, rep *report.Report) error {
	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO reports
 (id, kind, service_request_id, company_name, object_key, url, generator, ai_error, created_at)
 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rep.ID, string(rep.Kind), nullable(rep.ServiceRequestID), rep.CompanyName, rep.ObjectKey, rep.URL,
		string(rep.Generator), nullable(rep.AIError), rep.CreatedAt)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
