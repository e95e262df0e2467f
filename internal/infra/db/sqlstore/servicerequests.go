package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	domain "github.com/bryanwahyu/triangle-intel/internal/domain/servicerequest"
)

const requestColumns = `id, service_type, company_name, contact_name, email, phone, industry, trade_volume,
 assigned_to, status, priority, timeline, budget_range, data_storage_consent, consent_timestamp,
 privacy_policy_version, consent_ip_address, consent_user_agent, service_details, workflow_data,
 consultation_status, consultation_duration, next_steps, created_at, updated_at`

type requestRow struct {
	ID                   string         `db:"id"`
	ServiceType          sql.NullString `db:"service_type"`
	CompanyName          sql.NullString `db:"company_name"`
	ContactName          sql.NullString `db:"contact_name"`
	Email                sql.NullString `db:"email"`
	Phone                sql.NullString `db:"phone"`
	Industry             sql.NullString `db:"industry"`
	TradeVolume          float64        `db:"trade_volume"`
	AssignedTo           string         `db:"assigned_to"`
	Status               string         `db:"status"`
	Priority             string         `db:"priority"`
	Timeline             sql.NullString `db:"timeline"`
	BudgetRange          sql.NullString `db:"budget_range"`
	Consent              bool           `db:"data_storage_consent"`
	ConsentTimestamp     sql.NullString `db:"consent_timestamp"`
	PolicyVersion        sql.NullString `db:"privacy_policy_version"`
	ConsentIP            sql.NullString `db:"consent_ip_address"`
	ConsentUserAgent     sql.NullString `db:"consent_user_agent"`
	ServiceDetails       []byte         `db:"service_details"`
	WorkflowData         []byte         `db:"workflow_data"`
	ConsultationStatus   sql.NullString `db:"consultation_status"`
	ConsultationDuration sql.NullString `db:"consultation_duration"`
	NextSteps            sql.NullString `db:"next_steps"`
	CreatedAt            time.Time      `db:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at"`
}

func (r requestRow) toDomain() domain.Request {
	return domain.Request{
		ID:          r.ID,
		ServiceType: r.ServiceType.String,
		CompanyName: r.CompanyName.String,
		ContactName: r.ContactName.String,
		Email:       r.Email.String,
		Phone:       r.Phone.String,
		Industry:    r.Industry.String,
		TradeVolume: r.TradeVolume,
		AssignedTo:  r.AssignedTo,
		Status:      domain.Status(r.Status),
		Priority:    domain.Priority(r.Priority),
		Timeline:    r.Timeline.String,
		BudgetRange: r.BudgetRange.String,
		Consent: domain.Consent{
			DataStorage:          r.Consent,
			Timestamp:            r.ConsentTimestamp.String,
			PrivacyPolicyVersion: r.PolicyVersion.String,
			IPAddress:            r.ConsentIP.String,
			UserAgent:            r.ConsentUserAgent.String,
		},
		ServiceDetails:       rawJSON(r.ServiceDetails),
		WorkflowData:         rawJSON(r.WorkflowData),
		ConsultationStatus:   r.ConsultationStatus.String,
		ConsultationDuration: r.ConsultationDuration.String,
		NextSteps:            r.NextSteps.String,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

type ServiceRequestRepository struct{ base }

func NewServiceRequestRepository(db *sqlx.DB) *ServiceRequestRepository {
	return &ServiceRequestRepository{newBase(db)}
}

func (r *ServiceRequestRepository) Create(ctx context.Context, req *domain.Request) error {
	q := `INSERT INTO service_requests (` + requestColumns + `)
 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.q(q),
		req.ID, req.ServiceType, req.CompanyName, req.ContactName, req.Email, req.Phone, req.Industry, req.TradeVolume,
		req.AssignedTo, string(req.Status), string(req.Priority), req.Timeline, req.BudgetRange,
		req.Consent.DataStorage, req.Consent.Timestamp, req.Consent.PrivacyPolicyVersion,
		req.Consent.IPAddress, req.Consent.UserAgent, jsonArg(req.ServiceDetails), jsonArg(req.WorkflowData),
		req.ConsultationStatus, req.ConsultationDuration, req.NextSteps, req.CreatedAt, req.UpdatedAt,
	)
	return err
}

func (r *ServiceRequestRepository) List(ctx context.Context, assignedTo string) ([]domain.Request, error) {
	q := `SELECT ` + requestColumns + ` FROM service_requests`
	var args []any
	if assignedTo != "" {
		q += ` WHERE assigned_to = ?`
		args = append(args, assignedTo)
	}
	q += ` ORDER BY created_at DESC`

	var rows []requestRow
	if err := r.db.SelectContext(ctx, &rows, r.q(q), args...); err != nil {
		return nil, err
	}
	out := make([]domain.Request, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	return out, nil
}

// Update sets status, the whitelisted fields and updated_at, then reloads the row.
func (r *ServiceRequestRepository) Update(ctx context.Context, u domain.Update, at time.Time) (*domain.Request, error) {
	keys := make([]string, 0, len(u.Fields))
	for k := range u.Fields {
		if domain.UpdatableFields[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	sets := []string{"updated_at = ?"}
	args := []any{at}
	if u.Status != "" {
		sets = append(sets, "status = ?")
		args = append(args, string(u.Status))
	}
	for _, k := range keys {
		sets = append(sets, k+" = ?")
		args = append(args, fmt.Sprint(u.Fields[k]))
	}
	args = append(args, u.ID)

	res, err := r.db.ExecContext(ctx, r.q(`UPDATE service_requests SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, domain.ErrNotFound
	}

	var row requestRow
	err = r.db.GetContext(ctx, &row, r.q(`SELECT `+requestColumns+` FROM service_requests WHERE id = ?`), u.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec := row.toDomain()
	return &rec, nil
}

type analysisRow struct {
	ID                  string         `db:"id"`
	Email               string         `db:"email"`
	Components          []byte         `db:"component_origins"`
	AnnualTradeVolume   float64        `db:"annual_trade_volume"`
	QualificationStatus sql.NullString `db:"qualification_status"`
	RegionalContent     float64        `db:"regional_content_percentage"`
	RequiredThreshold   float64        `db:"required_threshold"`
	CreatedAt           time.Time      `db:"created_at"`
}

type AnalysisRepository struct{ base }

func NewAnalysisRepository(db *sqlx.DB) *AnalysisRepository {
	return &AnalysisRepository{newBase(db)}
}

// ByEmails groups analyses per email, newest first.
func (r *AnalysisRepository) ByEmails(ctx context.Context, emails []string) (map[string][]domain.VulnerabilityAnalysis, error) {
	out := map[string][]domain.VulnerabilityAnalysis{}
	if len(emails) == 0 {
		return out, nil
	}
	q, args, err := sqlx.In(`SELECT id, email, component_origins, annual_trade_volume, qualification_status,
 regional_content_percentage, required_threshold, created_at
 FROM vulnerability_analyses WHERE email IN (?) ORDER BY created_at DESC`, emails)
	if err != nil {
		return nil, err
	}
	var rows []analysisRow
	if err := r.db.SelectContext(ctx, &rows, r.q(q), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		va := domain.VulnerabilityAnalysis{
			ID:                        row.ID,
			Email:                     row.Email,
			AnnualTradeVolume:         row.AnnualTradeVolume,
			QualificationStatus:       row.QualificationStatus.String,
			RegionalContentPercentage: row.RegionalContent,
			RequiredThreshold:         row.RequiredThreshold,
			CreatedAt:                 row.CreatedAt,
		}
		if len(row.Components) > 0 {
			if err := json.Unmarshal(row.Components, &va.ComponentOrigins); err != nil {
				return nil, fmt.Errorf("decode component origins %s: %w", row.ID, err)
			}
		}
		out[row.Email] = append(out[row.Email], va)
	}
	return out, nil
}
