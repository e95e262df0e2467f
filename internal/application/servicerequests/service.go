package servicerequests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/triangle-intel/internal/application"
	domain "github.com/bryanwahyu/triangle-intel/internal/domain/servicerequest"
)

// CreateInput is the public intake body. Anything not named here lands in
// Details and is stored as service_details.
type CreateInput struct {
	ServiceType          string          `json:"service_type"`
	CompanyName          string          `json:"company_name"`
	ContactName          string          `json:"contact_name"`
	Email                string          `json:"email"`
	Phone                string          `json:"phone"`
	Industry             string          `json:"industry"`
	TradeVolume          string          `json:"trade_volume"`
	Timeline             string          `json:"timeline"`
	BudgetRange          string          `json:"budget_range"`
	WorkflowData         json.RawMessage `json:"workflow_data"`
	DataStorageConsent   bool            `json:"data_storage_consent"`
	ConsentTimestamp     string          `json:"consent_timestamp"`
	PrivacyPolicyVersion string          `json:"privacy_policy_version"`
	Details              map[string]any  `json:"-"`
}

var intakeKeys = map[string]bool{
	"service_type": true, "company_name": true, "contact_name": true, "email": true,
	"phone": true, "industry": true, "trade_volume": true, "timeline": true,
	"budget_range": true, "workflow_data": true, "data_storage_consent": true,
	"consent_timestamp": true, "privacy_policy_version": true,
}

// DecodeCreate parses an intake body and collects the service specific fields.
func DecodeCreate(body []byte) (CreateInput, error) {
	var in CreateInput
	if err := json.Unmarshal(body, &in); err != nil {
		return in, fmt.Errorf("decode service request: %w", err)
	}
	var all map[string]any
	if err := json.Unmarshal(body, &all); err != nil {
		return in, fmt.Errorf("decode service request: %w", err)
	}
	in.Details = map[string]any{}
	for k, v := range all {
		if !intakeKeys[k] && v != nil {
			in.Details[k] = v
		}
	}
	return in, nil
}

// ClientMeta is recorded with the consent.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

type CreateResult struct {
	Request domain.Request
	Stored  bool
}

type ListResult struct {
	Requests   []domain.Request
	Summary    domain.Summary
	AssignedTo string
	Source     string
	UpdatedAt  time.Time
}

type UpdateResult struct {
	ID     string
	Record *domain.Request
	Stored bool
}

type Service struct {
	Requests domain.Repository
	Analyses domain.AnalysisRepository
	Clock    application.Clock
	Logger   *zap.Logger
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

// NewID builds "SR" plus the last six digits of the unix millis.
func NewID(at time.Time) string {
	return fmt.Sprintf("SR%06d", at.UnixMilli()%1_000_000)
}

// Create validates consent, assigns and prioritizes the request, then stores
// it. A store failure is logged; the request is still accepted.
func (s *Service) Create(ctx context.Context, in CreateInput, meta ClientMeta) (CreateResult, error) {
	if !in.DataStorageConsent {
		return CreateResult{}, domain.ErrConsentRequired
	}
	now := s.clock().Now()
	volume := domain.ParseTradeVolume(in.TradeVolume)
	email := strings.TrimSpace(in.Email)
	if email == "" {
		email = domain.DefaultEmail
	}
	policy := in.PrivacyPolicyVersion
	if policy == "" {
		policy = domain.DefaultPolicyVersion
	}

	req := domain.Request{
		ID:          NewID(now),
		ServiceType: in.ServiceType,
		CompanyName: in.CompanyName,
		ContactName: in.ContactName,
		Email:       email,
		Phone:       in.Phone,
		Industry:    in.Industry,
		TradeVolume: volume,
		AssignedTo:  domain.DefaultAssignee,
		Status:      domain.StatusConsultationScheduled,
		Priority:    domain.DerivePriority(volume, in.Timeline, in.BudgetRange),
		Timeline:    in.Timeline,
		BudgetRange: in.BudgetRange,
		Consent: domain.Consent{
			DataStorage:          true,
			Timestamp:            in.ConsentTimestamp,
			PrivacyPolicyVersion: policy,
			IPAddress:            meta.IPAddress,
			UserAgent:            meta.UserAgent,
		},
		ConsultationStatus:   domain.ConsultationPending,
		ConsultationDuration: domain.ConsultationLength,
		NextSteps:            domain.InitialNextStep,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if len(in.Details) > 0 {
		if b, err := json.Marshal(in.Details); err == nil {
			req.ServiceDetails = b
		}
	}
	if len(in.WorkflowData) > 0 && string(in.WorkflowData) != "null" {
		req.WorkflowData = in.WorkflowData
	}

	log := s.log().With(zap.String("request_id", req.ID), zap.String("company", req.CompanyName))
	if s.Requests == nil {
		log.Warn("service request store not configured, request not persisted")
		return CreateResult{Request: req}, nil
	}
	if err := s.Requests.Create(ctx, &req); err != nil {
		log.Warn("store service request failed", zap.Error(err))
		return CreateResult{Request: req}, nil
	}
	log.Info("service request created", zap.String("assigned_to", req.AssignedTo), zap.String("priority", string(req.Priority)))
	return CreateResult{Request: req, Stored: true}, nil
}

// List loads requests newest first with their latest analysis attached.
// An unavailable store yields an empty list.
func (s *Service) List(ctx context.Context, assignedTo string) ListResult {
	now := s.clock().Now()
	out := ListResult{Requests: []domain.Request{}, AssignedTo: assignedTo, UpdatedAt: now}
	if out.AssignedTo == "" {
		out.AssignedTo = "all"
	}
	if s.Requests != nil {
		reqs, err := s.Requests.List(ctx, assignedTo)
		if err != nil {
			s.log().Warn("list service requests failed", zap.Error(err))
		} else if reqs != nil {
			out.Requests = reqs
		}
	}
	s.attachAnalyses(ctx, out.Requests)

	out.Summary = domain.Summarize(out.Requests, now)
	out.Source = "sample_data"
	if len(out.Requests) > 3 {
		out.Source = "database"
	}
	return out
}

func (s *Service) attachAnalyses(ctx context.Context, reqs []domain.Request) {
	if s.Analyses == nil || len(reqs) == 0 {
		return
	}
	seen := map[string]bool{}
	var emails []string
	for _, r := range reqs {
		if r.Email != "" && !seen[r.Email] {
			seen[r.Email] = true
			emails = append(emails, r.Email)
		}
	}
	if len(emails) == 0 {
		return
	}
	byEmail, err := s.Analyses.ByEmails(ctx, emails)
	if err != nil {
		s.log().Warn("load vulnerability analyses failed", zap.Error(err))
		return
	}
	for i := range reqs {
		list := byEmail[reqs[i].Email]
		if len(list) == 0 {
			continue
		}
		latest := list[0]
		reqs[i].VulnerabilityAnalysis = &latest
		reqs[i].TotalAnalyses = len(list)
	}
}

// Update applies a PATCH body. Fields outside UpdatableFields are ignored.
// Unknown ids return ErrNotFound; any other store error is reported as not stored.
func (s *Service) Update(ctx context.Context, body map[string]any) (UpdateResult, error) {
	id, _ := body["id"].(string)
	id = strings.TrimSpace(id)
	if id == "" {
		return UpdateResult{}, domain.ErrMissingID
	}
	u := domain.Update{ID: id, Fields: map[string]any{}}
	if raw, ok := body["status"].(string); ok && raw != "" {
		u.Status = domain.Status(raw)
		if !u.Status.Valid() {
			return UpdateResult{}, domain.ErrInvalidStatus
		}
	}
	for k, v := range body {
		if domain.UpdatableFields[k] {
			u.Fields[k] = v
		}
	}

	res := UpdateResult{ID: id}
	if s.Requests == nil {
		return res, nil
	}
	rec, err := s.Requests.Update(ctx, u, s.clock().Now())
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return res, err
	case err != nil:
		s.log().Warn("update service request failed", zap.String("request_id", id), zap.Error(err))
		return res, nil
	}
	res.Record = rec
	res.Stored = true
	return res, nil
}
