package journey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bryanwahyu/triangle-intel/internal/application"
	progressive "github.com/bryanwahyu/triangle-intel/internal/application/cascade"
	"github.com/bryanwahyu/triangle-intel/internal/domain/cascade"
	"github.com/bryanwahyu/triangle-intel/internal/domain/goldmine"
	"github.com/bryanwahyu/triangle-intel/internal/domain/profile"
	"github.com/bryanwahyu/triangle-intel/internal/domain/session"
)

// ErrInvalidRequest: page kosong atau userData kosong/falsy
var ErrInvalidRequest = errors.New("missing page or userData")

type Goldmine interface {
	Foundation(ctx context.Context, sessionID string, p profile.UserProfile, raw json.RawMessage) goldmine.FoundationIntel
	SavePageData(ctx context.Context, sessionID, page string, p profile.UserProfile, raw json.RawMessage) goldmine.SaveResult
}

type Cascade interface {
	Enhance(ctx context.Context, sessionID string, stage cascade.Stage, p profile.UserProfile) progressive.Result
}

type Request struct {
	Page      string          `json:"page"`
	UserData  json.RawMessage `json:"userData"`
	SessionID string          `json:"sessionId,omitempty"`
}

// Validate decodes the profile out of userData. Only a missing or falsy
// userData is rejected; any other non-object value yields an empty profile.
func (r Request) Validate() (profile.UserProfile, error) {
	var p profile.UserProfile
	data := strings.TrimSpace(string(r.UserData))
	if strings.TrimSpace(r.Page) == "" || falsy(data) {
		return p, ErrInvalidRequest
	}
	if !strings.HasPrefix(data, "{") {
		return p, nil
	}
	if err := json.Unmarshal(r.UserData, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return p, nil
}

func falsy(data string) bool {
	if data == "" {
		return true
	}
	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case float64:
		return x == 0
	case string:
		return x == ""
	}
	return false
}

type Service struct {
	Goldmine Goldmine
	Cascade  Cascade
	Clock    application.Clock
	Logger   *zap.Logger
}

const (
	defaultComtradeRecords = 15079
	defaultNetworkSessions = 240
	defaultConsultations   = 70
	defaultConfidence      = 92
	defaultSessionGrowth   = "240+ sessions"
	errStableUnavailable   = "stable data readers unavailable"
)

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

// Submit processes one page. It never fails once the request is valid:
// internal errors come back as a success response in fallback mode.
func (s *Service) Submit(ctx context.Context, req Request, p profile.UserProfile) (resp Response) {
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = session.NewID(p.CompanyName, s.clock().Now())
	}
	page := req.Page
	defer func() {
		if r := recover(); r != nil {
			s.log().Error("journey: page submit panic", zap.String("page", page), zap.Any("panic", r))
			resp = fallback(page, sessionID, fmt.Sprint(r))
		}
	}()

	if page == string(cascade.StageFoundation) {
		return s.foundation(ctx, sessionID, p, req.UserData)
	}
	if s.Goldmine != nil {
		if save := s.Goldmine.SavePageData(ctx, sessionID, page, p, req.UserData); save.Error != "" {
			s.log().Warn("journey: page data not saved", zap.String("page", page), zap.String("error", save.Error))
		}
	}
	res := s.Cascade.Enhance(ctx, sessionID, cascade.Stage(page), p)
	return stageResponse(page, sessionID, res)
}

func (s *Service) foundation(ctx context.Context, sessionID string, p profile.UserProfile, raw json.RawMessage) Response {
	fi := s.Goldmine.Foundation(ctx, sessionID, p, raw)
	if fi.AllFellBack {
		msg := errStableUnavailable
		if fi.Volatile.Error != "" {
			msg = fi.Volatile.Error
		}
		return fallback(string(cascade.StageFoundation), sessionID, msg)
	}
	res := s.Cascade.Enhance(ctx, sessionID, cascade.StageFoundation, p)

	st := fi.Stable
	out := Response{
		Success:   true,
		Page:      string(cascade.StageFoundation),
		SessionID: sessionID,
		Message:   "Foundation processed with GOLDMINE intelligence",
		GoldmineIntelligence: FoundationGoldmine{
			Source:              "NUCLEAR_DATABASE_15079",
			ComtradeRecords:     orInt(st.Comtrade.TotalRecords, defaultComtradeRecords),
			RelevantRecords:     st.Comtrade.RelevantRecords,
			NetworkSessions:     orInt(st.Workflow.TotalSessions, defaultNetworkSessions),
			SimilarCompanies:    st.Workflow.SimilarCompanies,
			MarcusConsultations: orInt(st.Marcus.TotalConsultations, defaultConsultations),
			RelevantInsights:    st.Marcus.RelevantInsights,
			ConfidenceScore:     orInt(fi.Summary.ConfidenceScore, defaultConfidence),
		},
		DatabaseGrowth: &DatabaseGrowth{
			SessionSaved:      fi.Volatile.Saved,
			MarketDataUpdated: fi.MarketUpdated,
			SessionGrowth:     orString(fi.Volatile.SessionGrowth, defaultSessionGrowth),
		},
		ProgressiveIntelligence: &Progressive{
			QualityLevel:        orFloat(res.Quality, cascade.StageFoundation.Quality()),
			ContextDepth:        res.ContextDepth,
			IntelligenceType:    "foundation_page",
			ProgressiveInsights: nonNil(res.Insights),
			NextPagePrep:        "Product classification with company context",
		},
		Performance: &Performance{
			APICallsUsed:  0,
			DatabaseHits:  4,
			ResponseTime:  "sub-second",
			CacheStrategy: "stable_forever_volatile_ttl",
		},
	}
	if !st.Workflow.Fallback {
		out.NetworkEffects = &NetworkEffects{
			TotalUsers:       st.Workflow.TotalSessions,
			SimilarCompanies: st.Workflow.SimilarCompanies,
			AverageSavings:   st.Workflow.AverageSavings,
			TopChoices:       nonNil(st.Workflow.CommonSuppliers),
			NetworkEffect:    st.Workflow.NetworkEffect,
			Source:           "real_user_sessions",
		}
	}
	return out
}

func fallback(page, sessionID, errText string) Response {
	name := page
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	out := Response{
		Success:   true,
		Page:      page,
		SessionID: sessionID,
		Message:   fmt.Sprintf("%s processed with fallback mode", name),
		Error:     errText,
	}
	if page == string(cascade.StageFoundation) {
		out.GoldmineIntelligence = FallbackGoldmine{
			Source:              "FALLBACK_MODE",
			ComtradeRecords:     defaultComtradeRecords,
			NetworkSessions:     defaultNetworkSessions,
			MarcusConsultations: defaultConsultations,
			Status:              "database_temporarily_unavailable",
		}
	}
	if !cascade.Stage(page).Known() {
		out.Message = fmt.Sprintf("%s page processed with fallback mode", page)
	}
	return out
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
