package goldmine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/triangle-intel/internal/domain/cascade"
	domain "github.com/bryanwahyu/triangle-intel/internal/domain/goldmine"
	"github.com/bryanwahyu/triangle-intel/internal/domain/profile"
	"github.com/bryanwahyu/triangle-intel/internal/domain/session"
)

const (
	EventUserPageAnalysis = "user_page_analysis"

	baseNetworkSessions = 240
	marketAlertTTL      = 24 * time.Hour
	apiCacheTTL         = time.Hour
)

// SavePageData upserts the session row for page and appends a network event.
// Failures are logged and reported in the result, never returned.
func (s *Service) SavePageData(ctx context.Context, sessionID, page string, p profile.UserProfile, raw json.RawMessage) domain.SaveResult {
	now := s.clock().Now()
	if sessionID == "" {
		sessionID = session.NewID(p.CompanyName, now)
	}
	res := domain.SaveResult{SessionID: sessionID, Patterns: p.Patterns()}
	if res.Patterns == nil {
		res.Patterns = []string{}
	}
	if s.Sessions == nil {
		res.Error = errStoreUnavailable.Error()
		return res
	}
	log := s.log().With(zap.String("session_id", sessionID), zap.String("page", page))

	rec, err := s.Sessions.Get(ctx, sessionID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		fresh := session.New(sessionID, now)
		rec = &fresh
		res.NewSession = true
	case err != nil:
		log.Warn("load session failed", zap.Error(err))
		res.Error = err.Error()
		return res
	}

	if rec.Stages == nil {
		rec.Stages = map[cascade.Stage]json.RawMessage{}
	}
	if rec.Completed == nil {
		rec.Completed = map[cascade.Stage]bool{}
	}
	rec.Profile = p.Merge(rec.Profile)
	rec.CurrentPage = page
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	stage := cascade.Stage(page)
	rec.Stages[stage] = raw
	if stage.Known() {
		rec.Completed[stage] = true
	}
	rec.UpdatedAt = now

	if err := s.Sessions.Upsert(ctx, *rec); err != nil {
		log.Warn("upsert session failed", zap.Error(err))
		res.Error = err.Error()
		return res
	}
	res.Saved = true
	res.SessionGrowth = s.networkGrowth(ctx)

	evt := session.Event{
		Type:      EventUserPageAnalysis,
		SessionID: sessionID,
		Data: map[string]any{
			"business_type":     p.BusinessType,
			"supplier_country":  p.PrimarySupplierCountry,
			"page":              page,
			"import_volume":     p.ImportVolume,
			"patterns_detected": res.Patterns,
		},
		Summary:   fmt.Sprintf("%s company analyzing %s suppliers on %s page", p.BusinessType, p.PrimarySupplierCountry, page),
		CreatedAt: now,
	}
	if s.Events != nil {
		if err := s.Events.Append(ctx, evt); err != nil {
			log.Warn("append network event failed", zap.Error(err))
		}
	}
	if err := s.publisher().Publish(ctx, evt); err != nil {
		log.Warn("publish network event failed", zap.Error(err))
	}
	return res
}

// networkGrowth labels how far the session count has grown past the base.
func (s *Service) networkGrowth(ctx context.Context) string {
	n, err := s.Sessions.Count(ctx)
	if err != nil || n <= 0 {
		return "moderately"
	}
	m := float64(n) / baseNetworkSessions
	switch {
	case m < 1.5:
		return "moderately"
	case m < 2.0:
		return "significantly"
	case m < 3.0:
		return "exponentially"
	}
	return "impossibly"
}

// UpdateMarketAlert refreshes the current rate for country with a 24h expiry.
func (s *Service) UpdateMarketAlert(ctx context.Context, country, businessType string) bool {
	if s.Market == nil {
		return false
	}
	now := s.clock().Now()
	code := profile.NormalizeCountry(country)
	err := s.Market.UpsertAlert(ctx, domain.MarketAlert{
		Country:      code,
		BusinessType: businessType,
		CurrentRate:  domain.CurrentRate(code),
		UpdatedAt:    now,
		ExpiresAt:    now.Add(marketAlertTTL),
	})
	if err != nil {
		s.log().Warn("market alert update failed", zap.String("country", code), zap.Error(err))
		return false
	}
	return true
}

// CacheAPIResponse stores body in api_cache for one hour.
func (s *Service) CacheAPIResponse(ctx context.Context, endpoint string, params map[string]any, body any) bool {
	if s.Market == nil {
		return false
	}
	p, err := json.Marshal(params)
	if err != nil {
		return false
	}
	b, err := json.Marshal(body)
	if err != nil {
		return false
	}
	now := s.clock().Now()
	err = s.Market.UpsertAPICache(ctx, domain.APICacheEntry{
		CacheKey:  endpoint + "_" + string(p),
		Endpoint:  endpoint,
		Response:  b,
		CreatedAt: now,
		ExpiresAt: now.Add(apiCacheTTL),
	})
	if err != nil {
		s.log().Warn("api cache update failed", zap.String("endpoint", endpoint), zap.Error(err))
		return false
	}
	return true
}
