package beast

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/triangle-intel/internal/application"
	"github.com/bryanwahyu/triangle-intel/internal/domain/intelligence"
	"github.com/bryanwahyu/triangle-intel/internal/domain/outbox"
	"github.com/bryanwahyu/triangle-intel/internal/domain/profile"
	"github.com/bryanwahyu/triangle-intel/internal/domain/session"
)

const (
	patternCategory = "beast_master_consolidated"
	activationEvent = "beast_master_consolidated_activation"
)

// PatternSaver persists confident activations. It is the outbox handler
// for outbox.KindPatternSave; returning an error schedules a retry.
type PatternSaver struct {
	Sessions  session.Repository
	Events    session.EventRepository
	Matches   intelligence.PatternMatchRepository
	Publisher application.EventPublisher
	Clock     application.Clock
	Logger    *zap.Logger
}

func (h *PatternSaver) Kind() string { return outbox.KindPatternSave }

func (h *PatternSaver) Handle(ctx context.Context, msg outbox.Message) error {
	var ps intelligence.PatternSave
	if err := json.Unmarshal(msg.Payload, &ps); err != nil {
		return fmt.Errorf("decode pattern save: %w", err)
	}
	now := h.now()

	rec, err := h.Sessions.Get(ctx, ps.SessionID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		fresh := session.New(ps.SessionID, now)
		rec = &fresh
	case err != nil:
		return fmt.Errorf("load session %s: %w", ps.SessionID, err)
	}
	rec.Profile = rec.Profile.Merge(profile.UserProfile{
		CompanyName:            ps.CompanyName,
		BusinessType:           ps.BusinessType,
		PrimarySupplierCountry: ps.SupplierCountry,
		ImportVolume:           ps.ImportVolume,
	})
	if rec.CurrentPage == "" {
		rec.CurrentPage = ps.Page
	}
	rec.Analysis = &session.Analysis{
		Page:                ps.Page,
		Confidence:          ps.Confidence,
		CompoundInsights:    ps.CompoundInsights,
		TotalBeasts:         ps.TotalBeasts,
		IntelligenceQuality: ps.IntelligenceQuality,
		At:                  ps.ActivatedAt,
	}
	rec.UpdatedAt = now
	if err := h.Sessions.Upsert(ctx, *rec); err != nil {
		return fmt.Errorf("upsert session %s: %w", ps.SessionID, err)
	}

	if h.Matches != nil {
		m := intelligence.PatternMatch{
			SessionID:       ps.SessionID,
			PatternName:     fmt.Sprintf("%s Consolidated Intelligence Pattern", ps.BusinessType),
			PatternCategory: patternCategory,
			Confidence:      ps.Confidence,
			InsightsCount:   ps.CompoundInsights,
			BusinessType:    ps.BusinessType,
			CreatedAt:       now,
		}
		if err := h.Matches.Upsert(ctx, m); err != nil {
			return fmt.Errorf("upsert pattern match: %w", err)
		}
	}

	ev := session.Event{
		Type:      activationEvent,
		SessionID: ps.SessionID,
		Data: map[string]any{
			"page":                ps.Page,
			"businessType":        ps.BusinessType,
			"confidence":          ps.Confidence,
			"compoundInsights":    ps.CompoundInsights,
			"topInsights":         ps.TopInsights,
			"totalBeasts":         ps.TotalBeasts,
			"intelligenceQuality": ps.IntelligenceQuality,
			"processingTimeMs":    ps.ProcessingTimeMS,
		},
		Summary:   fmt.Sprintf("Beast Master consolidated generated %d compound insights for %s", ps.CompoundInsights, ps.BusinessType),
		CreatedAt: now,
	}
	if h.Events != nil {
		if err := h.Events.Append(ctx, ev); err != nil {
			return fmt.Errorf("append activation event: %w", err)
		}
	}
	// publish best-effort, event sudah tersimpan
	if h.Publisher != nil {
		if err := h.Publisher.Publish(ctx, ev); err != nil {
			h.log().Warn("beast: publish activation event failed", zap.String("session_id", ps.SessionID), zap.Error(err))
		}
	}
	return nil
}

func (h *PatternSaver) now() time.Time {
	if h.Clock == nil {
		return time.Now()
	}
	return h.Clock.Now()
}

func (h *PatternSaver) log() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
