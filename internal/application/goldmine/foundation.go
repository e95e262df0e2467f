package goldmine

import (
	"context"
	"encoding/json"
	"math"

	"golang.org/x/sync/errgroup"

	domain "github.com/bryanwahyu/triangle-intel/internal/domain/goldmine"
	"github.com/bryanwahyu/triangle-intel/internal/domain/profile"
)

// Fixed weights for the foundation confidence score.
const (
	baseConfidence      = 60.0
	comtradeWeight      = 0.25
	workflowWeight      = 0.25
	marcusWeight        = 0.2
	hindsightWeight     = 0.2
	qualityFloor        = 50
	threeSourceBonus    = 10.0
	fourSourceBonus     = 5.0
	knownTotalRecords   = 519341
	foundationAuthority = "GOLDMINE_TRIANGLE_INTELLIGENCE_DATABASE"
)

// Foundation saves the foundation page then queries all stable readers concurrently.
func (s *Service) Foundation(ctx context.Context, sessionID string, p profile.UserProfile, raw json.RawMessage) domain.FoundationIntel {
	save := s.SavePageData(ctx, sessionID, "foundation", p, raw)
	stable := s.Stable(ctx, p.HSCode, p.BusinessType)

	out := domain.FoundationIntel{
		Stable:      stable,
		Volatile:    save,
		GeneratedAt: s.clock().Now(),
		AllFellBack: stable.Comtrade.Fallback && stable.Workflow.Fallback && stable.Marcus.Fallback && stable.Hindsight.Fallback,
	}
	out.MarketUpdated = s.UpdateMarketAlert(ctx, p.PrimarySupplierCountry, p.BusinessType)

	score, sources := Confidence(stable)
	growth := "STABLE"
	if save.Saved {
		growth = "GROWING"
	}
	out.Summary = domain.FoundationSummary{
		TotalRecords:      TotalRecords(stable),
		ConfidenceScore:   score,
		SourcesAvailable:  sources,
		NewSessionCreated: save.Saved,
		SourceAuthority:   foundationAuthority,
		NetworkGrowth:     growth,
	}
	return out
}

// Stable runs the four stable readers concurrently. Readers never fail;
// each substitutes its own fallback.
func (s *Service) Stable(ctx context.Context, hsCode, businessType string) domain.StableIntel {
	var out domain.StableIntel
	var g errgroup.Group
	g.Go(func() error { out.Comtrade = s.Comtrade(ctx, hsCode, businessType); return nil })
	g.Go(func() error { out.Workflow = s.Workflow(ctx, businessType); return nil })
	g.Go(func() error { out.Marcus = s.Consultations(ctx); return nil })
	g.Go(func() error { out.Hindsight = s.Patterns(ctx); return nil })
	_ = g.Wait()
	return out
}

func TotalRecords(st domain.StableIntel) int {
	total := st.Comtrade.TotalRecords + st.Workflow.TotalSessions + st.Marcus.TotalConsultations + st.Hindsight.TotalPatterns
	if total == 0 {
		return knownTotalRecords
	}
	return total
}

// Confidence returns the weighted score and how many sources counted.
func Confidence(st domain.StableIntel) (int, int) {
	score := baseConfidence
	sources := 0
	add := func(q int, w float64) {
		if q > qualityFloor {
			score += float64(q) * w
			sources++
		}
	}
	add(st.Comtrade.DataQuality, comtradeWeight)
	add(st.Workflow.DataQuality, workflowWeight)
	add(st.Marcus.DataQuality, marcusWeight)
	add(st.Hindsight.DataQuality, hindsightWeight)
	if sources >= 3 {
		score += threeSourceBonus
	}
	if sources >= 4 {
		score += fourSourceBonus
	}
	return int(math.Min(math.Round(score), 100)), sources
}
