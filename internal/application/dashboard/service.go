package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/triangle-intel/internal/application"
	gm "github.com/bryanwahyu/triangle-intel/internal/application/goldmine"
	"github.com/bryanwahyu/triangle-intel/internal/domain/goldmine"
	"github.com/bryanwahyu/triangle-intel/internal/domain/intelligence"
	"github.com/bryanwahyu/triangle-intel/internal/domain/profile"
)

type Activator interface {
	Activate(ctx context.Context, p profile.UserProfile, page string) intelligence.Activation
}

type StableReader interface {
	Stable(ctx context.Context, hsCode, businessType string) goldmine.StableIntel
}

type Request struct {
	DashboardView   string               `json:"dashboardView"`
	MockUserProfile *profile.UserProfile `json:"mockUserProfile"`
}

type Service struct {
	Beast    Activator
	Goldmine StableReader
	Clock    application.Clock
	Logger   *zap.Logger
}

const (
	defaultView = "executive"
	hubPage     = "dashboard_hub"
)

// profil demo yang dipakai kalau client tidak kirim mockUserProfile
func demoProfile() profile.UserProfile {
	return profile.UserProfile{
		CompanyName:            "Dashboard Hub Demo",
		BusinessType:           "Electronics",
		PrimarySupplierCountry: "China",
		ImportVolume:           "$1M - $5M",
		TimelinePriority:       profile.PriorityCost,
	}
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

// Intelligence aggregates the orchestrator and the stable readers into the
// dashboard payload. It always returns a payload.
func (s *Service) Intelligence(ctx context.Context, req Request) (resp Response) {
	view := req.DashboardView
	if view == "" {
		view = defaultView
	}
	now := s.clock().Now()
	defer func() {
		if r := recover(); r != nil {
			s.log().Error("dashboard: aggregation panic", zap.Any("panic", r))
			resp = Hardcoded(view, now, fmt.Sprint(r))
		}
	}()
	if err := ctx.Err(); err != nil {
		return Hardcoded(view, now, err.Error())
	}

	p := demoProfile()
	if req.MockUserProfile != nil {
		p = req.MockUserProfile.Merge(p)
	}

	var (
		act intelligence.Activation
		st  goldmine.StableIntel
		g   errgroup.Group
	)
	g.Go(guard(func() { act = s.Beast.Activate(ctx, p, hubPage) }))
	g.Go(guard(func() { st = s.Goldmine.Stable(ctx, p.HSCode, p.BusinessType) }))
	if err := g.Wait(); err != nil {
		s.log().Error("dashboard: aggregation failed", zap.Error(err))
		return Hardcoded(view, now, err.Error())
	}

	return build(view, now, act, st)
}

// guard mengubah panic di goroutine jadi error biasa
func guard(fn func()) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%v", r)
			}
		}()
		fn()
		return nil
	}
}

func build(view string, now time.Time, act intelligence.Activation, st goldmine.StableIntel) Response {
	b := act.Beasts
	status := map[string]BeastStatus{
		"similarity": beastStatus(b.Similarity.Source, b.Similarity.DataQuality),
		"seasonal":   beastStatus(b.Seasonal.Source, b.Seasonal.DataQuality),
		"market":     beastStatus(b.Market.Source, b.Market.DataQuality),
		"patterns":   beastStatus(b.Patterns.Source, b.Patterns.DataQuality),
	}
	if b.Shipping != nil {
		status["shipping"] = beastStatus(b.Shipping.Source, b.Shipping.DataQuality)
	}
	compound := act.Unified.Insights.Compound
	if compound == nil {
		compound = []intelligence.Insight{}
	}
	total := gm.TotalRecords(st)

	return Response{
		Success: true,
		Intelligence: Intelligence{
			Metrics: Metrics{
				TradeFlows:        humanize.Comma(int64(orInt(st.Comtrade.TotalRecords, defaultComtrade))) + "+",
				TotalRecords:      total,
				TotalRecordsLabel: humanize.Comma(int64(total)) + "+",
				NetworkSessions:   orInt(st.Workflow.TotalSessions, defaultSessions),
				CompoundInsights:  act.CompoundCount,
			},
			MarketContext: MarketContext{
				Volatility:     volatilityLabel(b.Market.Volatility),
				RiskLevel:      b.Market.RiskLevel,
				Recommendation: b.Market.Recommendation,
			},
			BeastMasterStatus: status,
			CompoundInsights:  compound,
			IntelligenceSources: Sources{
				Comtrade:  SourceCount{Records: st.Comtrade.TotalRecords},
				Workflow:  SourceCount{Sessions: st.Workflow.TotalSessions},
				Marcus:    SourceCount{Consultations: st.Marcus.TotalConsultations},
				Hindsight: SourceCount{Patterns: st.Hindsight.TotalPatterns},
			},
			Performance: Performance{
				TotalProcessingTime:  act.Performance.ProcessingTimeMS,
				IntelligenceQuality:  act.Performance.IntelligenceQuality,
				NetworkEffectsActive: !st.Workflow.Fallback && st.Workflow.TotalSessions > 0,
				ActivationStatus:     string(act.Status),
			},
		},
		Timestamp: now,
		View:      view,
	}
}

func beastStatus(source string, quality int) BeastStatus {
	if source == intelligence.SourceFallback {
		return BeastStatus{Status: "FALLBACK", Confidence: quality}
	}
	return BeastStatus{Status: "ACTIVE", Confidence: quality}
}

func volatilityLabel(v float64) string {
	switch {
	case v > 0.7:
		return "HIGH"
	case v > 0.5:
		return "MODERATE"
	default:
		return "LOW"
	}
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
