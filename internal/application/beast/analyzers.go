package beast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/triangle-intel/internal/domain/intelligence"
	"github.com/bryanwahyu/triangle-intel/internal/domain/profile"
)

const (
	sourceNetwork   = "NETWORK"
	sourceCalendar  = "CALENDAR"
	sourceModel     = "VOLATILITY_MODEL"
	sourceHindsight = "HINDSIGHT"

	defaultAverageSavings = "$245K"
	defaultBestPractice   = "Triangle routing via Mexico"
	defaultStrategy       = "Triangle routing"
	defaultOutcome        = "Significant cost savings achieved"
	patternSuccessRate    = 85
)

var errNoSource = errors.New("beast: data source not configured")

// volatility per negara supplier, default dipakai untuk negara yang tidak dikenal
var volatility = map[string]float64{
	"CN": 0.85,
	"IN": 0.75,
	"VN": 0.65,
	"TH": 0.55,
	"MX": 0.25,
	"CA": 0.20,
}

const defaultVolatility = 0.60

// similarity: sesi terbaru dengan negara supplier yang sama
func (s *Service) similarity(ctx context.Context, p profile.UserProfile) (intelligence.Similarity, error) {
	if s.Sessions == nil {
		return intelligence.Similarity{}, errNoSource
	}
	recs, err := s.Sessions.Recent(ctx, s.cfg().BatchSize)
	if err != nil {
		return intelligence.Similarity{}, fmt.Errorf("recent sessions: %w", err)
	}
	want := p.CountryCode()
	matches := []intelligence.Match{}
	for _, r := range recs {
		if want == "" || r.Profile.PrimarySupplierCountry == "" {
			continue
		}
		if profile.NormalizeCountry(r.Profile.PrimarySupplierCountry) != want {
			continue
		}
		matches = append(matches, intelligence.Match{
			SessionID:       r.SessionID,
			CompanyName:     r.Profile.CompanyName,
			BusinessType:    r.Profile.BusinessType,
			SupplierCountry: r.Profile.PrimarySupplierCountry,
		})
	}
	out := intelligence.Similarity{
		Source:                sourceNetwork,
		Matches:               matches,
		TotalSimilarCompanies: len(matches),
		AverageSavings:        defaultAverageSavings,
		BestPractice:          defaultBestPractice,
		SuccessRate:           75,
		DataQuality:           60,
	}
	if len(matches) > 0 {
		out.SuccessRate = 87
		out.DataQuality = 90
	}
	return out, nil
}

func quarterOf(t time.Time) int { return (int(t.Month())-1)/3 + 1 }

// seasonal murni dari kalender
func seasonal(now time.Time) intelligence.Seasonal {
	q := quarterOf(now)
	out := intelligence.Seasonal{Source: sourceCalendar, Quarter: q, DataQuality: 85}
	switch m := now.Month(); {
	case q == 4:
		out.CurrentPattern = "Q4_HEAVY"
		out.Recommendation = "Accelerate implementation before year-end"
		out.Status = "PEAK_SEASON"
	case m >= time.June && m <= time.August:
		out.CurrentPattern = "SUMMER_PREPARATION"
		out.Recommendation = "Prepare for Q4 volume increases"
		out.Status = "PLANNING_SEASON"
	default:
		out.CurrentPattern = "STANDARD_OPTIMIZATION"
		out.Recommendation = "Steady implementation with quarterly reviews"
		out.Status = "NORMAL_SEASON"
	}
	return out
}

func market(p profile.UserProfile) intelligence.Market {
	code := p.CountryCode()
	if code == "" {
		code = "CN"
	}
	v, ok := volatility[code]
	if !ok {
		v = defaultVolatility
	}
	out := intelligence.Market{
		Source:         sourceModel,
		Volatility:     v,
		RiskLevel:      "MODERATE",
		Recommendation: "Monitor and plan transition",
		DataQuality:    80,
	}
	trend := "stable"
	if v > 0.7 {
		out.RiskLevel = "HIGH"
		out.Recommendation = "Immediate triangle routing recommended"
		trend = "increasing"
	}
	out.Trends = []intelligence.Trend{{Indicator: "tariff_volatility", Value: v, Direction: trend}}
	return out
}

// patterns dari hindsight, difilter per business type
func (s *Service) patterns(ctx context.Context, p profile.UserProfile) (intelligence.Patterns, error) {
	if s.Patterns == nil {
		return intelligence.Patterns{}, errNoSource
	}
	limit := max(s.cfg().BatchSize, 5) / 2
	rows, _, err := s.Patterns.RecentPatterns(ctx, limit)
	if err != nil {
		return intelligence.Patterns{}, fmt.Errorf("recent patterns: %w", err)
	}
	bt := strings.ToLower(strings.TrimSpace(p.BusinessType))
	list := []intelligence.Pattern{}
	for _, r := range rows {
		ctxText := strings.ToLower(r.BusinessContext)
		if bt != "" && ctxText != "" && !strings.Contains(ctxText, bt) {
			continue
		}
		list = append(list, intelligence.Pattern{
			Strategy:    orDefault(r.PatternType, defaultStrategy),
			Outcome:     orDefault(r.Outcome, defaultOutcome),
			SuccessRate: patternSuccessRate,
			Context:     r.BusinessContext,
		})
	}
	out := intelligence.Patterns{
		Source:        sourceHindsight,
		Patterns:      list,
		TotalPatterns: len(list),
		DataQuality:   60,
	}
	if len(list) > 0 {
		out.AverageSuccess = patternSuccessRate
		out.DataQuality = 90
	}
	return out, nil
}

func shipping(now time.Time) intelligence.Shipping {
	q := quarterOf(now)
	out := intelligence.Shipping{Source: sourceCalendar, Season: fmt.Sprintf("Q%d", q), DataQuality: 75}
	switch q {
	case 4:
		out.ConstraintLevel, out.Utilization, out.Confidence = "HIGH", 90, 85
	case 3:
		out.ConstraintLevel, out.Utilization, out.Confidence = "MEDIUM", 80, 80
	default:
		out.ConstraintLevel, out.Utilization, out.Confidence = "LOW", 70, 75
	}
	out.Insights = []string{fmt.Sprintf("Q%d shipping capacity: %s constraints detected", q, out.ConstraintLevel)}
	return out
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
