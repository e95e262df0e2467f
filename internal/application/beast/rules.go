package beast

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bryanwahyu/triangle-intel/internal/domain/intelligence"
)

const (
	levelHigh    = "HIGH"
	seasonQ4     = "Q4_HEAVY"
	statusPeak   = "PEAK_SEASON"
	maxTop       = 5
	maxRecs      = 5
	baseNetwork  = 240.0
	growthCutoff = 1.2
)

var priorityWeight = map[string]int{"critical": 4, "high": 3, "medium": 2, "low": 1}

func shippingHigh(b intelligence.Beasts) bool {
	return b.Shipping != nil && b.Shipping.ConstraintLevel == levelHigh
}

func isPeak(pattern, status string) bool {
	return pattern == seasonQ4 || strings.Contains(pattern, "PEAK") || strings.Contains(status, "PEAK")
}

func alerts(b intelligence.Beasts) intelligence.Alerts {
	out := intelligence.Alerts{Priority: []intelligence.Alert{}, Standard: []intelligence.Alert{}}
	vol := b.Market.Volatility
	if vol > 0.7 {
		out.Priority = append(out.Priority, intelligence.Alert{
			Type:       "MARKET_VOLATILITY",
			Priority:   "high",
			Message:    fmt.Sprintf("High tariff volatility detected (%d%%) - immediate action recommended", pct(vol)),
			Confidence: 90,
			Urgency:    "immediate",
		})
	}
	if shippingHigh(b) {
		out.Priority = append(out.Priority, intelligence.Alert{
			Type:       "SHIPPING_CAPACITY",
			Priority:   "high",
			Message:    "High shipping capacity constraints - lock in rates immediately",
			Confidence: 85,
			Urgency:    "immediate",
		})
	}
	if b.Seasonal.Status == statusPeak {
		out.Standard = append(out.Standard, intelligence.Alert{
			Type:       "SEASONAL_TIMING",
			Priority:   "medium",
			Message:    "Peak season detected - optimal time for implementation",
			Confidence: 80,
			Urgency:    "normal",
		})
	}
	if vol > 0.7 && shippingHigh(b) {
		out.Priority = append(out.Priority, intelligence.Alert{
			Type:       "PERFECT_STORM_COMPOUND",
			Priority:   "critical",
			Message:    "Perfect storm detected: High market volatility + shipping capacity crisis",
			Confidence: 95,
			Sources:    []string{"market", "shipping"},
			Urgency:    "immediate",
		})
	}
	return out
}

func topInsights(b intelligence.Beasts) []intelligence.Insight {
	out := []intelligence.Insight{}
	if n := len(b.Similarity.Matches); n > 0 {
		text := fmt.Sprintf("%d similar companies found with %s+ savings", n, orDefault(b.Similarity.AverageSavings, defaultAverageSavings))
		if b.Seasonal.CurrentPattern != "" {
			text += fmt.Sprintf(" during %s season", b.Seasonal.CurrentPattern)
		}
		out = append(out, intelligence.Insight{
			Type: "enhanced_similarity", Priority: "high", Insight: text, Confidence: 85,
			Sources: []string{"similarity", "seasonal"},
		})
	}
	if vol := b.Market.Volatility; vol > 0 {
		prio := "medium"
		if vol > 0.7 {
			prio = "high"
		}
		text := fmt.Sprintf("Market volatility: %d%%", pct(vol))
		if b.Shipping != nil {
			text += fmt.Sprintf(" + %s shipping constraints", b.Shipping.ConstraintLevel)
		}
		text += " - " + orDefault(b.Market.Recommendation, "monitor closely")
		out = append(out, intelligence.Insight{
			Type: "enhanced_market", Priority: prio, Insight: text, Confidence: 80,
			Sources: []string{"market", "shipping"},
		})
	}
	if n := len(b.Patterns.Patterns); n > 0 {
		out = append(out, intelligence.Insight{
			Type:       "enhanced_success",
			Priority:   "medium",
			Insight:    fmt.Sprintf("%d proven success patterns identified with %d%% success rate", n, averageSuccess(b.Patterns)),
			Confidence: 90,
			Sources:    []string{"patterns", "alerts"},
		})
	}
	sortByWeight(out)
	if len(out) > maxTop {
		out = out[:maxTop]
	}
	return out
}

// urut berdasarkan bobot prioritas x confidence, stable untuk nilai sama
func sortByWeight(in []intelligence.Insight) {
	sort.SliceStable(in, func(i, j int) bool {
		return priorityWeight[in[i].Priority]*in[i].Confidence > priorityWeight[in[j].Priority]*in[j].Confidence
	})
}

func averageSuccess(p intelligence.Patterns) int {
	if p.AverageSuccess > 0 {
		return p.AverageSuccess
	}
	if len(p.Patterns) == 0 {
		return 0
	}
	sum := 0
	for _, x := range p.Patterns {
		sum += x.SuccessRate
	}
	return sum / len(p.Patterns)
}

// compound menggabungkan dua atau lebih sinyal
func compound(b intelligence.Beasts, growthCap float64) []intelligence.Insight {
	out := []intelligence.Insight{}
	sim, sea, mkt, pat := b.Similarity, b.Seasonal, b.Market, b.Patterns
	vol := mkt.Volatility
	hasSim := len(sim.Matches) > 0
	hasPat := len(pat.Patterns) > 0

	if hasSim && sea.CurrentPattern != "" && vol > 0 {
		if isPeak(sea.CurrentPattern, sea.Status) && sim.SuccessRate > 85 && vol > 0.7 {
			in := intelligence.Insight{
				Type:       "perfect_storm",
				Priority:   "critical",
				Confidence: 95,
				Sources:    []string{"similarity", "seasonal", "market"},
			}
			text := "Perfect Storm: High success rate + peak season + market volatility"
			if b.Shipping != nil && b.Shipping.Confidence > 80 {
				in.Confidence += 3
				in.Sources = append(in.Sources, "shipping")
			}
			if shippingHigh(b) {
				text += " + shipping capacity crisis"
				in.Actionable = "URGENT: Lock in capacity immediately - perfect storm with shipping crisis"
				in.Urgency = "critical"
				in.PotentialSavings = "$300K-$750K"
			} else {
				in.Actionable = "Immediate action recommended - optimal conditions for triangle routing"
				in.Urgency = "high"
				in.PotentialSavings = "$200K-$500K"
			}
			in.Insight = text + " detected"
			out = append(out, in)
		}
	}

	if hasSim && hasPat {
		growth := math.Min((baseNetwork+float64(sim.TotalSimilarCompanies)+10*float64(len(pat.Patterns)))/baseNetwork, growthCap)
		if growth > growthCutoff {
			out = append(out, intelligence.Insight{
				Type:              "network_effects",
				Priority:          "high",
				Insight:           fmt.Sprintf("Network intelligence growing: %d%% more data since similar companies analyzed", int(math.Round((growth-1)*100))),
				Confidence:        88,
				Sources:           []string{"similarity", "patterns"},
				NetworkMultiplier: growth,
			})
		}
	}

	if hasPat && sim.TotalSimilarCompanies > 0 {
		out = append(out, intelligence.Insight{
			Type:       "institutional_learning",
			Priority:   "high",
			Insight:    fmt.Sprintf("Institutional memory shows %d similar companies achieved %s", sim.TotalSimilarCompanies, orDefault(pat.Patterns[0].Outcome, "success")),
			Confidence: 92,
			Sources:    []string{"patterns", "similarity"},
		})
	}

	if sea.Recommendation != "" && len(mkt.Trends) > 0 {
		out = append(out, intelligence.Insight{
			Type:       "timing_optimization",
			Priority:   "high",
			Insight:    fmt.Sprintf("%s timing aligns with current market trends for maximum impact", sea.Recommendation),
			Confidence: 85,
			Sources:    []string{"seasonal", "market"},
			Actionable: fmt.Sprintf("Execute %s strategy within next 30 days", sea.CurrentPattern),
		})
	}

	if hasSim && sea.CurrentPattern != "" {
		out = append(out, intelligence.Insight{
			Type:       "seasonal_similarity",
			Priority:   "high",
			Insight:    fmt.Sprintf("Similar companies in %s season show %s success", sea.CurrentPattern, orDefault(sim.BestPractice, "triangle routing")),
			Confidence: 90,
			Sources:    []string{"similarity", "seasonal"},
		})
	}

	if vol > 0.6 && hasPat {
		out = append(out, intelligence.Insight{
			Type:       "volatility_pattern",
			Priority:   "high",
			Insight:    fmt.Sprintf("High volatility detected - %s recommended based on success patterns", orDefault(pat.Patterns[0].Strategy, "USMCA routing")),
			Confidence: 85,
			Sources:    []string{"market", "patterns"},
		})
	}

	if b.Shipping != nil && sea.CurrentPattern != "" && vol > 0 {
		q4 := strings.Contains(sea.CurrentPattern, "Q4") || isPeak(sea.CurrentPattern, sea.Status)
		switch {
		case q4 && shippingHigh(b) && vol > 0.7:
			out = append(out, intelligence.Insight{
				Type:             "shipping_crisis",
				Priority:         "critical",
				Insight:          "Triple threat: Q4 peak + shipping capacity crisis + high market volatility creating perfect storm",
				Confidence:       92,
				Sources:          []string{"shipping", "seasonal", "market"},
				Actionable:       "Emergency capacity booking required - prices increasing 40-60% weekly",
				Urgency:          "critical",
				PotentialSavings: "$500K-$1M+ through immediate action",
			})
		case shippingHigh(b):
			out = append(out, intelligence.Insight{
				Type:             "capacity_constraint",
				Priority:         "high",
				Insight:          fmt.Sprintf("Shipping capacity constraints detected during %s - rates increasing", sea.CurrentPattern),
				Confidence:       88,
				Sources:          []string{"shipping", "seasonal"},
				Actionable:       "Book capacity now before prices increase further",
				Urgency:          "high",
				PotentialSavings: "$150K-$300K through proactive booking",
			})
		}
	}
	return out
}

func recommendations(b intelligence.Beasts) []intelligence.Recommendation {
	out := []intelligence.Recommendation{}
	if b.Similarity.BestPractice != "" {
		out = append(out, intelligence.Recommendation{
			Action:           b.Similarity.BestPractice,
			Rationale:        "Based on similar successful companies",
			Priority:         "high",
			EstimatedSavings: b.Similarity.AverageSavings,
		})
	}
	if b.Market.Volatility > 0.7 {
		out = append(out, intelligence.Recommendation{
			Action:           "Lock in USMCA rates now",
			Rationale:        "High market volatility detected",
			Priority:         "urgent",
			EstimatedSavings: "$200K-$300K",
		})
	}
	if b.Seasonal.Recommendation != "" {
		out = append(out, intelligence.Recommendation{
			Action:           b.Seasonal.Recommendation,
			Rationale:        fmt.Sprintf("%s season optimization", b.Seasonal.CurrentPattern),
			Priority:         "medium",
			EstimatedSavings: "$50K-$100K",
		})
	}
	if shippingHigh(b) {
		out = append(out, intelligence.Recommendation{
			Action:           "Lock in shipping capacity immediately",
			Rationale:        "High shipping capacity constraints detected - rates increasing rapidly",
			Priority:         "urgent",
			EstimatedSavings: "$200K-$400K in avoided premium rates",
			Category:         "SHIPPING_CAPACITY",
		})
	}
	if len(out) > maxRecs {
		out = out[:maxRecs]
	}
	return out
}

// confidence: 60 + bobot per sinyal, dikali multiplier, dibatasi 0..100
func confidence(b intelligence.Beasts, mult float64) int {
	score := 60
	add := func(w float64) { score += int(math.Round(w * mult)) }
	if len(b.Similarity.Matches) > 0 {
		add(8)
	}
	if b.Seasonal.CurrentPattern != "" {
		add(7)
	}
	if b.Market.Volatility > 0 {
		add(7)
	}
	if len(b.Patterns.Patterns) > 0 {
		add(8)
	}
	if b.Shipping != nil {
		add(7)
	}
	if b.Alerts.Len() > 0 {
		add(3)
	}
	return clamp(score, 0, 100)
}

// dataQuality averages similarity, seasonal, market and shipping. Success
// patterns only feed confidence.
func dataQuality(b intelligence.Beasts) int {
	vals := []int{b.Similarity.DataQuality, b.Seasonal.DataQuality, b.Market.DataQuality}
	if b.Shipping != nil {
		vals = append(vals, b.Shipping.DataQuality)
	}
	sum, n := 0, 0
	for _, v := range vals {
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 70
	}
	return int(math.Round(float64(sum) / float64(n)))
}

func intelligenceQuality(u intelligence.Unified) int {
	q := 0
	if len(u.Insights.Top) > 0 {
		q += 25
	}
	if len(u.Insights.Compound) > 0 {
		q += 25
	}
	if len(u.Recommendations) > 0 {
		q += 25
	}
	if u.Summary.Confidence > 70 {
		q += 25
	} else {
		q += 15
	}
	return q
}

func pct(v float64) int { return int(math.Round(v * 100)) }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
