package beast

import (
	"strings"
	"time"

	"github.com/bryanwahyu/triangle-intel/internal/domain/intelligence"
	"github.com/bryanwahyu/triangle-intel/internal/domain/profile"
)

const fallbackReason = "Primary intelligence systems unavailable"

// Emergency builds the hardcoded activation returned when orchestration itself fails.
func Emergency(p profile.UserProfile, page string, at time.Time) intelligence.Activation {
	bt := orDefault(p.BusinessType, "General")
	lower := strings.ToLower(bt)

	top := []intelligence.Insight{{
		Type:       "core_usmca",
		Priority:   "high",
		Insight:    "USMCA triangle routing provides guaranteed 0% tariffs vs volatile 30-50% direct rates",
		Confidence: 90,
		Sources:    []string{intelligence.SourceFallback},
	}}
	var rec intelligence.Recommendation
	switch {
	case strings.Contains(lower, "electronic") || strings.Contains(lower, "tech"):
		top = append(top, intelligence.Insight{
			Type:       "industry_specific",
			Priority:   "high",
			Insight:    "Electronics face 25-30% China tariffs - Mexico assembly qualifies for 0% USMCA rates",
			Confidence: 85,
			Sources:    []string{intelligence.SourceFallback},
		})
		rec = intelligence.Recommendation{
			Action:           "Route through Mexico assembly facilities",
			Rationale:        "Electronics qualify for USMCA with 35% regional value content",
			Priority:         "high",
			EstimatedSavings: "$200K-$500K annually",
		}
	case strings.Contains(lower, "manufactur"):
		top = append(top, intelligence.Insight{
			Type:       "industry_specific",
			Priority:   "high",
			Insight:    "Manufacturing components via Mexico achieve USMCA qualification",
			Confidence: 80,
			Sources:    []string{intelligence.SourceFallback},
		})
		rec = intelligence.Recommendation{
			Action:           "Establish Mexico supply chain for key components",
			Rationale:        "Manufacturing tariffs eliminated under USMCA",
			Priority:         "high",
			EstimatedSavings: "$150K-$400K annually",
		}
	default:
		rec = intelligence.Recommendation{
			Action:           "Explore triangle routing opportunities",
			Rationale:        "Treaty-locked 0% rates vs volatile bilateral tariffs",
			Priority:         "medium",
			EstimatedSavings: "$100K-$300K annually",
		}
	}
	top = append(top, intelligence.Insight{
		Type:       "market_context",
		Priority:   "medium",
		Insight:    "Current tariff volatility: China 30%, India 50%, Vietnam 25%",
		Confidence: 75,
		Sources:    []string{intelligence.SourceFallback},
	})

	ship := intelligence.FallbackShipping()
	return intelligence.Activation{
		Status: intelligence.StatusFallback,
		Beasts: intelligence.Beasts{
			Similarity: intelligence.FallbackSimilarity(),
			Seasonal:   intelligence.FallbackSeasonal(),
			Market:     intelligence.FallbackMarket(),
			Patterns:   intelligence.FallbackPatterns(),
			Shipping:   &ship,
			Alerts:     intelligence.Alerts{Priority: []intelligence.Alert{}, Standard: []intelligence.Alert{}},
		},
		Unified: intelligence.Unified{
			Summary: intelligence.Summary{
				BusinessType:   bt,
				CurrentPage:    page,
				TotalInsights:  len(top),
				Confidence:     65,
				DataQuality:    55,
				FallbackReason: fallbackReason,
			},
			Insights: intelligence.InsightGroups{
				Top:      top,
				Compound: []intelligence.Insight{},
				Market:   []intelligence.Trend{},
				Patterns: []intelligence.Pattern{},
			},
			Recommendations: []intelligence.Recommendation{rec},
			Alerts: []intelligence.Alert{{
				Type:       "system",
				Priority:   "low",
				Message:    "Using cached intelligence - live data temporarily unavailable",
				Confidence: 100,
			}},
			GeneratedAt: at,
		},
		Performance: intelligence.Performance{TotalBeasts: 0, IntelligenceQuality: 60},
		ActivatedAt: at,
	}
}
