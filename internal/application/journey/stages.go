package journey

import (
	"fmt"
	"strings"

	progressive "github.com/bryanwahyu/triangle-intel/internal/application/cascade"
	"github.com/bryanwahyu/triangle-intel/internal/domain/cascade"
)

var predictiveAlerts = []string{"Long-term market trends available", "Supplier risk predictions active"}

// stageResponse builds the response for every page after foundation.
func stageResponse(page, sessionID string, res progressive.Result) Response {
	stage := cascade.Stage(page)
	quality := orFloat(res.Quality, stage.Quality())
	recs := nonNil(res.Analysis.Recommendations)
	pi := &Progressive{
		QualityLevel:        quality,
		ContextDepth:        res.ContextDepth,
		ProgressiveInsights: nonNil(res.Insights),
	}
	out := Response{Success: true, Page: page, SessionID: sessionID, ProgressiveIntelligence: pi}

	switch stage {
	case cascade.StageProduct:
		out.Message = "Product enhanced with Foundation goldmine intelligence"
		pi.IntelligenceType = "enhanced_product_analysis"
		pi.EnhancedRecommendations = nonNil(res.Recommendations)
		pi.ProgressiveValue = fmt.Sprintf("Intelligence quality increased from foundation 1.0 to product %.1f/10.0", quality)
		out.GoldmineIntelligence = StageGoldmine{
			Source:          "PROGRESSIVE_GOLDMINE_PRODUCT",
			BuildingOn:      "Foundation company + supplier analysis",
			EnhancedWith:    "Product classification context",
			ConfidenceScore: 78,
		}
	case cascade.StageRouting:
		out.Message = "Routing strategic routing with exponential intelligence"
		pi.IntelligenceType = "strategic_route_optimization"
		pi.StrategicRecommendations = nonNil(res.Recommendations)
		pi.ProgressiveValue = fmt.Sprintf("Exponential intelligence: Foundation+Product context enables routing %.1f/10.0 quality", quality)
		pi.TriangleViability = "High confidence with complete company + product context"
		out.GoldmineIntelligence = StageGoldmine{
			Source:             "PROGRESSIVE_GOLDMINE_ROUTING",
			BuildingOn:         "Complete company profile + product analysis",
			EnhancedWith:       "Strategic routing optimization",
			ConfidenceScore:    89,
			StrategicAdvantage: "Full context enables optimal route selection",
		}
	case cascade.StagePartnership:
		out.Message = "Partnership strategic intelligence with accumulated context"
		pi.IntelligenceType = "partnership_strategic_intelligence"
		pi.PartnershipRecommendations = nonNil(res.Recommendations)
		pi.ProgressiveValue = "Strategic intelligence: Foundation+Product+Routing context enables 7.2/10.0 quality"
		pi.PartnershipViability = "High confidence with complete route + product context"
		out.GoldmineIntelligence = StageGoldmine{
			Source:             "PROGRESSIVE_GOLDMINE_PARTNERSHIP",
			BuildingOn:         "Complete routing optimization + product analysis",
			EnhancedWith:       "Strategic partnership optimization",
			ConfidenceScore:    85,
			StrategicAdvantage: "Full context enables optimal partnership selection",
		}
	case cascade.StageHindsight:
		out.Message = "Hindsight intelligence with institutional quality"
		pi.IntelligenceType = "hindsight_pattern_intelligence"
		pi.HindsightWisdom = recs
		pi.ProgressiveValue = "Near-institutional quality: 9.2/10.0 with complete journey context"
		pi.PatternExtraction = "Ready for contribution to hindsight library"
		out.GoldmineIntelligence = StageGoldmine{
			Source:             "PROGRESSIVE_GOLDMINE_HINDSIGHT",
			BuildingOn:         "Complete 4-page journey analysis",
			EnhancedWith:       "Hindsight pattern validation",
			ConfidenceScore:    96,
			InstitutionalValue: "Pattern extraction ready for future users",
		}
	case cascade.StageAlerts:
		out.Message = "INSTITUTIONAL INTELLIGENCE ACHIEVED - Maximum Quality"
		pi.QualityLevel = cascade.StageAlerts.Quality()
		pi.IntelligenceType = "institutional_maximum_intelligence"
		pi.InstitutionalRecommendations = recs
		pi.PredictiveAlerts = predictiveAlerts
		pi.ProgressiveValue = "INSTITUTIONAL QUALITY ACHIEVED: 10.0/10.0"
		pi.Contribution = "Journey insights contributed to institutional memory"
		out.GoldmineIntelligence = StageGoldmine{
			Source:             "INSTITUTIONAL_GOLDMINE_MAXIMUM",
			BuildingOn:         "Complete 5-page institutional journey",
			EnhancedWith:       "Maximum intelligence synthesis",
			ConfidenceScore:    99,
			InstitutionalValue: "Complete optimization with predictive capabilities",
			Status:             "MAXIMUM_INTELLIGENCE_ACHIEVED",
		}
	default:
		out.Message = fmt.Sprintf("%s page enhanced with progressive intelligence", page)
		pi.IntelligenceType = "progressive_enhanced"
		if len(pi.ProgressiveInsights) == 0 {
			pi.ProgressiveInsights = []string{fmt.Sprintf("%s page enhanced with accumulated context", page)}
		}
		pi.ProgressiveValue = fmt.Sprintf("Intelligence quality: %.1f/10.0 with accumulated context", quality)
		out.GoldmineIntelligence = StageGoldmine{
			Source:          "PROGRESSIVE_GOLDMINE_" + strings.ToUpper(page),
			BuildingOn:      "Previous pages of intelligence",
			ConfidenceScore: 75,
		}
	}
	return out
}
