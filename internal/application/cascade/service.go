package cascade

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/bryanwahyu/triangle-intel/internal/application"
	domain "github.com/bryanwahyu/triangle-intel/internal/domain/cascade"
	"github.com/bryanwahyu/triangle-intel/internal/domain/goldmine"
	"github.com/bryanwahyu/triangle-intel/internal/domain/profile"
	"github.com/bryanwahyu/triangle-intel/internal/domain/session"
)

// ProfileSource reads the profile recorded by earlier stages.
type ProfileSource interface {
	Get(ctx context.Context, id string) (*session.Record, error)
}

// WorkflowReader supplies the similar-company count for the foundation stage.
type WorkflowReader interface {
	Workflow(ctx context.Context, businessType string) goldmine.WorkflowIntel
}

type Service struct {
	States   domain.Repository
	Profiles ProfileSource
	Workflow WorkflowReader
	Clock    application.Clock
	Logger   *zap.Logger
}

// Result of one Enhance call.
type Result struct {
	Stage            domain.Stage         `json:"stage"`
	Quality          float64              `json:"qualityScore"`
	ContextDepth     int                  `json:"contextDepth"`
	Confidence       int                  `json:"confidenceLevel"`
	Insights         []string             `json:"progressiveInsights"`
	Recommendations  []string             `json:"recommendations"`
	ProgressiveValue string               `json:"progressiveValue,omitempty"`
	Analysis         domain.StageAnalysis `json:"analysis"`
	Error            string               `json:"error,omitempty"`
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

// Enhance analyzes stage with everything accumulated so far and persists the
// merged state. Store failures degrade to base quality, never to an error.
func (s *Service) Enhance(ctx context.Context, sessionID string, stage domain.Stage, p profile.UserProfile) Result {
	prev := s.load(ctx, sessionID)
	recorded := s.recordedProfile(ctx, sessionID).Merge(p)
	depth := contextDepth(prev, stage)

	analysis, progressive := s.analyze(ctx, stage, p, recorded, prev, depth)

	next := prev
	next.SessionID = sessionID
	next.CurrentStage = stage
	next.CompletedStages = domain.CompletedThrough(stage)
	next.LastActivity = s.clock().Now()
	next.Accumulated = merge(prev.Accumulated, analysis, len(next.CompletedStages))

	res := Result{
		Stage:            stage,
		Quality:          next.Accumulated.Quality,
		ContextDepth:     depth,
		Confidence:       analysis.Confidence,
		Insights:         next.Accumulated.Insights,
		Recommendations:  next.Accumulated.Recommendations,
		ProgressiveValue: progressive,
		Analysis:         analysis,
	}
	if s.States == nil {
		return res
	}
	if err := s.States.Save(ctx, next); err != nil {
		s.log().Warn("cascade: save journey state failed", zap.String("session_id", sessionID), zap.String("stage", string(stage)), zap.Error(err))
		res.Error = err.Error()
	}
	return res
}

func (s *Service) load(ctx context.Context, sessionID string) domain.State {
	if s.States == nil {
		return domain.NewState(sessionID)
	}
	st, err := s.States.Get(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrStateNotFound):
		return domain.NewState(sessionID)
	case err != nil:
		s.log().Warn("cascade: load journey state failed", zap.String("session_id", sessionID), zap.Error(err))
		return domain.NewState(sessionID)
	}
	if st.Accumulated.Stages == nil {
		st.Accumulated.Stages = map[domain.Stage]domain.StageAnalysis{}
	}
	return *st
}

func (s *Service) recordedProfile(ctx context.Context, sessionID string) profile.UserProfile {
	if s.Profiles == nil || sessionID == "" {
		return profile.UserProfile{}
	}
	rec, err := s.Profiles.Get(ctx, sessionID)
	if err != nil {
		return profile.UserProfile{}
	}
	return rec.Profile
}

// contextDepth: jumlah stage selesai sebelum stage ini
func contextDepth(prev domain.State, stage domain.Stage) int {
	idx := stage.Index()
	n := 0
	for _, st := range prev.CompletedStages {
		if st == stage {
			continue
		}
		if idx < 0 || (st.Index() >= 0 && st.Index() < idx) {
			n++
		}
	}
	return n
}

// merge dibangun ulang dari map stage supaya submit ulang stage yang sama tidak dobel
func merge(prev domain.Accumulated, cur domain.StageAnalysis, stageCount int) domain.Accumulated {
	stages := make(map[domain.Stage]domain.StageAnalysis, len(prev.Stages)+1)
	for k, v := range prev.Stages {
		stages[k] = v
	}
	stages[cur.Stage] = cur

	keys := make([]domain.Stage, 0, len(stages))
	for k := range stages {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool { return stageRank(keys[i], keys[j]) })

	out := domain.Accumulated{
		Quality:         cur.Stage.Quality(),
		StageCount:      stageCount,
		Stages:          stages,
		Insights:        []string{},
		Recommendations: []string{},
	}
	for _, k := range keys {
		out.Insights = append(out.Insights, stages[k].Insights...)
		out.Recommendations = append(out.Recommendations, stages[k].Recommendations...)
	}
	return out
}

// stage dikenal dulu sesuai Order, stage asing di belakang urut nama
func stageRank(a, b domain.Stage) bool {
	ia, ib := a.Index(), b.Index()
	switch {
	case ia >= 0 && ib >= 0:
		return ia < ib
	case ia >= 0:
		return true
	case ib >= 0:
		return false
	default:
		return a < b
	}
}

func (s *Service) analyze(ctx context.Context, stage domain.Stage, p, recorded profile.UserProfile, prev domain.State, depth int) (domain.StageAnalysis, string) {
	q := fmt.Sprintf("%.1f", prev.Accumulated.Quality)
	risk := recorded.RiskTolerance()
	bt := recorded.BusinessType
	a := domain.StageAnalysis{Stage: stage, Confidence: stage.Confidence(), Recommendations: []string{}, Context: map[string]any{}}

	switch stage {
	case domain.StageFoundation:
		similar := 0
		if s.Workflow != nil {
			similar = s.Workflow.Workflow(ctx, p.BusinessType).SimilarCompanies
		}
		a.Insights = []string{
			fmt.Sprintf("%s company profile established", p.BusinessType),
			fmt.Sprintf("Risk tolerance: %s priority detected", p.TimelinePriority),
			fmt.Sprintf("Supplier country: %s analyzed", p.PrimarySupplierCountry),
			fmt.Sprintf("%d similar companies found in database", similar),
		}
		a.Context["challenges"] = challenges(p)
		a.Context["opportunities"] = opportunities(p)
		a.Context["nextStageFocus"] = "Product classification and supplier analysis"
		return a, ""

	case domain.StageProduct:
		a.Insights = []string{
			fmt.Sprintf("Building on %s profile from Foundation", bt),
			fmt.Sprintf("Product classification enhanced with risk tolerance: %s", risk),
			"Supplier patterns from Foundation inform HS code selection",
			fmt.Sprintf("%d previous stages provide context", depth),
		}
		a.Recommendations = []string{
			fmt.Sprintf("Focus on HS codes optimized for %s triangle routing", bt),
			fmt.Sprintf("Consider %s risk approach to supplier diversification", risk),
			"Leverage USMCA advantages based on Foundation supplier analysis",
		}
		a.Context["nextStageFocus"] = "Route optimization with complete product + company context"
		return a, fmt.Sprintf("Intelligence quality increased from %s to 3.5/10.0", q)

	case domain.StageRouting:
		a.Insights = []string{
			"Complete company + product profile enables optimal routing analysis",
			"Risk tolerance from Foundation + product data from Product = strategic advantage",
			fmt.Sprintf("%d stages of context enable 6.8/10.0 intelligence quality", depth),
			"Triangle routing viability: " + triangleViability(recorded),
		}
		a.Recommendations = []string{
			"Mexico route recommended based on complete profile analysis",
			"USMCA advantages maximize savings with current supplier mix",
			"Risk mitigation strategy aligned with established tolerance levels",
		}
		a.Context["nextStageFocus"] = "Implementation planning with complete strategic context"
		return a, fmt.Sprintf("Exponential intelligence improvement: %s → 6.8/10.0", q)

	case domain.StagePartnership:
		a.Insights = []string{
			"Complete route optimization enables strategic partnership analysis",
			"Foundation + Product + Routing context = 7.2/10.0 intelligence quality",
			"Partnership ecosystem aligned with established routing strategy",
			"Strategic alliance opportunities identified based on full context",
		}
		a.Recommendations = []string{
			"Strategic partnership ecosystem aligned with validated routing strategy",
			"Partner selection based on Foundation business profile and Product requirements",
			"Contract optimization leveraging complete intelligence context from previous stages",
		}
		a.Context["nextStageFocus"] = "Implementation partnerships with validated routing strategy"
		return a, fmt.Sprintf("Strategic intelligence improvement: %s → 7.2/10.0", q)

	case domain.StageHindsight:
		a.Insights = []string{
			"Complete journey analysis enables 9.2/10.0 intelligence quality",
			"All strategic decisions validated against institutional patterns",
			fmt.Sprintf("%d stages of accumulated wisdom", depth),
			"Pattern extraction ready for institutional memory",
		}
		a.Recommendations = []string{
			"Complete journey analysis validates strategic decisions",
			"Pattern extraction ready for institutional contribution",
			"Accumulated wisdom available for future similar cases",
		}
		a.Context["patternExtraction"] = map[string]any{
			"pattern":         "Progressive intelligence cascade successful",
			"qualityAchieved": prev.Accumulated.Quality,
			"stagesCompleted": depth,
		}
		return a, fmt.Sprintf("Near-institutional quality: %s → 9.2/10.0", q)

	case domain.StageAlerts:
		a.Insights = []string{
			"MAXIMUM INTELLIGENCE ACHIEVED: 10.0/10.0 quality",
			"Complete institutional intelligence with predictive capabilities",
			"Full journey optimization with accumulated wisdom",
			"Ready for institutional pattern contribution",
		}
		a.Recommendations = []string{
			"INSTITUTIONAL QUALITY: Maximum intelligence achieved",
			"Predictive capabilities active for future planning",
			"Complete optimization validated against institutional patterns",
		}
		a.Context["predictiveAlerts"] = []string{
			"Market trends analysis available for long-term planning",
			"Supplier risk predictions active based on complete profile",
			"Cost optimization opportunities identified for next 12 months",
		}
		a.Context["contribution"] = "Journey insights contributed to institutional memory for future users"
		return a, "INSTITUTIONAL QUALITY ACHIEVED: 10.0/10.0"
	}

	a.Insights = []string{"Generic stage analysis with progressive context"}
	return a, ""
}

func challenges(p profile.UserProfile) []string {
	out := []string{}
	if p.CountryCode() == "CN" {
		out = append(out, "High tariff risk from China suppliers")
	}
	if p.TimelinePriority == profile.PriorityCost {
		out = append(out, "Cost optimization priority may extend timelines")
	}
	if strings.Contains(p.ImportVolume, "Over $25M") {
		out = append(out, "Large volume requires comprehensive compliance strategy")
	}
	return out
}

func opportunities(p profile.UserProfile) []string {
	out := []string{}
	if p.CountryCode() == "CN" {
		out = append(out, "Triangle routing via Mexico/Canada for tariff savings")
	}
	if strings.EqualFold(p.BusinessType, "Electronics") {
		out = append(out, "High success rate industry with proven patterns")
	}
	if p.TimelinePriority == profile.PriorityCost {
		out = append(out, "Aggressive cost optimization strategies available")
	}
	return out
}

func triangleViability(p profile.UserProfile) string {
	cn := p.CountryCode() == "CN"
	for _, c := range p.SecondarySuppliers {
		if profile.NormalizeCountry(c) == "CN" {
			cn = true
		}
	}
	if cn && p.RiskTolerance() == "high" {
		return "Highly viable - China suppliers + high risk tolerance"
	}
	return "Viable with standard approach"
}
