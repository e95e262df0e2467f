package goldmine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/bryanwahyu/triangle-intel/internal/domain/cascade"
	domain "github.com/bryanwahyu/triangle-intel/internal/domain/goldmine"
	"github.com/bryanwahyu/triangle-intel/internal/domain/session"
)

var (
	defaultSuppliers  = []string{"China", "Vietnam", "Thailand"}
	defaultWisdom     = []string{"Focus on USMCA advantages", "Consider triangle routing", "Analyze supplier risk"}
	defaultCompletion = map[string]int{"foundation": 95, "product": 87, "routing": 78, "partnership": 72, "hindsight": 65, "alerts": 58}
)

var errStoreUnavailable = errors.New("goldmine store not configured")

// Comtrade reads comtrade_reference matches for the business type or HS prefix.
func (s *Service) Comtrade(ctx context.Context, hsCode, businessType string) domain.ComtradeIntel {
	if hsCode == "" {
		hsCode = defaultHSCode
	}
	key := fmt.Sprintf("goldmine:comtrade:%s:%s", slug(hsCode), slug(businessType))
	var out domain.ComtradeIntel
	err := s.cache().GetOrLoad(ctx, key, &out, s.referenceTTL(), func(ctx context.Context) (any, error) {
		return s.loadComtrade(ctx, hsCode, businessType)
	})
	if err != nil {
		s.log().Warn("comtrade query failed, using fallback", zap.String("hs_code", hsCode), zap.Error(err))
		return domain.ComtradeIntel{
			Source:        "GOLDMINE_FALLBACK_COMTRADE",
			TotalRecords:  17500,
			HighestTariff: 25,
			AverageTariff: 15,
			DataQuality:   30,
			Fallback:      true,
		}
	}
	return out
}

func (s *Service) loadComtrade(ctx context.Context, hsCode, businessType string) (domain.ComtradeIntel, error) {
	if s.Reference == nil {
		return domain.ComtradeIntel{}, errStoreUnavailable
	}
	records, total, err := s.Reference.SearchComtrade(ctx, hsCode, businessType, comtradeLimit)
	if err != nil {
		return domain.ComtradeIntel{}, err
	}
	out := domain.ComtradeIntel{
		Source:          "GOLDMINE_STABLE_COMTRADE",
		TotalRecords:    orDefault(total, 17500),
		RelevantRecords: len(records),
		TopRecords:      records,
		AverageTariff:   15.0,
		DataQuality:     50,
	}
	if len(records) > 0 {
		// records are ordered by base_tariff_rate desc
		out.HighestTariff = records[0].BaseTariffRate
		var sum float64
		for _, r := range records {
			sum += r.BaseTariffRate
		}
		out.AverageTariff = math.Round(sum / float64(len(records)))
		out.DataQuality = 90
	}
	return out, nil
}

// Workflow derives network effects from the most recent sessions.
func (s *Service) Workflow(ctx context.Context, businessType string) domain.WorkflowIntel {
	key := "goldmine:workflow:" + slug(businessType)
	var out domain.WorkflowIntel
	err := s.cache().GetOrLoad(ctx, key, &out, s.workflowTTL(), func(ctx context.Context) (any, error) {
		return s.loadWorkflow(ctx, businessType)
	})
	if err != nil {
		s.log().Warn("workflow query failed, using fallback", zap.String("business_type", businessType), zap.Error(err))
		completion := make(map[string]int, 5)
		for _, st := range cascade.Order[:5] {
			completion[string(st)] = defaultCompletion[string(st)]
		}
		return domain.WorkflowIntel{
			Source:             "GOLDMINE_FALLBACK_WORKFLOW",
			TotalSessions:      205,
			AverageSavings:     245000,
			CommonSuppliers:    append([]string(nil), defaultSuppliers...),
			CompletionPatterns: completion,
			DataQuality:        40,
			Fallback:           true,
		}
	}
	return out
}

func (s *Service) loadWorkflow(ctx context.Context, businessType string) (domain.WorkflowIntel, error) {
	if s.Sessions == nil {
		return domain.WorkflowIntel{}, errStoreUnavailable
	}
	recent, err := s.Sessions.Recent(ctx, workflowWindow)
	if err != nil {
		return domain.WorkflowIntel{}, err
	}
	count, err := s.Sessions.Count(ctx)
	if err != nil {
		return domain.WorkflowIntel{}, err
	}

	needle := strings.ToLower(businessType)
	var similar []session.Record
	for _, r := range recent {
		bt := r.Profile.BusinessType
		if bt != "" && strings.Contains(strings.ToLower(bt), needle) {
			similar = append(similar, r)
		}
	}

	total := orDefault(count, 205)
	out := domain.WorkflowIntel{
		Source:             "GOLDMINE_STABLE_WORKFLOW_SESSIONS",
		TotalSessions:      total,
		SimilarCompanies:   len(similar),
		AverageSavings:     averageSavings(similar),
		CommonSuppliers:    commonSuppliers(similar),
		CompletionPatterns: completionPatterns(similar),
		NetworkEffect:      fmt.Sprintf("%d real user sessions analyzed", total),
		DataQuality:        60,
	}
	if len(similar) > 0 {
		out.DataQuality = 85
	}
	return out, nil
}

// Consultations reads the latest marcus_consultations rows.
func (s *Service) Consultations(ctx context.Context) domain.ConsultationIntel {
	var out domain.ConsultationIntel
	err := s.cache().GetOrLoad(ctx, "goldmine:marcus", &out, s.referenceTTL(), func(ctx context.Context) (any, error) {
		return s.loadConsultations(ctx)
	})
	if err != nil {
		s.log().Warn("consultation query failed, using fallback", zap.Error(err))
		return domain.ConsultationIntel{
			Source:             "GOLDMINE_FALLBACK_MARCUS",
			TotalConsultations: 70,
			Wisdom:             []string{},
			DataQuality:        30,
			Fallback:           true,
		}
	}
	return out
}

func (s *Service) loadConsultations(ctx context.Context) (domain.ConsultationIntel, error) {
	if s.Reference == nil {
		return domain.ConsultationIntel{}, errStoreUnavailable
	}
	rows, total, err := s.Reference.RecentConsultations(ctx, consultationLimit)
	if err != nil {
		return domain.ConsultationIntel{}, err
	}
	out := domain.ConsultationIntel{
		Source:             "GOLDMINE_STABLE_CONSULTATIONS",
		TotalConsultations: orDefault(total, 70),
		RelevantInsights:   len(rows),
		DataQuality:        50,
	}
	if len(rows) == 0 {
		out.Wisdom = append([]string(nil), defaultWisdom...)
		return out, nil
	}
	out.DataQuality = 80
	out.Wisdom = []string{}
	for _, c := range rows {
		if len(c.MarcusResponse) > 20 {
			out.Wisdom = append(out.Wisdom, c.MarcusResponse)
		}
		if len(out.Wisdom) == 3 {
			break
		}
	}
	return out, nil
}

// Patterns reads the latest hindsight_pattern_library rows.
func (s *Service) Patterns(ctx context.Context) domain.PatternIntel {
	var out domain.PatternIntel
	err := s.cache().GetOrLoad(ctx, "goldmine:hindsight", &out, s.referenceTTL(), func(ctx context.Context) (any, error) {
		return s.loadPatterns(ctx)
	})
	if err != nil {
		s.log().Warn("hindsight query failed, using fallback", zap.Error(err))
		return domain.PatternIntel{
			Source:             "GOLDMINE_FALLBACK_HINDSIGHT",
			TotalPatterns:      33,
			AverageSuccessRate: 85,
			DataQuality:        30,
			Fallback:           true,
		}
	}
	return out
}

func (s *Service) loadPatterns(ctx context.Context) (domain.PatternIntel, error) {
	if s.Reference == nil {
		return domain.PatternIntel{}, errStoreUnavailable
	}
	rows, total, err := s.Reference.RecentPatterns(ctx, patternLimit)
	if err != nil {
		return domain.PatternIntel{}, err
	}
	out := domain.PatternIntel{
		Source:             "GOLDMINE_STABLE_PATTERNS",
		TotalPatterns:      orDefault(total, 33),
		RelevantPatterns:   len(rows),
		AverageSuccessRate: 85,
		DataQuality:        50,
	}
	var sum float64
	var n int
	for _, p := range rows {
		if p.SuccessRate > 0 {
			sum += p.SuccessRate
			n++
		}
		if p.Description != "" && len(out.Lessons) < 3 {
			out.Lessons = append(out.Lessons, p.Description)
		}
	}
	if n > 0 {
		out.AverageSuccessRate = math.Round(sum / float64(n))
	}
	if len(rows) > 0 {
		out.DataQuality = 85
	}
	return out, nil
}

func averageSavings(similar []session.Record) float64 {
	var sum float64
	var n int
	for _, r := range similar {
		if r.Profile.ProjectedSavings > 0 {
			sum += r.Profile.ProjectedSavings
			n++
		}
	}
	if n == 0 {
		return 245000
	}
	return math.Round(sum / float64(n))
}

// commonSuppliers returns the three most frequent supplier countries.
// Ties keep first-seen order.
func commonSuppliers(similar []session.Record) []string {
	if len(similar) == 0 {
		return append([]string(nil), defaultSuppliers...)
	}
	counts := map[string]int{}
	var order []string
	for _, r := range similar {
		c := r.Profile.PrimarySupplierCountry
		if c == "" {
			continue
		}
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > 3 {
		order = order[:3]
	}
	if order == nil {
		order = []string{}
	}
	return order
}

func completionPatterns(similar []session.Record) map[string]int {
	out := make(map[string]int, len(cascade.Order))
	if len(similar) == 0 {
		for k, v := range defaultCompletion {
			out[k] = v
		}
		return out
	}
	for _, st := range cascade.Order {
		var done int
		for _, r := range similar {
			if r.Completed[st] || r.CurrentPage == string(st) {
				done++
			}
		}
		out[string(st)] = int(math.Round(float64(done) / float64(len(similar)) * 100))
	}
	return out
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "all"
	}
	return b.String()
}
