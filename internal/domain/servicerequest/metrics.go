package servicerequest

import (
	"math"
	"sort"
	"time"
)

// Fixed thresholds for the admin intelligence metrics.
const (
	lowConfidenceThreshold = 80
	highTariffGap          = 5
	rvcOptimizationMargin  = 15
	topOpportunityLimit    = 10
)

type Opportunity struct {
	RequestID            string  `json:"request_id"`
	CompanyName          string  `json:"company_name"`
	Email                string  `json:"email"`
	TariffOpportunity    float64 `json:"tariff_opportunity"`
	HighTariffComponents int     `json:"high_tariff_components"`
	LowConfidenceCodes   int     `json:"low_confidence_codes"`
}

type AdminIntelligence struct {
	LowConfidenceHSCodes   int           `json:"low_confidence_hs_codes"`
	HighTariffExposure     int           `json:"high_tariff_exposure"`
	TotalTariffOpportunity float64       `json:"total_tariff_opportunity"`
	RVCOptimization        int           `json:"rvc_optimization_opportunities"`
	AnalyzedRequests       int           `json:"analyzed_requests"`
	TopOpportunities       []Opportunity `json:"top_opportunities"`
}

type Summary struct {
	TotalRequests         int               `json:"total_requests"`
	ConsultationPending   int               `json:"consultation_pending"`
	ConsultationScheduled int               `json:"consultation_scheduled"`
	InProgress            int               `json:"in_progress"`
	CompletedThisWeek     int               `json:"completed_this_week"`
	AdminIntelligence     AdminIntelligence `json:"admin_intelligence"`
}

// Summarize counts request states and derives the admin metrics from the
// attached vulnerability analyses.
func Summarize(reqs []Request, now time.Time) Summary {
	s := Summary{TotalRequests: len(reqs)}
	weekAgo := now.Add(-7 * 24 * time.Hour)
	for _, r := range reqs {
		switch r.ConsultationStatus {
		case ConsultationPending:
			s.ConsultationPending++
		case ConsultationScheduled:
			s.ConsultationScheduled++
		}
		switch r.Status {
		case StatusResearchInProgress, StatusProposalSent:
			s.InProgress++
		case StatusCompleted:
			if r.UpdatedAt.After(weekAgo) {
				s.CompletedThisWeek++
			}
		}
	}
	s.AdminIntelligence = Intelligence(reqs)
	return s
}

func Intelligence(reqs []Request) AdminIntelligence {
	ai := AdminIntelligence{TopOpportunities: []Opportunity{}}
	var total float64
	for _, r := range reqs {
		va := r.VulnerabilityAnalysis
		if va == nil {
			continue
		}
		ai.AnalyzedRequests++

		opp := Opportunity{RequestID: r.ID, CompanyName: r.CompanyName, Email: r.Email}
		for _, c := range va.ComponentOrigins {
			if c.ConfidenceOrDefault() < lowConfidenceThreshold {
				opp.LowConfidenceCodes++
			}
			gap := c.MFNRate - c.USMCARate
			if gap > highTariffGap && !c.IsUSMCAMember {
				opp.HighTariffComponents++
				opp.TariffOpportunity += va.AnnualTradeVolume * (c.ValuePercentage / 100) * (gap / 100)
			}
		}
		ai.LowConfidenceHSCodes += opp.LowConfidenceCodes
		ai.HighTariffExposure += opp.HighTariffComponents

		if va.QualificationStatus == "QUALIFIED" && va.RequiredThreshold > 0 &&
			va.RegionalContentPercentage < va.RequiredThreshold+rvcOptimizationMargin {
			ai.RVCOptimization++
		}
		if opp.TariffOpportunity > 0 {
			opp.TariffOpportunity = math.Round(opp.TariffOpportunity)
			total += opp.TariffOpportunity
			ai.TopOpportunities = append(ai.TopOpportunities, opp)
		}
	}
	sort.SliceStable(ai.TopOpportunities, func(i, j int) bool {
		return ai.TopOpportunities[i].TariffOpportunity > ai.TopOpportunities[j].TariffOpportunity
	})
	if len(ai.TopOpportunities) > topOpportunityLimit {
		ai.TopOpportunities = ai.TopOpportunities[:topOpportunityLimit]
	}
	ai.TotalTariffOpportunity = math.Round(total)
	return ai
}
