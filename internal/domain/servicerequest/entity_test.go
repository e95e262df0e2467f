package servicerequest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDerivePriority(t *testing.T) {
	cases := []struct {
		name     string
		volume   float64
		timeline string
		budget   string
		want     Priority
	}{
		{"immediate timeline", 0, "immediate", "", PriorityUrgent},
		{"volume over 1M", 1_500_000, "", "", PriorityUrgent},
		{"big budget", 0, "", "500k-plus", PriorityUrgent},
		{"short timeline", 0, "short", "", PriorityHigh},
		{"volume over 500K", 600_000, "", "", PriorityHigh},
		{"mid budget", 0, "", "100k-500k", PriorityHigh},
		{"volume over 100K", 150_000, "", "", PriorityMedium},
		{"small budget", 0, "", "25k-100k", PriorityMedium},
		{"nothing", 50_000, "flexible", "under-25k", PriorityLow},
		{"exactly 1M is high", 1_000_000, "", "", PriorityHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DerivePriority(tc.volume, tc.timeline, tc.budget))
		})
	}
}

func TestParseTradeVolume(t *testing.T) {
	assert.Equal(t, 2500000.0, ParseTradeVolume("$2,500,000"))
	assert.Equal(t, 0.0, ParseTradeVolume("lots"))
	assert.Equal(t, 0.0, ParseTradeVolume(""))
}

func f(v float64) *float64 { return &v }

func TestSummarize(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	reqs := []Request{
		{
			ID: "SR000001", CompanyName: "Acme", Email: "a@acme.test",
			Status: StatusConsultationScheduled, ConsultationStatus: ConsultationPending,
			VulnerabilityAnalysis: &VulnerabilityAnalysis{
				AnnualTradeVolume:         1_000_000,
				QualificationStatus:       "QUALIFIED",
				RegionalContentPercentage: 70,
				RequiredThreshold:         60,
				ComponentOrigins: []ComponentOrigin{
					{Confidence: f(70), MFNRate: 25, USMCARate: 0, ValuePercentage: 40},
					{MFNRate: 8, USMCARate: 0, IsUSMCAMember: true, ValuePercentage: 30},
					{Confidence: f(95), MFNRate: 4, USMCARate: 0, ValuePercentage: 30},
				},
			},
		},
		{
			ID: "SR000002", CompanyName: "Beta", Email: "b@beta.test",
			Status: StatusResearchInProgress, ConsultationStatus: ConsultationScheduled,
			VulnerabilityAnalysis: &VulnerabilityAnalysis{
				AnnualTradeVolume:   2_000_000,
				QualificationStatus: "NOT_QUALIFIED",
				ComponentOrigins: []ComponentOrigin{
					{MFNRate: 10, USMCARate: 2, ValuePercentage: 50},
				},
			},
		},
		{ID: "SR000003", Status: StatusCompleted, UpdatedAt: now.Add(-48 * time.Hour)},
		{ID: "SR000004", Status: StatusCompleted, UpdatedAt: now.Add(-10 * 24 * time.Hour)},
		{ID: "SR000005", Status: StatusProposalSent},
	}

	s := Summarize(reqs, now)
	assert.Equal(t, 5, s.TotalRequests)
	assert.Equal(t, 1, s.ConsultationPending)
	assert.Equal(t, 1, s.ConsultationScheduled)
	assert.Equal(t, 2, s.InProgress)
	assert.Equal(t, 1, s.CompletedThisWeek)

	ai := s.AdminIntelligence
	assert.Equal(t, 1, ai.LowConfidenceHSCodes)
	assert.Equal(t, 2, ai.HighTariffExposure)
	assert.Equal(t, 1, ai.RVCOptimization)
	assert.Equal(t, 2, ai.AnalyzedRequests)
	// Acme: 1M * 0.40 * 0.25 = 100000, Beta: 2M * 0.50 * 0.08 = 80000
	assert.Equal(t, 180000.0, ai.TotalTariffOpportunity)
	if assert.Len(t, ai.TopOpportunities, 2) {
		assert.Equal(t, "SR000001", ai.TopOpportunities[0].RequestID)
		assert.Equal(t, 100000.0, ai.TopOpportunities[0].TariffOpportunity)
		assert.Equal(t, "SR000002", ai.TopOpportunities[1].RequestID)
	}
}

func TestIntelligenceTopTen(t *testing.T) {
	var reqs []Request
	for i := 0; i < 15; i++ {
		reqs = append(reqs, Request{
			ID: string(rune('a' + i)),
			VulnerabilityAnalysis: &VulnerabilityAnalysis{
				AnnualTradeVolume: float64(100_000 * (i + 1)),
				ComponentOrigins:  []ComponentOrigin{{MFNRate: 20, ValuePercentage: 100}},
			},
		})
	}
	ai := Intelligence(reqs)
	assert.Len(t, ai.TopOpportunities, 10)
	assert.Equal(t, "o", ai.TopOpportunities[0].RequestID)
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusProposalSent.Valid())
	assert.False(t, Status("archived").Valid())
}
