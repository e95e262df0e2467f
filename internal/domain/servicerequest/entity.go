package servicerequest

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

type Status string

const (
	StatusConsultationScheduled Status = "consultation_scheduled"
	StatusResearchInProgress    Status = "research_in_progress"
	StatusProposalSent          Status = "proposal_sent"
	StatusCompleted             Status = "completed"
	StatusCancelled             Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusConsultationScheduled, StatusResearchInProgress, StatusProposalSent, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

const (
	ConsultationPending   = "pending_schedule"
	ConsultationScheduled = "scheduled"

	DefaultAssignee      = "Jorge"
	DefaultEmail         = "triangleintel@gmail.com"
	ConsultationLength   = "15 minutes"
	InitialNextStep      = "Schedule 15-minute consultation call"
	DefaultPolicyVersion = "1.0"
)

type Consent struct {
	DataStorage          bool   `json:"data_storage_consent"`
	Timestamp            string `json:"consent_timestamp,omitempty"`
	PrivacyPolicyVersion string `json:"privacy_policy_version,omitempty"`
	IPAddress            string `json:"ip_address,omitempty"`
	UserAgent            string `json:"user_agent,omitempty"`
}

type Request struct {
	ID                    string                 `json:"id"`
	ServiceType           string                 `json:"service_type"`
	CompanyName           string                 `json:"company_name"`
	ContactName           string                 `json:"contact_name"`
	Email                 string                 `json:"email"`
	Phone                 string                 `json:"phone,omitempty"`
	Industry              string                 `json:"industry,omitempty"`
	TradeVolume           float64                `json:"trade_volume"`
	AssignedTo            string                 `json:"assigned_to"`
	Status                Status                 `json:"status"`
	Priority              Priority               `json:"priority"`
	Timeline              string                 `json:"timeline,omitempty"`
	BudgetRange           string                 `json:"budget_range,omitempty"`
	Consent               Consent                `json:"consent"`
	ServiceDetails        json.RawMessage        `json:"service_details,omitempty"`
	WorkflowData          json.RawMessage        `json:"workflow_data,omitempty"`
	ConsultationStatus    string                 `json:"consultation_status"`
	ConsultationDuration  string                 `json:"consultation_duration"`
	NextSteps             string                 `json:"next_steps"`
	CreatedAt             time.Time              `json:"created_at"`
	UpdatedAt             time.Time              `json:"updated_at"`
	VulnerabilityAnalysis *VulnerabilityAnalysis `json:"vulnerability_analysis,omitempty"`
	TotalAnalyses         int                    `json:"total_analyses"`
}

type ComponentOrigin struct {
	Description     string   `json:"description,omitempty"`
	OriginCountry   string   `json:"origin_country,omitempty"`
	HSCode          string   `json:"hs_code,omitempty"`
	Confidence      *float64 `json:"confidence,omitempty"`
	MFNRate         float64  `json:"mfn_rate"`
	USMCARate       float64  `json:"usmca_rate"`
	IsUSMCAMember   bool     `json:"is_usmca_member"`
	ValuePercentage float64  `json:"value_percentage"`
}

// ConfidenceOrDefault: komponen tanpa confidence dianggap 100
func (c ComponentOrigin) ConfidenceOrDefault() float64 {
	if c.Confidence == nil {
		return 100
	}
	return *c.Confidence
}

type VulnerabilityAnalysis struct {
	ID                        string            `json:"id"`
	Email                     string            `json:"email"`
	ComponentOrigins          []ComponentOrigin `json:"component_origins"`
	AnnualTradeVolume         float64           `json:"annual_trade_volume"`
	QualificationStatus       string            `json:"qualification_status"`
	RegionalContentPercentage float64           `json:"regional_content_percentage"`
	RequiredThreshold         float64           `json:"required_threshold"`
	CreatedAt                 time.Time         `json:"created_at"`
}

// Update is a PATCH body: id, optional status, and extra column values.
type Update struct {
	ID     string
	Status Status
	Fields map[string]any
}

// UpdatableFields are the columns a PATCH may set besides status.
var UpdatableFields = map[string]bool{
	"assigned_to":         true,
	"priority":            true,
	"consultation_status": true,
	"next_steps":          true,
	"timeline":            true,
	"budget_range":        true,
	"phone":               true,
	"contact_name":        true,
}

// ParseTradeVolume strips "$" and "," before parsing; invalid input is 0.
func ParseTradeVolume(s string) float64 {
	clean := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0
	}
	return v
}

// DerivePriority is a fixed rule table over timeline, volume and budget.
func DerivePriority(tradeVolume float64, timeline, budget string) Priority {
	switch {
	case timeline == "immediate" || tradeVolume > 1_000_000 || budget == "500k-plus":
		return PriorityUrgent
	case timeline == "short" || tradeVolume > 500_000 || budget == "100k-500k":
		return PriorityHigh
	case tradeVolume > 100_000 || budget == "25k-100k":
		return PriorityMedium
	}
	return PriorityLow
}
