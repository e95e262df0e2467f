package report

import (
	"strings"
	"time"
)

type Kind string

const (
	KindCrisisResponse           Kind = "crisis-response"
	KindUSMCACertificate         Kind = "usmca-certificate"
	KindManufacturingFeasibility Kind = "manufacturing-feasibility"
	KindMarketEntry              Kind = "market-entry"
	KindSupplierSourcing         Kind = "supplier-sourcing"
	KindHSClassification         Kind = "hs-classification"
)

var Kinds = []Kind{
	KindCrisisResponse,
	KindUSMCACertificate,
	KindManufacturingFeasibility,
	KindMarketEntry,
	KindSupplierSourcing,
	KindHSClassification,
}

func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Title is the human heading used by both generators.
func (k Kind) Title() string {
	switch k {
	case KindCrisisResponse:
		return "Crisis Response Action Plan"
	case KindUSMCACertificate:
		return "USMCA Certificate Report"
	case KindManufacturingFeasibility:
		return "Mexico Manufacturing Feasibility Report"
	case KindMarketEntry:
		return "Market Entry Strategy Report"
	case KindSupplierSourcing:
		return "Supplier Sourcing Report"
	case KindHSClassification:
		return "HS Code Classification Report"
	}
	return strings.ToUpper(string(k))
}

type Generator string

const (
	GeneratorAI       Generator = "ai"
	GeneratorTemplate Generator = "template"
)

type Component struct {
	Country     string  `json:"country"`
	Percentage  float64 `json:"percentage"`
	Description string  `json:"description,omitempty"`
}

// Request carries the intake answers for one report.
type Request struct {
	Kind             Kind              `json:"kind"`
	ServiceRequestID string            `json:"service_request_id,omitempty"`
	CompanyName      string            `json:"company_name"`
	TradeVolume      float64           `json:"trade_volume,omitempty"`
	Components       []Component       `json:"components,omitempty"`
	Fields           map[string]string `json:"fields,omitempty"`
}

// Field returns Fields[key] or def when empty.
func (r Request) Field(key, def string) string {
	if v := strings.TrimSpace(r.Fields[key]); v != "" {
		return v
	}
	return def
}

type Report struct {
	ID               string    `json:"id"`
	Kind             Kind      `json:"kind"`
	ServiceRequestID string    `json:"service_request_id,omitempty"`
	CompanyName      string    `json:"company_name"`
	Markdown         string    `json:"markdown"`
	ObjectKey        string    `json:"object_key,omitempty"`
	URL              string    `json:"url,omitempty"`
	Generator        Generator `json:"generator"`
	AIError          string    `json:"ai_error,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
