package profile

import "strings"

type Priority string

const (
	PriorityCost        Priority = "COST"
	PrioritySpeed       Priority = "SPEED"
	PriorityBalanced    Priority = "BALANCED"
	PriorityReliability Priority = "RELIABILITY"
)

// UserProfile adalah data perusahaan yang dikumpulkan sepanjang journey.
// PrimarySupplierCountry disimpan apa adanya; pakai CountryCode untuk lookup.
type UserProfile struct {
	CompanyName            string   `json:"companyName,omitempty"`
	BusinessType           string   `json:"businessType,omitempty"`
	PrimarySupplierCountry string   `json:"primarySupplierCountry,omitempty"`
	ImportVolume           string   `json:"importVolume,omitempty"`
	TimelinePriority       Priority `json:"timelinePriority,omitempty"`
	HSCode                 string   `json:"hsCode,omitempty"`
	SecondarySuppliers     []string `json:"secondarySuppliers,omitempty"`
	ProjectedSavings       float64  `json:"projectedSavings,omitempty"`
}

var countryCodes = map[string]string{
	"china":    "CN",
	"mexico":   "MX",
	"canada":   "CA",
	"vietnam":  "VN",
	"india":    "IN",
	"thailand": "TH",
}

// CountryCode normalizes the supplier country to its ISO-2 code.
// Unknown names are returned upper-cased.
func (p UserProfile) CountryCode() string {
	return NormalizeCountry(p.PrimarySupplierCountry)
}

func NormalizeCountry(country string) string {
	c := strings.TrimSpace(country)
	if code, ok := countryCodes[strings.ToLower(c)]; ok {
		return code
	}
	return strings.ToUpper(c)
}

func (p UserProfile) RiskTolerance() string {
	switch p.TimelinePriority {
	case PrioritySpeed, PriorityReliability:
		return "low"
	case PriorityCost:
		return "high"
	default:
		return "medium"
	}
}

var expectedSavings = map[string]float64{
	"Under $500K": 35000,
	"$500K - $1M": 75000,
	"$1M - $5M":   245000,
	"$5M - $25M":  850000,
	"Over $25M":   1800000,
}

// ExpectedSavings per import volume bucket (fixed weights, bukan statistik)
func (p UserProfile) ExpectedSavings() float64 {
	if v, ok := expectedSavings[p.ImportVolume]; ok {
		return v
	}
	return 150000
}

// Merge: field kosong di p diisi dari other
func (p UserProfile) Merge(other UserProfile) UserProfile {
	if p.CompanyName == "" {
		p.CompanyName = other.CompanyName
	}
	if p.BusinessType == "" {
		p.BusinessType = other.BusinessType
	}
	if p.PrimarySupplierCountry == "" {
		p.PrimarySupplierCountry = other.PrimarySupplierCountry
	}
	if p.ImportVolume == "" {
		p.ImportVolume = other.ImportVolume
	}
	if p.TimelinePriority == "" {
		p.TimelinePriority = other.TimelinePriority
	}
	if p.HSCode == "" {
		p.HSCode = other.HSCode
	}
	if len(p.SecondarySuppliers) == 0 {
		p.SecondarySuppliers = other.SecondarySuppliers
	}
	if p.ProjectedSavings == 0 {
		p.ProjectedSavings = other.ProjectedSavings
	}
	return p
}

// Patterns returns the network pattern tags this profile triggers.
func (p UserProfile) Patterns() []string {
	var out []string
	code := p.CountryCode()
	if code == "CN" {
		out = append(out, "triangle_routing_candidate")
	}
	if strings.Contains(p.ImportVolume, "$1M") || strings.Contains(p.ImportVolume, "$5M") {
		out = append(out, "optimal_volume_range")
	}
	if p.BusinessType == "Electronics" || p.BusinessType == "Manufacturing" {
		out = append(out, "high_success_industry")
	}
	if p.TimelinePriority == PriorityCost {
		out = append(out, "cost_optimization_focused")
	}
	return out
}
