package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bryanwahyu/triangle-intel/internal/domain/report"
)

// GetSystemPrompt sets the voice and the required sections for a report kind.
func GetSystemPrompt(kind report.Kind) string {
	return fmt.Sprintf(`You are a senior Mexico trade consultant writing a %s for a client of Triangle Intelligence.

Requirements:
- Output GitHub flavored Markdown only. No code fences around the document.
- Start with a level one heading containing the report title.
- Use the numbers given in the facts section exactly. Never invent tariff rates or savings figures.
- When a figure is not provided, say what data is needed instead of guessing.
- Keep recommendations specific: name the component, the country and the dollar amount.

Required sections:
%s`, kind.Title(), sections(kind))
}

func sections(kind report.Kind) string {
	var s []string
	switch kind {
	case report.KindUSMCACertificate:
		s = []string{"Executive Summary", "Component Origin Analysis", "Tariff Cost Breakdown", "Certificate Data Requirements", "Action Plan (next 90 days)"}
	case report.KindCrisisResponse:
		s = []string{"Situation Summary", "Immediate Actions", "Mitigation Options", "Next Steps"}
	case report.KindManufacturingFeasibility:
		s = []string{"Project Overview", "Location Assessment", "Cost Model", "Timeline"}
	case report.KindMarketEntry:
		s = []string{"Market Opportunity", "Entry Strategy", "Regulatory Checklist", "Next Steps"}
	case report.KindSupplierSourcing:
		s = []string{"Sourcing Requirements", "Supplier Shortlist", "Cost Comparison", "Next Steps"}
	case report.KindHSClassification:
		s = []string{"Product Description", "Proposed Classification", "Tariff Treatment", "Audit Defense"}
	default:
		s = []string{"Summary", "Recommendations"}
	}
	var b strings.Builder
	for i, name := range s {
		fmt.Fprintf(&b, "## %d. %s\n", i+1, name)
	}
	return b.String()
}

// GetUserPrompt lists the client answers and the computed USMCA facts.
func GetUserPrompt(req report.Request, facts report.Assessment) string {
	var b strings.Builder
	company := req.CompanyName
	if company == "" {
		company = "(not provided)"
	}
	fmt.Fprintf(&b, "CLIENT PROFILE\nCompany: %s\n", company)
	if req.TradeVolume > 0 {
		fmt.Fprintf(&b, "Annual trade volume: $%.0f\n", req.TradeVolume)
	}

	if len(req.Components) > 0 {
		b.WriteString("\nCOMPONENT ORIGINS\n")
		for _, c := range req.Components {
			fmt.Fprintf(&b, "- %s: %.1f%%", c.Country, c.Percentage)
			if c.Description != "" {
				fmt.Fprintf(&b, " (%s)", c.Description)
			}
			b.WriteString("\n")
		}
	}

	if len(req.Fields) > 0 {
		b.WriteString("\nINTAKE ANSWERS\n")
		keys := make([]string, 0, len(req.Fields))
		for k := range req.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v := strings.TrimSpace(req.Fields[k]); v != "" {
				fmt.Fprintf(&b, "- %s: %s\n", k, v)
			}
		}
	}

	fmt.Fprintf(&b, "\nFACTS\n- North American content: %.1f%% (Mexico %.1f%%, US %.1f%%, Canada %.1f%%)\n",
		facts.NorthAmericanContent, facts.Mexico, facts.US, facts.Canada)
	fmt.Fprintf(&b, "- China content: %.1f%%\n", facts.China)
	fmt.Fprintf(&b, "- RVC threshold: %.0f%%\n", facts.Threshold)
	fmt.Fprintf(&b, "- Qualification status: %s\n", facts.Status)
	fmt.Fprintf(&b, "- Annual savings opportunity: $%.0f\n", facts.AnnualSavings)
	fmt.Fprintf(&b, "- China tariff exposure: $%.0f\n", facts.TariffExposure)
	return b.String()
}
