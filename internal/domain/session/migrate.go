package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bryanwahyu/triangle-intel/internal/domain/cascade"
	"github.com/bryanwahyu/triangle-intel/internal/domain/profile"
)

// envelope is the v2 layout of the data column.
type envelope struct {
	Profile     profile.UserProfile               `json:"profile"`
	CurrentPage string                            `json:"currentPage,omitempty"`
	Stages      map[cascade.Stage]json.RawMessage `json:"stages,omitempty"`
	Analysis    *Analysis                         `json:"analysis,omitempty"`
}

// Migrate folds any stored row layout into a v2 Record.
//
// Legacy rows (schema_version < 2) kept the profile in data, then
// auto_populated_fields, then user_entered_fields, or nested under
// data.foundation, using camelCase or snake_case keys. The first
// non-empty value wins in that order.
func Migrate(raw RawRecord) (Record, error) {
	rec := New(raw.SessionID, raw.CreatedAt)
	rec.UpdatedAt = raw.UpdatedAt
	applyStatuses(&rec, raw)

	if raw.SchemaVersion >= SchemaVersion {
		if len(raw.Data) == 0 {
			return rec, nil
		}
		var env envelope
		if err := json.Unmarshal(raw.Data, &env); err != nil {
			return Record{}, fmt.Errorf("decode session %s: %w", raw.SessionID, err)
		}
		rec.Profile = env.Profile
		rec.CurrentPage = env.CurrentPage
		rec.Analysis = env.Analysis
		if env.Stages != nil {
			rec.Stages = env.Stages
		}
		return rec, nil
	}

	data := decodeObject(raw.Data)
	layers := []map[string]any{
		data,
		decodeObject(raw.AutoPopulated),
		decodeObject(raw.UserEntered),
	}
	if nested, ok := data["foundation"].(map[string]any); ok {
		layers = append(layers, nested)
	}
	if nested, ok := data["userData"].(map[string]any); ok {
		layers = append(layers, nested)
	}
	rec.Profile = profileFrom(layers)

	if page, ok := data["currentPage"].(string); ok {
		rec.CurrentPage = page
	}
	if bm, ok := data["beastMasterAnalysis"].(map[string]any); ok {
		rec.Analysis = &Analysis{
			Page:                rec.CurrentPage,
			Confidence:          int(number(bm["confidence"])),
			CompoundInsights:    int(number(bm["compoundInsights"])),
			TotalBeasts:         int(number(bm["totalBeasts"])),
			IntelligenceQuality: int(number(bm["intelligenceQuality"])),
			At:                  parseTime(bm["timestamp"]),
		}
	}
	if len(raw.UserEntered) > 0 && rec.CurrentPage != "" {
		rec.Stages[cascade.Stage(rec.CurrentPage)] = json.RawMessage(raw.UserEntered)
	}
	return rec, nil
}

// Encode is the inverse of Migrate for v2 rows. user_entered_fields gets the
// latest stage payload and auto_populated_fields a flat profile copy so older
// readers of the table keep working.
func Encode(rec Record) (RawRecord, error) {
	env := envelope{
		Profile:     rec.Profile,
		CurrentPage: rec.CurrentPage,
		Stages:      rec.Stages,
		Analysis:    rec.Analysis,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return RawRecord{}, err
	}
	auto, err := json.Marshal(map[string]string{
		"companyName":            rec.Profile.CompanyName,
		"businessType":           rec.Profile.BusinessType,
		"primarySupplierCountry": rec.Profile.PrimarySupplierCountry,
		"importVolume":           rec.Profile.ImportVolume,
	})
	if err != nil {
		return RawRecord{}, err
	}
	raw := RawRecord{
		SessionID:     rec.SessionID,
		SchemaVersion: SchemaVersion,
		Data:          data,
		AutoPopulated: auto,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
	if payload, ok := rec.Stages[cascade.Stage(rec.CurrentPage)]; ok {
		raw.UserEntered = payload
	} else {
		raw.UserEntered = []byte("{}")
	}
	for stage, done := range rec.Completed {
		if !done {
			continue
		}
		if col := statusField(&raw, stage); col != nil {
			v := StatusCompleted
			*col = &v
		}
	}
	return raw, nil
}

func applyStatuses(rec *Record, raw RawRecord) {
	for _, stage := range cascade.Order {
		col := statusField(&raw, stage)
		if col != nil && *col != nil && **col == StatusCompleted {
			rec.Completed[stage] = true
		}
	}
}

func statusField(raw *RawRecord, stage cascade.Stage) **string {
	switch stage {
	case cascade.StageFoundation:
		return &raw.FoundationStatus
	case cascade.StageProduct:
		return &raw.ProductStatus
	case cascade.StageRouting:
		return &raw.RoutingStatus
	case cascade.StagePartnership:
		return &raw.PartnershipStatus
	case cascade.StageHindsight:
		return &raw.HindsightStatus
	case cascade.StageAlerts:
		return &raw.AlertsStatus
	}
	return nil
}

func decodeObject(b []byte) map[string]any {
	if len(b) == 0 {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

func profileFrom(layers []map[string]any) profile.UserProfile {
	str := func(keys ...string) string {
		for _, l := range layers {
			for _, k := range keys {
				if s, ok := l[k].(string); ok && s != "" {
					return s
				}
			}
		}
		return ""
	}
	p := profile.UserProfile{
		CompanyName:            str("companyName", "company_name"),
		BusinessType:           str("businessType", "business_type"),
		PrimarySupplierCountry: str("primarySupplierCountry", "primary_supplier_country", "supplierCountry"),
		ImportVolume:           str("importVolume", "import_volume", "tradeVolume"),
		TimelinePriority:       profile.Priority(str("timelinePriority", "timeline_priority")),
		HSCode:                 str("hsCode", "hs_code"),
	}
	for _, l := range layers {
		for _, k := range []string{"projectedSavings", "projected_savings"} {
			if v := number(l[k]); v != 0 && p.ProjectedSavings == 0 {
				p.ProjectedSavings = v
			}
		}
		for _, k := range []string{"secondarySuppliers", "secondary_suppliers"} {
			if arr, ok := l[k].([]any); ok && len(p.SecondarySuppliers) == 0 {
				for _, it := range arr {
					if s, ok := it.(string); ok {
						p.SecondarySuppliers = append(p.SecondarySuppliers, s)
					}
				}
			}
		}
	}
	return p
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(strings.NewReplacer("$", "", ",", "").Replace(n), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func parseTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
