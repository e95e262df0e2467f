package goldmine

import "time"

const SourceFallback = "FALLBACK"

// Reference rows. Read-only tables seeded outside this service.

type ComtradeRecord struct {
	HSCode             string  `db:"hs_code" json:"hsCode"`
	ProductDescription string  `db:"product_description" json:"productDescription"`
	BaseTariffRate     float64 `db:"base_tariff_rate" json:"baseTariffRate"`
}

type Consultation struct {
	ID             string    `db:"id" json:"id"`
	BusinessType   string    `db:"business_type" json:"businessType"`
	MarcusResponse string    `db:"marcus_response" json:"marcusResponse"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

type PatternRecord struct {
	PatternType     string    `db:"pattern_type" json:"patternType"`
	Outcome         string    `db:"outcome" json:"outcome"`
	BusinessContext string    `db:"business_context" json:"businessContext"`
	Description     string    `db:"description" json:"description"`
	SuccessRate     float64   `db:"success_rate" json:"successRate"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// Reader results. Fallback is set when the store could not be read.

type ComtradeIntel struct {
	Source          string           `json:"source"`
	TotalRecords    int              `json:"totalRecords"`
	RelevantRecords int              `json:"relevantRecords"`
	HighestTariff   float64          `json:"highestTariff"`
	AverageTariff   float64          `json:"averageTariff"`
	TopRecords      []ComtradeRecord `json:"topRecords,omitempty"`
	DataQuality     int              `json:"dataQuality"`
	Fallback        bool             `json:"fallback,omitempty"`
}

type WorkflowIntel struct {
	Source             string         `json:"source"`
	TotalSessions      int            `json:"totalSessions"`
	SimilarCompanies   int            `json:"similarCompanies"`
	AverageSavings     float64        `json:"averageSavings"`
	CommonSuppliers    []string       `json:"commonSuppliers"`
	CompletionPatterns map[string]int `json:"completionPatterns"`
	NetworkEffect      string         `json:"networkEffect"`
	DataQuality        int            `json:"dataQuality"`
	Fallback           bool           `json:"fallback,omitempty"`
}

type ConsultationIntel struct {
	Source             string   `json:"source"`
	TotalConsultations int      `json:"totalConsultations"`
	RelevantInsights   int      `json:"relevantInsights"`
	Wisdom             []string `json:"wisdom"`
	DataQuality        int      `json:"dataQuality"`
	Fallback           bool     `json:"fallback,omitempty"`
}

type PatternIntel struct {
	Source             string   `json:"source"`
	TotalPatterns      int      `json:"totalPatterns"`
	RelevantPatterns   int      `json:"relevantPatterns"`
	AverageSuccessRate float64  `json:"averageSuccessRate"`
	Lessons            []string `json:"lessons,omitempty"`
	DataQuality        int      `json:"dataQuality"`
	Fallback           bool     `json:"fallback,omitempty"`
}

// SaveResult reports a best-effort volatile write. Errors are carried, not returned.
type SaveResult struct {
	Saved         bool     `json:"saved"`
	SessionID     string   `json:"sessionId"`
	NewSession    bool     `json:"newSession"`
	Patterns      []string `json:"patterns"`
	Error         string   `json:"error,omitempty"`
	SessionGrowth string   `json:"sessionGrowth,omitempty"`
}

type StableIntel struct {
	Comtrade  ComtradeIntel     `json:"comtrade"`
	Workflow  WorkflowIntel     `json:"workflow"`
	Marcus    ConsultationIntel `json:"marcus"`
	Hindsight PatternIntel      `json:"hindsight"`
}

type FoundationSummary struct {
	TotalRecords      int    `json:"totalRecords"`
	ConfidenceScore   int    `json:"confidenceScore"`
	SourcesAvailable  int    `json:"sourcesAvailable"`
	NewSessionCreated bool   `json:"newSessionCreated"`
	SourceAuthority   string `json:"sourceAuthority"`
	NetworkGrowth     string `json:"networkGrowth"`
}

type FoundationIntel struct {
	Stable        StableIntel       `json:"stable"`
	Volatile      SaveResult        `json:"volatile"`
	MarketUpdated bool              `json:"marketAlertsUpdated"`
	Summary       FoundationSummary `json:"summary"`
	AllFellBack   bool              `json:"-"`
	GeneratedAt   time.Time         `json:"generatedAt"`
}

// MarketAlert is a current_market_alerts row, expiring after 24h.
type MarketAlert struct {
	Country      string    `db:"country"`
	BusinessType string    `db:"business_type"`
	CurrentRate  float64   `db:"current_rate"`
	UpdatedAt    time.Time `db:"updated_at"`
	ExpiresAt    time.Time `db:"expires_at"`
}

// APICacheEntry is an api_cache row, expiring after 1h.
type APICacheEntry struct {
	CacheKey  string    `db:"cache_key"`
	Endpoint  string    `db:"endpoint"`
	Response  []byte    `db:"response"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// CurrentRates are the fixed current tariff rates per supplier country.
var CurrentRates = map[string]float64{"CN": 25.5, "MX": 0, "CA": 0, "VN": 8.2}

func CurrentRate(code string) float64 {
	if r, ok := CurrentRates[code]; ok {
		return r
	}
	return 10
}
