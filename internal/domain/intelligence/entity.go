package intelligence

import "time"

type Status string

const (
	StatusSuccess       Status = "SUCCESS"
	StatusSuccessCached Status = "SUCCESS_CACHED"
	StatusFallback      Status = "FALLBACK"
)

const (
	SourceFallback = "FALLBACK"
	PriorityAlert  = "PRIORITY"
)

type Match struct {
	SessionID       string `json:"sessionId"`
	CompanyName     string `json:"companyName,omitempty"`
	BusinessType    string `json:"businessType,omitempty"`
	SupplierCountry string `json:"supplierCountry,omitempty"`
}

type Similarity struct {
	Source                string  `json:"source"`
	Matches               []Match `json:"matches"`
	TotalSimilarCompanies int     `json:"totalSimilarCompanies"`
	AverageSavings        string  `json:"averageSavings,omitempty"`
	BestPractice          string  `json:"bestPractice,omitempty"`
	SuccessRate           int     `json:"successRate,omitempty"`
	DataQuality           int     `json:"dataQuality"`
}

type Seasonal struct {
	Source         string `json:"source"`
	CurrentPattern string `json:"currentPattern"`
	Recommendation string `json:"recommendation,omitempty"`
	Status         string `json:"status,omitempty"`
	Quarter        int    `json:"quarter,omitempty"`
	DataQuality    int    `json:"dataQuality"`
}

type Trend struct {
	Indicator string  `json:"indicator"`
	Value     float64 `json:"value"`
	Direction string  `json:"direction"`
}

type Market struct {
	Source         string  `json:"source"`
	Volatility     float64 `json:"volatility"`
	RiskLevel      string  `json:"riskLevel,omitempty"`
	Recommendation string  `json:"recommendation,omitempty"`
	Trends         []Trend `json:"trends,omitempty"`
	DataQuality    int     `json:"dataQuality"`
}

type Pattern struct {
	Strategy    string `json:"strategy"`
	Outcome     string `json:"outcome"`
	SuccessRate int    `json:"successRate"`
	Context     string `json:"context,omitempty"`
}

type Patterns struct {
	Source         string    `json:"source"`
	Patterns       []Pattern `json:"patterns"`
	TotalPatterns  int       `json:"totalPatterns"`
	AverageSuccess int       `json:"averageSuccess,omitempty"`
	DataQuality    int       `json:"dataQuality"`
}

type Shipping struct {
	Source          string   `json:"source"`
	ConstraintLevel string   `json:"constraintLevel"`
	Utilization     int      `json:"utilization"`
	Confidence      int      `json:"confidence"`
	Season          string   `json:"season,omitempty"`
	Insights        []string `json:"insights,omitempty"`
	DataQuality     int      `json:"dataQuality"`
}

type Alert struct {
	Type       string   `json:"type"`
	Priority   string   `json:"priority"`
	Message    string   `json:"message"`
	Confidence int      `json:"confidence"`
	Sources    []string `json:"sources,omitempty"`
	Urgency    string   `json:"urgency,omitempty"`
}

type Alerts struct {
	Priority []Alert `json:"priorityAlerts"`
	Standard []Alert `json:"standardAlerts"`
}

// All returns priority alerts first.
func (a Alerts) All() []Alert {
	out := make([]Alert, 0, len(a.Priority)+len(a.Standard))
	out = append(out, a.Priority...)
	return append(out, a.Standard...)
}

func (a Alerts) Len() int { return len(a.Priority) + len(a.Standard) }

// Beasts groups the per-signal analyzer results of one activation.
type Beasts struct {
	Similarity Similarity `json:"similarity"`
	Seasonal   Seasonal   `json:"seasonal"`
	Market     Market     `json:"market"`
	Patterns   Patterns   `json:"patterns"`
	Shipping   *Shipping  `json:"shipping,omitempty"`
	Alerts     Alerts     `json:"alerts"`
}

type Insight struct {
	Type              string   `json:"type"`
	Priority          string   `json:"priority"`
	Insight           string   `json:"insight"`
	Confidence        int      `json:"confidence"`
	Sources           []string `json:"sources,omitempty"`
	Actionable        string   `json:"actionable,omitempty"`
	Urgency           string   `json:"urgency,omitempty"`
	PotentialSavings  string   `json:"potentialSavings,omitempty"`
	NetworkMultiplier float64  `json:"networkMultiplier,omitempty"`
}

type Recommendation struct {
	Action           string `json:"action"`
	Rationale        string `json:"rationale,omitempty"`
	Priority         string `json:"priority"`
	EstimatedSavings string `json:"estimatedSavings,omitempty"`
	Category         string `json:"category,omitempty"`
}

type Summary struct {
	BusinessType   string `json:"businessType"`
	CurrentPage    string `json:"currentPage"`
	TotalInsights  int    `json:"totalInsights"`
	Confidence     int    `json:"confidence"`
	DataQuality    int    `json:"dataQuality"`
	FallbackReason string `json:"fallbackReason,omitempty"`
}

type InsightGroups struct {
	Top      []Insight `json:"top"`
	Compound []Insight `json:"compound"`
	Market   []Trend   `json:"market"`
	Patterns []Pattern `json:"patterns"`
}

// Unified is the merged view returned to callers.
type Unified struct {
	Summary         Summary          `json:"summary"`
	Insights        InsightGroups    `json:"insights"`
	Recommendations []Recommendation `json:"recommendations"`
	Alerts          []Alert          `json:"alerts"`
	GeneratedAt     time.Time        `json:"generatedAt"`
}

type Performance struct {
	TotalBeasts         int      `json:"totalBeasts"`
	ProcessingTimeMS    int64    `json:"processingTimeMs"`
	IntelligenceQuality int      `json:"intelligenceQuality"`
	Cached              bool     `json:"cached"`
	Fallbacks           []string `json:"fallbacks,omitempty"`
}

// Activation is one orchestrator run.
type Activation struct {
	Status        Status      `json:"status"`
	Beasts        Beasts      `json:"beasts"`
	Unified       Unified     `json:"unified"`
	Performance   Performance `json:"performance"`
	CompoundCount int         `json:"compoundCount"`
	ActivatedAt   time.Time   `json:"activatedAt"`
}

// PatternSave is the payload persisted asynchronously after a confident activation.
type PatternSave struct {
	SessionID           string    `json:"sessionId"`
	CompanyName         string    `json:"companyName"`
	BusinessType        string    `json:"businessType"`
	SupplierCountry     string    `json:"supplierCountry"`
	ImportVolume        string    `json:"importVolume"`
	Page                string    `json:"page"`
	Confidence          int       `json:"confidence"`
	CompoundInsights    int       `json:"compoundInsights"`
	TopInsights         int       `json:"topInsights"`
	TotalBeasts         int       `json:"totalBeasts"`
	IntelligenceQuality int       `json:"intelligenceQuality"`
	ProcessingTimeMS    int64     `json:"processingTimeMs"`
	ActivatedAt         time.Time `json:"activatedAt"`
}

// PatternMatch is a user_pattern_matches row.
type PatternMatch struct {
	SessionID       string    `db:"session_id"`
	PatternName     string    `db:"pattern_name"`
	PatternCategory string    `db:"pattern_category"`
	Confidence      int       `db:"confidence_score"`
	InsightsCount   int       `db:"insights_count"`
	BusinessType    string    `db:"business_type"`
	CreatedAt       time.Time `db:"created_at"`
}
