package journey

// Response is the page-submit payload. Blocks that do not apply to the
// submitted page are omitted.
type Response struct {
	Success                 bool            `json:"success"`
	Page                    string          `json:"page"`
	SessionID               string          `json:"sessionId"`
	Message                 string          `json:"message"`
	GoldmineIntelligence    any             `json:"goldmineIntelligence,omitempty"`
	NetworkEffects          *NetworkEffects `json:"networkEffects,omitempty"`
	DatabaseGrowth          *DatabaseGrowth `json:"databaseGrowth,omitempty"`
	ProgressiveIntelligence *Progressive    `json:"progressiveIntelligence,omitempty"`
	Performance             *Performance    `json:"performance,omitempty"`
	Error                   string          `json:"error,omitempty"`
}

type FoundationGoldmine struct {
	Source              string `json:"source"`
	ComtradeRecords     int    `json:"comtradeRecords"`
	RelevantRecords     int    `json:"relevantRecords"`
	NetworkSessions     int    `json:"networkSessions"`
	SimilarCompanies    int    `json:"similarCompanies"`
	MarcusConsultations int    `json:"marcusConsultations"`
	RelevantInsights    int    `json:"relevantInsights"`
	ConfidenceScore     int    `json:"confidenceScore"`
}

type FallbackGoldmine struct {
	Source              string `json:"source"`
	ComtradeRecords     int    `json:"comtradeRecords"`
	NetworkSessions     int    `json:"networkSessions"`
	MarcusConsultations int    `json:"marcusConsultations"`
	Status              string `json:"status"`
}

type StageGoldmine struct {
	Source             string `json:"source"`
	BuildingOn         string `json:"buildingOn"`
	EnhancedWith       string `json:"enhancedWith,omitempty"`
	ConfidenceScore    int    `json:"confidenceScore"`
	StrategicAdvantage string `json:"strategicAdvantage,omitempty"`
	InstitutionalValue string `json:"institutionalValue,omitempty"`
	Status             string `json:"status,omitempty"`
}

type NetworkEffects struct {
	TotalUsers       int      `json:"totalUsers"`
	SimilarCompanies int      `json:"similarCompanies"`
	AverageSavings   float64  `json:"averageSavings"`
	TopChoices       []string `json:"topChoices"`
	NetworkEffect    string   `json:"networkEffect"`
	Source           string   `json:"source"`
}

type DatabaseGrowth struct {
	SessionSaved      bool   `json:"sessionSaved"`
	MarketDataUpdated bool   `json:"marketDataUpdated"`
	SessionGrowth     string `json:"sessionGrowth"`
}

type Progressive struct {
	QualityLevel                 float64  `json:"qualityLevel"`
	ContextDepth                 int      `json:"contextDepth"`
	IntelligenceType             string   `json:"intelligenceType"`
	ProgressiveInsights          []string `json:"progressiveInsights"`
	EnhancedRecommendations      []string `json:"enhancedRecommendations,omitempty"`
	StrategicRecommendations     []string `json:"strategicRecommendations,omitempty"`
	PartnershipRecommendations   []string `json:"partnershipRecommendations,omitempty"`
	HindsightWisdom              []string `json:"hindsightWisdom,omitempty"`
	InstitutionalRecommendations []string `json:"institutionalRecommendations,omitempty"`
	PredictiveAlerts             []string `json:"predictiveAlerts,omitempty"`
	ProgressiveValue             string   `json:"progressiveValue,omitempty"`
	NextPagePrep                 string   `json:"nextPagePrep,omitempty"`
	TriangleViability            string   `json:"triangleViability,omitempty"`
	PartnershipViability         string   `json:"partnershipViability,omitempty"`
	PatternExtraction            string   `json:"patternExtraction,omitempty"`
	Contribution                 string   `json:"contribution,omitempty"`
}

type Performance struct {
	APICallsUsed  int    `json:"apiCallsUsed"`
	DatabaseHits  int    `json:"databaseHits"`
	ResponseTime  string `json:"responseTime"`
	CacheStrategy string `json:"cacheStrategy"`
}
