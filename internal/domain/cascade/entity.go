package cascade

import "time"

type Stage string

const (
	StageFoundation  Stage = "foundation"
	StageProduct     Stage = "product"
	StageRouting     Stage = "routing"
	StagePartnership Stage = "partnership"
	StageHindsight   Stage = "hindsight"
	StageAlerts      Stage = "alerts"
)

// Order is the fixed journey order.
var Order = []Stage{StageFoundation, StageProduct, StageRouting, StagePartnership, StageHindsight, StageAlerts}

// Quality weights per stage. These are fixed configuration weights.
var qualityWeights = map[Stage]float64{
	StageFoundation:  1.0,
	StageProduct:     3.5,
	StageRouting:     6.8,
	StagePartnership: 7.2,
	StageHindsight:   9.2,
	StageAlerts:      10.0,
}

var stageConfidence = map[Stage]int{
	StageFoundation:  65,
	StageProduct:     78,
	StageRouting:     89,
	StagePartnership: 85,
	StageHindsight:   96,
	StageAlerts:      99,
}

const (
	BaseQuality       = 1.0
	GenericConfidence = 70
)

func (s Stage) Known() bool {
	_, ok := qualityWeights[s]
	return ok
}

// Index returns the position in Order, or -1.
func (s Stage) Index() int {
	for i, st := range Order {
		if st == s {
			return i
		}
	}
	return -1
}

func (s Stage) Quality() float64 {
	if q, ok := qualityWeights[s]; ok {
		return q
	}
	return BaseQuality
}

func (s Stage) Confidence() int {
	if c, ok := stageConfidence[s]; ok {
		return c
	}
	return GenericConfidence
}

// CompletedThrough: prefix Order sampai dan termasuk s. Stage asing -> cuma dirinya.
func CompletedThrough(s Stage) []Stage {
	i := s.Index()
	if i < 0 {
		return []Stage{s}
	}
	out := make([]Stage, i+1)
	copy(out, Order[:i+1])
	return out
}

// StageAnalysis is the output recorded for one stage.
type StageAnalysis struct {
	Stage           Stage          `json:"stage"`
	Insights        []string       `json:"insights"`
	Recommendations []string       `json:"recommendations"`
	Confidence      int            `json:"confidence"`
	Context         map[string]any `json:"context,omitempty"`
}

// Accumulated adalah intelligence yang menumpuk lintas stage
type Accumulated struct {
	Quality         float64                 `json:"quality"`
	StageCount      int                     `json:"stageCount"`
	Stages          map[Stage]StageAnalysis `json:"stages"`
	Insights        []string                `json:"insights"`
	Recommendations []string                `json:"recommendations"`
}

type State struct {
	SessionID       string      `json:"sessionId"`
	CurrentStage    Stage       `json:"currentStage"`
	CompletedStages []Stage     `json:"completedStages"`
	Accumulated     Accumulated `json:"accumulated"`
	LastActivity    time.Time   `json:"lastActivity"`
}

// NewState returns an empty state at base quality.
func NewState(sessionID string) State {
	return State{
		SessionID:   sessionID,
		Accumulated: Accumulated{Quality: BaseQuality, Stages: map[Stage]StageAnalysis{}},
	}
}
