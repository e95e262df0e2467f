package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/triangle-intel/internal/domain/cascade"
	"github.com/bryanwahyu/triangle-intel/internal/domain/profile"
)

// SchemaVersion of rows written by this service.
const SchemaVersion = 2

// Record is the normalized in-memory view of one workflow_sessions row.
type Record struct {
	SessionID     string                            `json:"sessionId"`
	SchemaVersion int                               `json:"schemaVersion"`
	Profile       profile.UserProfile               `json:"profile"`
	CurrentPage   string                            `json:"currentPage,omitempty"`
	Stages        map[cascade.Stage]json.RawMessage `json:"stages,omitempty"`
	Completed     map[cascade.Stage]bool            `json:"completed,omitempty"`
	Analysis      *Analysis                         `json:"analysis,omitempty"`
	CreatedAt     time.Time                         `json:"createdAt"`
	UpdatedAt     time.Time                         `json:"updatedAt"`
}

// Analysis summarizes the last orchestrator run saved for the session.
type Analysis struct {
	Page                string    `json:"page"`
	Confidence          int       `json:"confidence"`
	CompoundInsights    int       `json:"compoundInsights"`
	TotalBeasts         int       `json:"totalBeasts"`
	IntelligenceQuality int       `json:"intelligenceQuality"`
	At                  time.Time `json:"at"`
}

func New(id string, at time.Time) Record {
	return Record{
		SessionID:     id,
		SchemaVersion: SchemaVersion,
		Stages:        map[cascade.Stage]json.RawMessage{},
		Completed:     map[cascade.Stage]bool{},
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}

// RawRecord mirrors the table columns, including the legacy ones.
type RawRecord struct {
	SessionID         string    `db:"session_id"`
	SchemaVersion     int       `db:"schema_version"`
	Data              []byte    `db:"data"`
	AutoPopulated     []byte    `db:"auto_populated_fields"`
	UserEntered       []byte    `db:"user_entered_fields"`
	FoundationStatus  *string   `db:"foundation_status"`
	ProductStatus     *string   `db:"product_status"`
	RoutingStatus     *string   `db:"routing_status"`
	PartnershipStatus *string   `db:"partnership_status"`
	HindsightStatus   *string   `db:"hindsight_status"`
	AlertsStatus      *string   `db:"alerts_status"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// StatusCompleted is the only value written to the per-stage status columns.
const StatusCompleted = "completed"

// Event is an append-only network intelligence event.
type Event struct {
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId,omitempty"`
	Data      map[string]any `json:"data"`
	Summary   string         `json:"summary"`
	CreatedAt time.Time      `json:"createdAt"`
}

// NewID builds session_{company}_{unixMillis}; empty company becomes "anonymous".
func NewID(companyName string, at time.Time) string {
	name := strings.TrimSpace(companyName)
	if name == "" {
		name = "anonymous"
	}
	return fmt.Sprintf("session_%s_%d", name, at.UnixMilli())
}
