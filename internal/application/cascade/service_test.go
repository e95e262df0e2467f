package cascade

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/triangle-intel/internal/application"
	domain "github.com/bryanwahyu/triangle-intel/internal/domain/cascade"
	"github.com/bryanwahyu/triangle-intel/internal/domain/goldmine"
	"github.com/bryanwahyu/triangle-intel/internal/domain/profile"
	"github.com/bryanwahyu/triangle-intel/internal/domain/session"
)

var now = time.Date(2025, time.May, 5, 8, 0, 0, 0, time.UTC)

type memStates struct {
	rows    map[string]domain.State
	getErr  error
	saveErr error
}

func (m *memStates) Get(_ context.Context, id string) (*domain.State, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	st, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrStateNotFound
	}
	return &st, nil
}

func (m *memStates) Save(_ context.Context, st domain.State) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.rows[st.SessionID] = st
	return nil
}

type profiles map[string]profile.UserProfile

func (p profiles) Get(_ context.Context, id string) (*session.Record, error) {
	prof, ok := p[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	rec := session.New(id, now)
	rec.Profile = prof
	return &rec, nil
}

type workflow int

func (w workflow) Workflow(context.Context, string) goldmine.WorkflowIntel {
	return goldmine.WorkflowIntel{SimilarCompanies: int(w)}
}

func acme() profile.UserProfile {
	return profile.UserProfile{
		CompanyName:            "Acme",
		BusinessType:           "Electronics",
		PrimarySupplierCountry: "China",
		ImportVolume:           "$1M - $5M",
		TimelinePriority:       profile.PriorityCost,
	}
}

func newService() (*Service, *memStates) {
	states := &memStates{rows: map[string]domain.State{}}
	return &Service{
		States:   states,
		Profiles: profiles{"s1": acme()},
		Workflow: workflow(7),
		Clock:    application.FixedClock{T: now},
	}, states
}

func TestEnhanceFoundationFromEmpty(t *testing.T) {
	s, states := newService()
	res := s.Enhance(context.Background(), "s1", domain.StageFoundation, acme())

	assert.Equal(t, 1.0, res.Quality)
	assert.Equal(t, 0, res.ContextDepth)
	assert.Equal(t, 65, res.Confidence)
	require.Len(t, res.Insights, 4)
	assert.Equal(t, "Electronics company profile established", res.Insights[0])
	assert.Equal(t, "Risk tolerance: COST priority detected", res.Insights[1])
	assert.Equal(t, "7 similar companies found in database", res.Insights[3])
	assert.Empty(t, res.Recommendations)
	assert.Equal(t, []string{"High tariff risk from China suppliers", "Cost optimization priority may extend timelines"}, res.Analysis.Context["challenges"])

	st := states.rows["s1"]
	assert.Equal(t, []domain.Stage{domain.StageFoundation}, st.CompletedStages)
	assert.Equal(t, now, st.LastActivity)
}

func TestEnhanceAccumulatesAcrossStages(t *testing.T) {
	s, states := newService()
	ctx := context.Background()
	s.Enhance(ctx, "s1", domain.StageFoundation, acme())

	res := s.Enhance(ctx, "s1", domain.StageProduct, profile.UserProfile{HSCode: "8471"})
	assert.Equal(t, 3.5, res.Quality)
	assert.Equal(t, 1, res.ContextDepth)
	assert.Len(t, res.Insights, 8)
	assert.Contains(t, res.Insights, "Building on Electronics profile from Foundation")
	assert.Contains(t, res.Insights, "Product classification enhanced with risk tolerance: high")
	assert.Equal(t, "Intelligence quality increased from 1.0 to 3.5/10.0", res.ProgressiveValue)
	assert.Len(t, res.Recommendations, 3)

	// submit ulang tidak menggandakan insight
	again := s.Enhance(ctx, "s1", domain.StageProduct, profile.UserProfile{})
	assert.Len(t, again.Insights, 8)
	assert.Equal(t, "Intelligence quality increased from 3.5 to 3.5/10.0", again.ProgressiveValue)

	routing := s.Enhance(ctx, "s1", domain.StageRouting, profile.UserProfile{})
	assert.Equal(t, 6.8, routing.Quality)
	assert.Equal(t, 2, routing.ContextDepth)
	assert.Contains(t, routing.Insights, "Triangle routing viability: Highly viable - China suppliers + high risk tolerance")
	assert.Len(t, routing.Recommendations, 6)

	st := states.rows["s1"]
	assert.Equal(t, []domain.Stage{domain.StageFoundation, domain.StageProduct, domain.StageRouting}, st.CompletedStages)
	assert.Equal(t, 3, st.Accumulated.StageCount)
	assert.Len(t, st.Accumulated.Stages, 3)
}

func TestEnhanceAlertsMaximumQuality(t *testing.T) {
	s, _ := newService()
	res := s.Enhance(context.Background(), "s1", domain.StageAlerts, acme())
	assert.Equal(t, 10.0, res.Quality)
	assert.Equal(t, 99, res.Confidence)
	assert.Equal(t, "INSTITUTIONAL QUALITY ACHIEVED: 10.0/10.0", res.ProgressiveValue)
}

func TestEnhanceUnknownStage(t *testing.T) {
	s, states := newService()
	res := s.Enhance(context.Background(), "s1", "pricing", acme())
	assert.Equal(t, 1.0, res.Quality)
	assert.Equal(t, 70, res.Confidence)
	assert.Equal(t, []string{"Generic stage analysis with progressive context"}, res.Insights)
	assert.Equal(t, []domain.Stage{"pricing"}, states.rows["s1"].CompletedStages)
}

func TestEnhanceStoreFailures(t *testing.T) {
	s, states := newService()
	states.getErr = errors.New("connection refused")
	states.saveErr = errors.New("connection refused")

	res := s.Enhance(context.Background(), "s1", domain.StageProduct, profile.UserProfile{})
	assert.Equal(t, 3.5, res.Quality)
	assert.Equal(t, 0, res.ContextDepth)
	assert.Equal(t, "Intelligence quality increased from 1.0 to 3.5/10.0", res.ProgressiveValue)
	assert.Equal(t, "connection refused", res.Error)
}

func TestEnhanceWithoutRecordedProfileUsesSubmitted(t *testing.T) {
	s, _ := newService()
	p := acme()
	p.BusinessType = "Textiles"
	res := s.Enhance(context.Background(), "unknown-session", domain.StageProduct, p)
	assert.Contains(t, res.Insights, "Building on Textiles profile from Foundation")
}
