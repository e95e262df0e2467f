package goldmine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/triangle-intel/internal/application"
	"github.com/bryanwahyu/triangle-intel/internal/domain/cascade"
	domain "github.com/bryanwahyu/triangle-intel/internal/domain/goldmine"
	"github.com/bryanwahyu/triangle-intel/internal/domain/profile"
	"github.com/bryanwahyu/triangle-intel/internal/domain/session"
)

var errDown = errors.New("connection refused")

// memSessions stores rows in their encoded form so every read goes through Migrate.
type memSessions struct {
	mu   sync.Mutex
	rows map[string]session.RawRecord
	err  error
}

func newMemSessions() *memSessions { return &memSessions{rows: map[string]session.RawRecord{}} }

func (m *memSessions) Upsert(_ context.Context, rec session.Record) error {
	if m.err != nil {
		return m.err
	}
	raw, err := session.Encode(rec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[rec.SessionID] = raw
	return nil
}

func (m *memSessions) Get(_ context.Context, id string) (*session.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	raw, ok := m.rows[id]
	m.mu.Unlock()
	if !ok {
		return nil, sql.ErrNoRows
	}
	rec, err := session.Migrate(raw)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (m *memSessions) Recent(_ context.Context, limit int) ([]session.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []session.Record
	for _, raw := range m.rows {
		rec, err := session.Migrate(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memSessions) Count(context.Context) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows), nil
}

type memEvents struct {
	mu     sync.Mutex
	events []session.Event
}

func (m *memEvents) Append(_ context.Context, e session.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

type fakeReference struct {
	comtrade      []domain.ComtradeRecord
	comtradeTotal int
	consultations []domain.Consultation
	patterns      []domain.PatternRecord
	err           error
	calls         int
}

func (f *fakeReference) SearchComtrade(_ context.Context, _, _ string, _ int) ([]domain.ComtradeRecord, int, error) {
	f.calls++
	return f.comtrade, f.comtradeTotal, f.err
}

func (f *fakeReference) RecentConsultations(context.Context, int) ([]domain.Consultation, int, error) {
	return f.consultations, len(f.consultations), f.err
}

func (f *fakeReference) RecentPatterns(context.Context, int) ([]domain.PatternRecord, int, error) {
	return f.patterns, len(f.patterns), f.err
}

type fakeMarket struct {
	alerts []domain.MarketAlert
	cache  []domain.APICacheEntry
}

func (f *fakeMarket) UpsertAlert(_ context.Context, a domain.MarketAlert) error {
	f.alerts = append(f.alerts, a)
	return nil
}

func (f *fakeMarket) UpsertAPICache(_ context.Context, e domain.APICacheEntry) error {
	f.cache = append(f.cache, e)
	return nil
}

var now = time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

func newService() (*Service, *memSessions, *memEvents, *fakeReference) {
	sessions := newMemSessions()
	events := &memEvents{}
	ref := &fakeReference{}
	return &Service{
		Sessions:  sessions,
		Events:    events,
		Reference: ref,
		Market:    &fakeMarket{},
		Clock:     application.FixedClock{T: now},
	}, sessions, events, ref
}

func TestComtradeSuccess(t *testing.T) {
	svc, _, _, ref := newService()
	ref.comtrade = []domain.ComtradeRecord{
		{HSCode: "847130", BaseTariffRate: 25},
		{HSCode: "847141", BaseTariffRate: 10},
		{HSCode: "847150", BaseTariffRate: 6},
	}
	ref.comtradeTotal = 17563

	got := svc.Comtrade(context.Background(), "", "Electronics")
	assert.Equal(t, 17563, got.TotalRecords)
	assert.Equal(t, 3, got.RelevantRecords)
	assert.Equal(t, 25.0, got.HighestTariff)
	assert.Equal(t, 14.0, got.AverageTariff)
	assert.Equal(t, 90, got.DataQuality)
	assert.False(t, got.Fallback)
}

func TestComtradeEmptyAndFailure(t *testing.T) {
	svc, _, _, ref := newService()

	got := svc.Comtrade(context.Background(), "8471", "Nothing")
	assert.Equal(t, 17500, got.TotalRecords)
	assert.Equal(t, 15.0, got.AverageTariff)
	assert.Equal(t, 50, got.DataQuality)

	ref.err = errDown
	got = svc.Comtrade(context.Background(), "8471", "Nothing")
	assert.True(t, got.Fallback)
	assert.Equal(t, 17500, got.TotalRecords)
	assert.Equal(t, 25.0, got.HighestTariff)
	assert.Equal(t, 30, got.DataQuality)
}

func TestWorkflowSimilarity(t *testing.T) {
	svc, sessions, _, _ := newService()
	ctx := context.Background()
	add := func(id, bt, country string, savings float64, done ...cascade.Stage) {
		rec := session.New(id, now)
		rec.Profile = profile.UserProfile{BusinessType: bt, PrimarySupplierCountry: country, ProjectedSavings: savings}
		for _, st := range done {
			rec.Completed[st] = true
		}
		require.NoError(t, sessions.Upsert(ctx, rec))
	}
	add("s1", "Consumer Electronics", "China", 100000, cascade.StageFoundation, cascade.StageProduct)
	add("s2", "Electronics", "Vietnam", 300000, cascade.StageFoundation)
	add("s3", "electronics", "China", 0, cascade.StageFoundation)
	add("s4", "Textiles", "India", 50000)

	got := svc.Workflow(ctx, "Electronics")
	assert.Equal(t, 4, got.TotalSessions)
	assert.Equal(t, 3, got.SimilarCompanies)
	assert.Equal(t, 200000.0, got.AverageSavings)
	assert.Equal(t, []string{"China", "Vietnam"}, got.CommonSuppliers)
	assert.Equal(t, 100, got.CompletionPatterns["foundation"])
	assert.Equal(t, 33, got.CompletionPatterns["product"])
	assert.Equal(t, 0, got.CompletionPatterns["alerts"])
	assert.Equal(t, 85, got.DataQuality)
	assert.Equal(t, "4 real user sessions analyzed", got.NetworkEffect)
}

func TestWorkflowFallback(t *testing.T) {
	svc, sessions, _, _ := newService()
	sessions.err = errDown

	got := svc.Workflow(context.Background(), "Electronics")
	assert.True(t, got.Fallback)
	assert.Equal(t, 205, got.TotalSessions)
	assert.Equal(t, 245000.0, got.AverageSavings)
	assert.Equal(t, []string{"China", "Vietnam", "Thailand"}, got.CommonSuppliers)
	assert.Len(t, got.CompletionPatterns, 5)
	assert.Equal(t, 40, got.DataQuality)
}

func TestConsultationWisdom(t *testing.T) {
	svc, _, _, ref := newService()
	ref.consultations = []domain.Consultation{
		{MarcusResponse: "short"},
		{MarcusResponse: "Mexico assembly cuts landed cost by a third"},
	}
	got := svc.Consultations(context.Background())
	assert.Equal(t, 2, got.RelevantInsights)
	assert.Equal(t, []string{"Mexico assembly cuts landed cost by a third"}, got.Wisdom)
	assert.Equal(t, 80, got.DataQuality)

	ref.consultations = nil
	got = svc.Consultations(context.Background())
	assert.Equal(t, 70, got.TotalConsultations)
	assert.Len(t, got.Wisdom, 3)
}

func TestPatternsAverage(t *testing.T) {
	svc, _, _, ref := newService()
	ref.patterns = []domain.PatternRecord{{SuccessRate: 90}, {SuccessRate: 0}, {SuccessRate: 81}}
	got := svc.Patterns(context.Background())
	assert.Equal(t, 86.0, got.AverageSuccessRate)
	assert.Equal(t, 85, got.DataQuality)
}

func TestSavePageDataRoundTrip(t *testing.T) {
	svc, sessions, events, _ := newService()
	ctx := context.Background()
	p := profile.UserProfile{
		CompanyName:            "Søren & Daughters, Ltd.",
		BusinessType:           "Electronics",
		PrimarySupplierCountry: "China",
		ImportVolume:           "$1M - $5M",
		TimelinePriority:       profile.PriorityCost,
	}
	raw := json.RawMessage(`{"companyName":"Søren & Daughters, Ltd.","businessType":"Electronics"}`)

	res := svc.SavePageData(ctx, "", "foundation", p, raw)
	require.True(t, res.Saved, res.Error)
	assert.True(t, res.NewSession)
	assert.Equal(t, session.NewID(p.CompanyName, now), res.SessionID)
	assert.Contains(t, res.Patterns, "triangle_routing_candidate")

	rec, err := sessions.Get(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, p.CompanyName, rec.Profile.CompanyName)
	assert.Equal(t, p.BusinessType, rec.Profile.BusinessType)
	assert.True(t, rec.Completed[cascade.StageFoundation])

	// next stage only sends product data; the profile survives
	res2 := svc.SavePageData(ctx, res.SessionID, "product", profile.UserProfile{HSCode: "847130"}, nil)
	require.True(t, res2.Saved)
	assert.False(t, res2.NewSession)
	rec, err = sessions.Get(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, p.CompanyName, rec.Profile.CompanyName)
	assert.Equal(t, "847130", rec.Profile.HSCode)
	assert.True(t, rec.Completed[cascade.StageProduct])

	require.Len(t, events.events, 2)
	assert.Equal(t, EventUserPageAnalysis, events.events[0].Type)
	assert.Equal(t, "Electronics company analyzing China suppliers on foundation page", events.events[0].Summary)
}

func TestSavePageDataStoreDown(t *testing.T) {
	svc, sessions, _, _ := newService()
	sessions.err = errDown

	res := svc.SavePageData(context.Background(), "session_x_1", "foundation", profile.UserProfile{}, nil)
	assert.False(t, res.Saved)
	assert.Equal(t, "session_x_1", res.SessionID)
	assert.Contains(t, res.Error, "connection refused")
}

func TestFoundationConfidence(t *testing.T) {
	svc, _, _, ref := newService()
	ref.comtrade = []domain.ComtradeRecord{{BaseTariffRate: 20}}
	ref.comtradeTotal = 17500
	ref.consultations = []domain.Consultation{{MarcusResponse: "Use Mexico for final assembly to qualify"}}
	ref.patterns = []domain.PatternRecord{{SuccessRate: 88}}

	out := svc.Foundation(context.Background(), "", profile.UserProfile{CompanyName: "Acme", BusinessType: "Electronics", PrimarySupplierCountry: "CN"}, nil)
	// comtrade 90, workflow 85 (this session matches), marcus 80, hindsight 85
	assert.Equal(t, 100, out.Summary.ConfidenceScore)
	assert.Equal(t, 4, out.Summary.SourcesAvailable)
	assert.Equal(t, "GROWING", out.Summary.NetworkGrowth)
	assert.True(t, out.MarketUpdated)
	assert.False(t, out.AllFellBack)
	assert.Equal(t, 17500+1+1+1, out.Summary.TotalRecords)
}

func TestFoundationStoreDown(t *testing.T) {
	svc, sessions, _, ref := newService()
	sessions.err = errDown
	ref.err = errDown

	out := svc.Foundation(context.Background(), "", profile.UserProfile{BusinessType: "Electronics"}, nil)
	assert.True(t, out.AllFellBack)
	assert.Equal(t, 60, out.Summary.ConfidenceScore)
	assert.Equal(t, 0, out.Summary.SourcesAvailable)
	assert.Equal(t, "STABLE", out.Summary.NetworkGrowth)
	assert.Equal(t, 17500+205+70+33, out.Summary.TotalRecords)
}

func TestConfidencePartialSources(t *testing.T) {
	score, n := Confidence(domain.StableIntel{
		Comtrade:  domain.ComtradeIntel{DataQuality: 90},
		Workflow:  domain.WorkflowIntel{DataQuality: 60},
		Marcus:    domain.ConsultationIntel{DataQuality: 50},
		Hindsight: domain.PatternIntel{DataQuality: 30},
	})
	// 60 + 22.5 + 15 = 97.5
	assert.Equal(t, 98, score)
	assert.Equal(t, 2, n)
}

func TestCacheAPIResponse(t *testing.T) {
	svc, _, _, _ := newService()
	ok := svc.CacheAPIResponse(context.Background(), "comtrade", map[string]any{"hs": "8471"}, map[string]int{"rows": 3})
	require.True(t, ok)
	m := svc.Market.(*fakeMarket)
	require.Len(t, m.cache, 1)
	assert.Equal(t, `comtrade_{"hs":"8471"}`, m.cache[0].CacheKey)
	assert.Equal(t, now.Add(time.Hour), m.cache[0].ExpiresAt)
}
