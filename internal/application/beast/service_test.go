package beast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/triangle-intel/internal/application"
	"github.com/bryanwahyu/triangle-intel/internal/domain/goldmine"
	"github.com/bryanwahyu/triangle-intel/internal/domain/intelligence"
	"github.com/bryanwahyu/triangle-intel/internal/domain/outbox"
	"github.com/bryanwahyu/triangle-intel/internal/domain/profile"
	"github.com/bryanwahyu/triangle-intel/internal/domain/session"
)

var (
	q4   = time.Date(2025, time.November, 10, 9, 0, 0, 0, time.UTC)
	q1   = time.Date(2025, time.February, 3, 9, 0, 0, 0, time.UTC)
	june = time.Date(2025, time.June, 15, 9, 0, 0, 0, time.UTC)
)

type fakeSessions struct {
	recs  []session.Record
	err   error
	block bool
}

func (f *fakeSessions) Recent(ctx context.Context, limit int) ([]session.Record, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	if len(f.recs) > limit {
		return f.recs[:limit], nil
	}
	return f.recs, nil
}

type fakePatterns struct {
	rows      []goldmine.PatternRecord
	err       error
	panics    bool
	lastLimit int
}

func (f *fakePatterns) RecentPatterns(_ context.Context, limit int) ([]goldmine.PatternRecord, int, error) {
	if f.panics {
		panic("hindsight table exploded")
	}
	f.lastLimit = limit
	return f.rows, len(f.rows), f.err
}

type fakeOutbox struct {
	mu       sync.Mutex
	kinds    []string
	payloads []any
}

func (f *fakeOutbox) Enqueue(_ context.Context, kind string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, kind)
	f.payloads = append(f.payloads, payload)
	return nil
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	b, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (c *memCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = b
	c.mu.Unlock()
	return nil
}

func (c *memCache) GetOrLoad(ctx context.Context, key string, dest any, ttl time.Duration, load application.Loader) error {
	if hit, _ := c.Get(ctx, key, dest); hit {
		return nil
	}
	v, err := load(ctx)
	if err != nil {
		return err
	}
	_ = c.Set(ctx, key, v, ttl)
	return application.CopyJSON(v, dest)
}

func chinaSessions() *fakeSessions {
	return &fakeSessions{recs: []session.Record{
		{SessionID: "s1", Profile: profile.UserProfile{CompanyName: "Acme", PrimarySupplierCountry: "China"}},
		{SessionID: "s2", Profile: profile.UserProfile{CompanyName: "Beta", PrimarySupplierCountry: "CN"}},
		{SessionID: "s3", Profile: profile.UserProfile{CompanyName: "Gamma", PrimarySupplierCountry: "china"}},
		{SessionID: "s4", Profile: profile.UserProfile{CompanyName: "Delta", PrimarySupplierCountry: "Mexico"}},
		{SessionID: "s5", Profile: profile.UserProfile{CompanyName: "Empty"}},
	}}
}

func electronicsPatterns() *fakePatterns {
	return &fakePatterns{rows: []goldmine.PatternRecord{
		{PatternType: "Mexico assembly", Outcome: "32% landed cost reduction", BusinessContext: "Electronics importer"},
		{BusinessContext: ""},
		{PatternType: "Textile nearshoring", BusinessContext: "Apparel"},
	}}
}

func electronics() profile.UserProfile {
	return profile.UserProfile{
		CompanyName:            "Acme Electronics",
		BusinessType:           "Electronics",
		PrimarySupplierCountry: "China",
		ImportVolume:           "$1M - $5M",
	}
}

func newService(clock time.Time) (*Service, *fakeOutbox, *memCache) {
	ob := &fakeOutbox{}
	cache := newMemCache()
	return &Service{
		Sessions: chinaSessions(),
		Patterns: electronicsPatterns(),
		Outbox:   ob,
		Cache:    cache,
		Clock:    application.FixedClock{T: clock},
	}, ob, cache
}

func TestActivateFullSignalQ4(t *testing.T) {
	s, ob, cache := newService(q4)

	act := s.Activate(context.Background(), electronics(), "foundation")

	assert.Equal(t, intelligence.StatusSuccess, act.Status)
	assert.Empty(t, act.Performance.Fallbacks)
	assert.Equal(t, 5, act.Performance.TotalBeasts)

	assert.Len(t, act.Beasts.Similarity.Matches, 3)
	assert.Equal(t, 87, act.Beasts.Similarity.SuccessRate)
	assert.Equal(t, "Q4_HEAVY", act.Beasts.Seasonal.CurrentPattern)
	assert.Equal(t, 0.85, act.Beasts.Market.Volatility)
	assert.Equal(t, "HIGH", act.Beasts.Market.RiskLevel)
	require.Len(t, act.Beasts.Patterns.Patterns, 2)
	assert.Equal(t, "Mexico assembly", act.Beasts.Patterns.Patterns[0].Strategy)
	assert.Equal(t, "Triangle routing", act.Beasts.Patterns.Patterns[1].Strategy)
	assert.Equal(t, "Significant cost savings achieved", act.Beasts.Patterns.Patterns[1].Outcome)
	require.NotNil(t, act.Beasts.Shipping)
	assert.Equal(t, "HIGH", act.Beasts.Shipping.ConstraintLevel)

	sum := act.Unified.Summary
	assert.Equal(t, 100, sum.Confidence)
	assert.Equal(t, 83, sum.DataQuality)
	assert.Equal(t, 100, act.Performance.IntelligenceQuality)

	top := act.Unified.Insights.Top
	require.Len(t, top, 3)
	assert.Equal(t, "3 similar companies found with $245K+ savings during Q4_HEAVY season", top[0].Insight)
	assert.Equal(t, "Market volatility: 85% + HIGH shipping constraints - Immediate triangle routing recommended", top[1].Insight)
	assert.Equal(t, "2 proven success patterns identified with 85% success rate", top[2].Insight)

	assert.Equal(t, 6, act.CompoundCount)
	comp := act.Unified.Insights.Compound
	require.Len(t, comp, 3)
	assert.Equal(t, "perfect_storm", comp[0].Type)
	assert.Equal(t, 98, comp[0].Confidence)
	assert.Equal(t, "Perfect Storm: High success rate + peak season + market volatility + shipping capacity crisis detected", comp[0].Insight)
	assert.Equal(t, "$300K-$750K", comp[0].PotentialSavings)
	assert.Equal(t, "shipping_crisis", comp[1].Type)
	assert.Equal(t, "institutional_learning", comp[2].Type)
	assert.Equal(t, "Institutional memory shows 3 similar companies achieved 32% landed cost reduction", comp[2].Insight)

	recs := act.Unified.Recommendations
	require.Len(t, recs, 4)
	assert.Equal(t, "Triangle routing via Mexico", recs[0].Action)
	assert.Equal(t, "Lock in USMCA rates now", recs[1].Action)
	assert.Equal(t, "Accelerate implementation before year-end", recs[2].Action)
	assert.Equal(t, "SHIPPING_CAPACITY", recs[3].Category)

	types := map[string]bool{}
	for _, a := range act.Unified.Alerts {
		types[a.Type] = true
	}
	assert.True(t, types["MARKET_VOLATILITY"])
	assert.True(t, types["SHIPPING_CAPACITY"])
	assert.True(t, types["SEASONAL_TIMING"])
	assert.True(t, types["PERFECT_STORM_COMPOUND"])

	require.Len(t, ob.kinds, 1)
	assert.Equal(t, outbox.KindPatternSave, ob.kinds[0])
	ps, ok := ob.payloads[0].(intelligence.PatternSave)
	require.True(t, ok)
	assert.Equal(t, "Electronics", ps.BusinessType)
	assert.Equal(t, 6, ps.CompoundInsights)
	assert.Equal(t, session.NewID("Acme Electronics", q4), ps.SessionID)

	assert.Len(t, cache.data, 1)
}

func TestActivateServedFromCache(t *testing.T) {
	s, ob, _ := newService(q4)
	first := s.Activate(context.Background(), electronics(), "foundation")
	second := s.Activate(context.Background(), electronics(), "foundation")

	assert.Equal(t, intelligence.StatusSuccess, first.Status)
	assert.Equal(t, intelligence.StatusSuccessCached, second.Status)
	assert.True(t, second.Performance.Cached)
	assert.Equal(t, first.Unified.Summary, second.Unified.Summary)
	assert.Len(t, ob.kinds, 1, "cached activations are not saved again")
}

func TestActivateCancelledContextIsEmergency(t *testing.T) {
	s, ob, _ := newService(q4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	act := s.Activate(ctx, electronics(), "routing")
	assert.Equal(t, intelligence.StatusFallback, act.Status)
	assert.Equal(t, 65, act.Unified.Summary.Confidence)
	assert.Equal(t, 55, act.Unified.Summary.DataQuality)
	assert.Empty(t, ob.kinds)
}

func TestAnalyzerErrorFallsBackInIsolation(t *testing.T) {
	s, _, _ := newService(q4)
	s.Sessions = &fakeSessions{err: errors.New("connection refused")}

	act := s.Activate(context.Background(), electronics(), "foundation")
	assert.Equal(t, intelligence.StatusSuccess, act.Status)
	assert.Equal(t, []string{"similarity"}, act.Performance.Fallbacks)
	assert.Equal(t, intelligence.FallbackSimilarity(), act.Beasts.Similarity)
	assert.Equal(t, "Q4_HEAVY", act.Beasts.Seasonal.CurrentPattern)
	assert.Len(t, act.Beasts.Patterns.Patterns, 2)
	assert.Equal(t, 92, act.Unified.Summary.Confidence)
}

func TestActivationWithFallbacksNotCached(t *testing.T) {
	s, _, cache := newService(q4)
	s.Sessions = &fakeSessions{err: errors.New("connection refused")}

	first := s.Activate(context.Background(), electronics(), "foundation")
	require.Greater(t, first.Unified.Summary.Confidence, 70)
	assert.Empty(t, cache.data)

	s.Sessions = chinaSessions()
	second := s.Activate(context.Background(), electronics(), "foundation")
	assert.Equal(t, intelligence.StatusSuccess, second.Status)
	assert.Empty(t, second.Performance.Fallbacks)
	assert.Len(t, second.Beasts.Similarity.Matches, 3)
	assert.Len(t, cache.data, 1)
}

func TestDataQualityIgnoresPatterns(t *testing.T) {
	b := intelligence.Beasts{
		Similarity: intelligence.Similarity{DataQuality: 90},
		Seasonal:   intelligence.Seasonal{DataQuality: 80},
		Market:     intelligence.Market{DataQuality: 70},
		Patterns:   intelligence.Patterns{DataQuality: 10},
	}
	assert.Equal(t, 80, dataQuality(b))

	b.Shipping = &intelligence.Shipping{DataQuality: 40}
	assert.Equal(t, 70, dataQuality(b))
}

func TestAnalyzerTimeoutFallsBack(t *testing.T) {
	s, _, _ := newService(q4)
	s.Sessions = &fakeSessions{block: true}
	s.Config.AnalyzerTimeout = 20 * time.Millisecond

	start := time.Now()
	act := s.Activate(context.Background(), electronics(), "foundation")
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, intelligence.StatusSuccess, act.Status)
	assert.Equal(t, []string{"similarity"}, act.Performance.Fallbacks)
}

func TestAnalyzerPanicFallsBack(t *testing.T) {
	s, _, _ := newService(q4)
	s.Patterns = &fakePatterns{panics: true}

	act := s.Activate(context.Background(), electronics(), "foundation")
	assert.Equal(t, intelligence.StatusSuccess, act.Status)
	assert.Equal(t, []string{"patterns"}, act.Performance.Fallbacks)
	assert.Equal(t, intelligence.FallbackPatterns(), act.Beasts.Patterns)
}

func TestMissingSourcesFallBack(t *testing.T) {
	s := &Service{Clock: application.FixedClock{T: q1}}
	act := s.Activate(context.Background(), electronics(), "product")
	assert.Equal(t, []string{"patterns", "similarity"}, act.Performance.Fallbacks)
	assert.Equal(t, intelligence.StatusSuccess, act.Status)
}

func TestLowConfidenceNotSaved(t *testing.T) {
	s, ob, cache := newService(q1)
	s.Sessions = &fakeSessions{err: errors.New("down")}
	s.Patterns = &fakePatterns{err: errors.New("down")}
	s.Config.DisableShipping = true

	p := electronics()
	p.PrimarySupplierCountry = "Mexico"
	act := s.Activate(context.Background(), p, "foundation")

	// 60 + seasonal 7 + market 7, tanpa alert
	assert.Equal(t, 74, act.Unified.Summary.Confidence)
	assert.Nil(t, act.Beasts.Shipping)
	assert.Equal(t, 4, act.Performance.TotalBeasts)
	assert.Empty(t, ob.kinds)
	assert.Empty(t, cache.data, "activations with fallbacks are not cached")
}

func TestPatternsLimitFromBatch(t *testing.T) {
	s, _, _ := newService(q1)
	fp := electronicsPatterns()
	s.Patterns = fp
	s.Config.BatchSize = 4
	s.Activate(context.Background(), electronics(), "foundation")
	assert.Equal(t, 2, fp.lastLimit)
}

func TestConfidenceStaysInBounds(t *testing.T) {
	ship := intelligence.Shipping{ConstraintLevel: "HIGH"}
	b := intelligence.Beasts{
		Similarity: intelligence.Similarity{Matches: []intelligence.Match{{SessionID: "x"}}},
		Seasonal:   intelligence.Seasonal{CurrentPattern: "Q4_HEAVY"},
		Market:     intelligence.Market{Volatility: 0.9},
		Patterns:   intelligence.Patterns{Patterns: []intelligence.Pattern{{Strategy: "s"}}},
		Shipping:   &ship,
		Alerts:     intelligence.Alerts{Priority: []intelligence.Alert{{Type: "x"}}},
	}
	assert.Equal(t, 100, confidence(b, 1))
	assert.Equal(t, 100, confidence(b, 10))
	assert.Equal(t, 0, confidence(b, -10))
	assert.Equal(t, 60, confidence(intelligence.Beasts{}, 1))
}

func TestNetworkEffectsRule(t *testing.T) {
	matches := make([]intelligence.Match, 40)
	pats := make([]intelligence.Pattern, 3)
	b := intelligence.Beasts{
		Similarity: intelligence.Similarity{Matches: matches, TotalSimilarCompanies: 40},
		Patterns:   intelligence.Patterns{Patterns: pats},
	}
	// (240 + 40 + 30) / 240 = 1.29
	var found *intelligence.Insight
	for _, in := range compound(b, 2.5) {
		if in.Type == "network_effects" {
			in := in
			found = &in
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "Network intelligence growing: 29% more data since similar companies analyzed", found.Insight)
	assert.InDelta(t, 1.2917, found.NetworkMultiplier, 0.001)

	for _, in := range compound(b, 1.1) {
		assert.NotEqual(t, "network_effects", in.Type)
	}
}

func TestSeasonal(t *testing.T) {
	cases := []struct {
		at      time.Time
		pattern string
		status  string
	}{
		{q4, "Q4_HEAVY", "PEAK_SEASON"},
		{june, "SUMMER_PREPARATION", "PLANNING_SEASON"},
		{q1, "STANDARD_OPTIMIZATION", "NORMAL_SEASON"},
	}
	for _, tc := range cases {
		got := seasonal(tc.at)
		assert.Equal(t, tc.pattern, got.CurrentPattern)
		assert.Equal(t, tc.status, got.Status)
		assert.Equal(t, 85, got.DataQuality)
	}
}

func TestShipping(t *testing.T) {
	assert.Equal(t, "HIGH", shipping(q4).ConstraintLevel)
	assert.Equal(t, "MEDIUM", shipping(time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)).ConstraintLevel)
	low := shipping(q1)
	assert.Equal(t, "LOW", low.ConstraintLevel)
	assert.Equal(t, 70, low.Utilization)
	assert.Equal(t, []string{"Q1 shipping capacity: LOW constraints detected"}, low.Insights)
}

func TestMarketVolatility(t *testing.T) {
	assert.Equal(t, 0.85, market(profile.UserProfile{}).Volatility)
	assert.Equal(t, 0.25, market(profile.UserProfile{PrimarySupplierCountry: "Mexico"}).Volatility)
	br := market(profile.UserProfile{PrimarySupplierCountry: "Brazil"})
	assert.Equal(t, 0.60, br.Volatility)
	assert.Equal(t, "MODERATE", br.RiskLevel)
	assert.Equal(t, "Monitor and plan transition", br.Recommendation)
}

func TestCacheKey(t *testing.T) {
	p := profile.UserProfile{BusinessType: "Electronics & Tech", PrimarySupplierCountry: "China", ImportVolume: "$1M - $5M"}
	assert.Equal(t, "beast_electronics___tech_china__1m____5m_foundation", CacheKey(p, "foundation"))
}

func TestEmergencyByIndustry(t *testing.T) {
	act := Emergency(profile.UserProfile{BusinessType: "Electronics"}, "foundation", q1)
	assert.Equal(t, intelligence.StatusFallback, act.Status)
	assert.Equal(t, "Primary intelligence systems unavailable", act.Unified.Summary.FallbackReason)
	require.Len(t, act.Unified.Insights.Top, 3)
	assert.Equal(t, 85, act.Unified.Insights.Top[1].Confidence)
	assert.Equal(t, "Route through Mexico assembly facilities", act.Unified.Recommendations[0].Action)
	assert.Equal(t, 60, act.Performance.IntelligenceQuality)
	assert.Equal(t, 0, act.Performance.TotalBeasts)

	mfg := Emergency(profile.UserProfile{BusinessType: "Manufacturing"}, "foundation", q1)
	assert.Equal(t, "Establish Mexico supply chain for key components", mfg.Unified.Recommendations[0].Action)

	other := Emergency(profile.UserProfile{}, "foundation", q1)
	assert.Equal(t, "General", other.Unified.Summary.BusinessType)
	assert.Len(t, other.Unified.Insights.Top, 2)
	assert.Equal(t, "$100K-$300K annually", other.Unified.Recommendations[0].EstimatedSavings)
	assert.Equal(t, "Using cached intelligence - live data temporarily unavailable", other.Unified.Alerts[0].Message)
}
