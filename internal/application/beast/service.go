package beast

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/triangle-intel/internal/application"
	"github.com/bryanwahyu/triangle-intel/internal/domain/goldmine"
	"github.com/bryanwahyu/triangle-intel/internal/domain/intelligence"
	"github.com/bryanwahyu/triangle-intel/internal/domain/outbox"
	"github.com/bryanwahyu/triangle-intel/internal/domain/profile"
	"github.com/bryanwahyu/triangle-intel/internal/domain/session"
)

// SessionSource is the slice of the session store the similarity analyzer reads.
type SessionSource interface {
	Recent(ctx context.Context, limit int) ([]session.Record, error)
}

// PatternSource is the slice of the reference store the patterns analyzer reads.
type PatternSource interface {
	RecentPatterns(ctx context.Context, limit int) ([]goldmine.PatternRecord, int, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, payload any) error
}

type Recorder interface {
	ObserveActivation(status string, d time.Duration)
	AnalyzerFallback(analyzer string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveActivation(string, time.Duration) {}
func (nopRecorder) AnalyzerFallback(string)                 {}

type Config struct {
	AnalyzerTimeout      time.Duration
	CacheTTL             time.Duration
	BatchSize            int
	ConfidenceMultiplier float64
	NetworkGrowthCap     float64
	DisableShipping      bool
}

const (
	defaultAnalyzerTimeout = 500 * time.Millisecond
	defaultCacheTTL        = 10 * time.Minute
	defaultBatchSize       = 10
	defaultGrowthCap       = 2.5

	cacheThreshold = 70
	saveThreshold  = 75
	maxCompound    = 3
)

// Service is the beast master orchestrator. Safe for concurrent use.
type Service struct {
	Sessions SessionSource
	Patterns PatternSource
	Outbox   Enqueuer
	Cache    application.Cache
	Clock    application.Clock
	Logger   *zap.Logger
	Metrics  Recorder
	Config   Config
}

func (s *Service) cfg() Config {
	c := s.Config
	if c.AnalyzerTimeout <= 0 {
		c.AnalyzerTimeout = defaultAnalyzerTimeout
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaultCacheTTL
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.ConfidenceMultiplier == 0 {
		c.ConfidenceMultiplier = 1
	}
	if c.NetworkGrowthCap <= 0 {
		c.NetworkGrowthCap = defaultGrowthCap
	}
	return c
}

func (s *Service) cache() application.Cache {
	if s.Cache == nil {
		return application.NopCache{}
	}
	return s.Cache
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

func (s *Service) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Service) metrics() Recorder {
	if s.Metrics == nil {
		return nopRecorder{}
	}
	return s.Metrics
}

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// CacheKey: beast_{businessType}_{country}_{volume}_{page}, lower-case
func CacheKey(p profile.UserProfile, page string) string {
	k := fmt.Sprintf("beast_%s_%s_%s_%s", p.BusinessType, p.PrimarySupplierCountry, p.ImportVolume, page)
	return strings.ToLower(unsafeKeyChars.ReplaceAllString(k, "_"))
}

// Activate runs every analyzer and merges the results. It never returns an
// error; failures end up as per-analyzer fallbacks or the emergency payload.
func (s *Service) Activate(ctx context.Context, p profile.UserProfile, page string) (act intelligence.Activation) {
	start := time.Now()
	now := s.clock().Now()
	defer func() {
		if r := recover(); r != nil {
			s.log().Error("beast: orchestration panic", zap.Any("panic", r), zap.String("page", page))
			act = Emergency(p, page, now)
		}
		elapsed := time.Since(start)
		act.Performance.ProcessingTimeMS = elapsed.Milliseconds()
		s.metrics().ObserveActivation(string(act.Status), elapsed)
	}()

	if err := ctx.Err(); err != nil {
		s.log().Warn("beast: context done before activation", zap.Error(err))
		return Emergency(p, page, now)
	}

	key := CacheKey(p, page)
	var cached intelligence.Activation
	if hit, err := s.cache().Get(ctx, key, &cached); err == nil && hit {
		cached.Status = intelligence.StatusSuccessCached
		cached.Performance.Cached = true
		return cached
	}

	b, fell := s.runBeasts(ctx, p, now)
	act = s.assemble(p, page, b, now)
	act.Performance.Fallbacks = fell

	// fallback tidak di-cache, sama seperti reader goldmine
	conf := act.Unified.Summary.Confidence
	if conf > cacheThreshold && len(fell) == 0 {
		if err := s.cache().Set(ctx, key, act, s.cfg().CacheTTL); err != nil {
			s.log().Warn("beast: cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	if conf > saveThreshold {
		s.enqueuePatternSave(ctx, p, page, act, time.Since(start))
	}
	return act
}

// runBeast menjalankan satu analyzer dengan timeout sendiri; error, timeout
// atau panic diganti fallback statis
func runBeast[T any](ctx context.Context, s *Service, name string, fallback func() T, fn func(context.Context) (T, error)) (T, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg().AnalyzerTimeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		ch <- result{v: v, err: err}
	}()

	var err error
	select {
	case r := <-ch:
		if r.err == nil {
			return r.v, false
		}
		err = r.err
	case <-ctx.Done():
		err = ctx.Err()
	}
	s.log().Warn("beast: analyzer fell back", zap.String("analyzer", name), zap.Error(err))
	s.metrics().AnalyzerFallback(name)
	return fallback(), true
}

func (s *Service) runBeasts(ctx context.Context, p profile.UserProfile, now time.Time) (intelligence.Beasts, []string) {
	var (
		b    intelligence.Beasts
		mu   sync.Mutex
		fell []string
		g    errgroup.Group
	)
	note := func(name string, fellBack bool) {
		if !fellBack {
			return
		}
		mu.Lock()
		fell = append(fell, name)
		mu.Unlock()
	}

	g.Go(func() error {
		v, fb := runBeast(ctx, s, "similarity", intelligence.FallbackSimilarity, func(ctx context.Context) (intelligence.Similarity, error) {
			return s.similarity(ctx, p)
		})
		b.Similarity = v
		note("similarity", fb)
		return nil
	})
	g.Go(func() error {
		v, fb := runBeast(ctx, s, "seasonal", intelligence.FallbackSeasonal, func(context.Context) (intelligence.Seasonal, error) {
			return seasonal(now), nil
		})
		b.Seasonal = v
		note("seasonal", fb)
		return nil
	})
	g.Go(func() error {
		v, fb := runBeast(ctx, s, "market", intelligence.FallbackMarket, func(context.Context) (intelligence.Market, error) {
			return market(p), nil
		})
		b.Market = v
		note("market", fb)
		return nil
	})
	g.Go(func() error {
		v, fb := runBeast(ctx, s, "patterns", intelligence.FallbackPatterns, func(ctx context.Context) (intelligence.Patterns, error) {
			return s.patterns(ctx, p)
		})
		b.Patterns = v
		note("patterns", fb)
		return nil
	})
	if !s.cfg().DisableShipping {
		g.Go(func() error {
			v, fb := runBeast(ctx, s, "shipping", intelligence.FallbackShipping, func(context.Context) (intelligence.Shipping, error) {
				return shipping(now), nil
			})
			b.Shipping = &v
			note("shipping", fb)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(fell)
	b.Alerts = alerts(b)
	return b, fell
}

func (s *Service) assemble(p profile.UserProfile, page string, b intelligence.Beasts, now time.Time) intelligence.Activation {
	cfg := s.cfg()
	top := topInsights(b)
	all := compound(b, cfg.NetworkGrowthCap)
	sortByWeight(all)
	kept := all
	if len(kept) > maxCompound {
		kept = kept[:maxCompound]
	}
	trends := b.Market.Trends
	if trends == nil {
		trends = []intelligence.Trend{}
	}
	pats := b.Patterns.Patterns
	if pats == nil {
		pats = []intelligence.Pattern{}
	}

	u := intelligence.Unified{
		Summary: intelligence.Summary{
			BusinessType:  p.BusinessType,
			CurrentPage:   page,
			TotalInsights: len(top) + len(kept),
			Confidence:    confidence(b, cfg.ConfidenceMultiplier),
			DataQuality:   dataQuality(b),
		},
		Insights: intelligence.InsightGroups{
			Top:      top,
			Compound: kept,
			Market:   trends,
			Patterns: pats,
		},
		Recommendations: recommendations(b),
		Alerts:          b.Alerts.All(),
		GeneratedAt:     now,
	}

	beasts := 4
	if b.Shipping != nil {
		beasts++
	}
	return intelligence.Activation{
		Status:        intelligence.StatusSuccess,
		Beasts:        b,
		Unified:       u,
		CompoundCount: len(all),
		ActivatedAt:   now,
		Performance: intelligence.Performance{
			TotalBeasts:         beasts,
			IntelligenceQuality: intelligenceQuality(u),
		},
	}
}

func (s *Service) enqueuePatternSave(ctx context.Context, p profile.UserProfile, page string, act intelligence.Activation, elapsed time.Duration) {
	if s.Outbox == nil {
		return
	}
	payload := intelligence.PatternSave{
		SessionID:           session.NewID(p.CompanyName, act.ActivatedAt),
		CompanyName:         p.CompanyName,
		BusinessType:        p.BusinessType,
		SupplierCountry:     p.PrimarySupplierCountry,
		ImportVolume:        p.ImportVolume,
		Page:                page,
		Confidence:          act.Unified.Summary.Confidence,
		CompoundInsights:    act.CompoundCount,
		TopInsights:         len(act.Unified.Insights.Top),
		TotalBeasts:         act.Performance.TotalBeasts,
		IntelligenceQuality: act.Performance.IntelligenceQuality,
		ProcessingTimeMS:    elapsed.Milliseconds(),
		ActivatedAt:         act.ActivatedAt,
	}
	if err := s.Outbox.Enqueue(ctx, outbox.KindPatternSave, payload); err != nil {
		s.log().Warn("beast: enqueue pattern save failed", zap.String("session_id", payload.SessionID), zap.Error(err))
	}
}
