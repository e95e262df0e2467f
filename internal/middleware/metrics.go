package middleware

import (
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
)

// HTTPObserver is implemented by the Prometheus registry.
type HTTPObserver interface {
	RequestStarted()
	RequestFinished()
	ObserveRequest(route, method string, status int, d time.Duration)
}

// MetricsMiddleware labels requests by chi route pattern, not raw path.
func MetricsMiddleware(obs HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			obs.RequestStarted()
			defer obs.RequestFinished()

			start := time.Now()
			wrapped := wrapWriter(w)
			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					route = p
				}
			}
			obs.ObserveRequest(route, r.Method, wrapped.statusCode, time.Since(start))
		})
	}
}

// MemoryStats is the runtime snapshot behind GET /api/memory-status.
type MemoryStats struct {
	HeapAllocMB float64 `json:"heapAllocMB"`
	HeapSysMB   float64 `json:"heapSysMB"`
	SysMB       float64 `json:"sysMB"`
	Goroutines  int     `json:"goroutines"`
	NumGC       uint32  `json:"numGC"`
	BudgetMB    int     `json:"budgetMB"`
}

type MemoryReport struct {
	Success         bool        `json:"success"`
	Memory          MemoryStats `json:"memory"`
	HealthScore     int         `json:"healthScore"`
	Status          string      `json:"status"`
	Recommendations []string    `json:"recommendations"`
	UptimeSeconds   float64     `json:"uptimeSeconds"`
	Timestamp       time.Time   `json:"timestamp"`
}

const (
	goroutineSoftLimit = 500
	defaultBudgetMB    = 512
)

var memoryRecommendations = []string{
	"Reuse pooled database connections instead of opening new ones",
	"Keep activation results in the shared cache rather than per request",
	"Bound every analyzer call with a context timeout",
}

// HealthScore starts at 100, loses up to 70 points for heap usage against
// budget and up to 30 for goroutines above the soft limit.
func HealthScore(m MemoryStats) int {
	budget := m.BudgetMB
	if budget <= 0 {
		budget = defaultBudgetMB
	}
	ratio := m.HeapAllocMB / float64(budget)
	if ratio > 1 {
		ratio = 1
	}
	score := 100 - int(ratio*70)
	if m.Goroutines > goroutineSoftLimit {
		over := float64(m.Goroutines-goroutineSoftLimit) / goroutineSoftLimit
		if over > 1 {
			over = 1
		}
		score -= int(over * 30)
	}
	if score < 0 {
		return 0
	}
	return score
}

func statusLabel(score int) string {
	switch {
	case score >= 80:
		return "HEALTHY"
	case score >= 50:
		return "WARNING"
	}
	return "CRITICAL"
}

func readMemory(budgetMB int) MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	const mb = 1024 * 1024
	return MemoryStats{
		HeapAllocMB: float64(m.HeapAlloc) / mb,
		HeapSysMB:   float64(m.HeapSys) / mb,
		SysMB:       float64(m.Sys) / mb,
		Goroutines:  runtime.NumGoroutine(),
		NumGC:       m.NumGC,
		BudgetMB:    budgetMB,
	}
}

// MemoryStatusHandler serves the runtime memory report.
func MemoryStatusHandler(budgetMB int) http.HandlerFunc {
	started := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		stats := readMemory(budgetMB)
		score := HealthScore(stats)
		writeJSON(w, http.StatusOK, MemoryReport{
			Success:         true,
			Memory:          stats,
			HealthScore:     score,
			Status:          statusLabel(score),
			Recommendations: memoryRecommendations,
			UptimeSeconds:   time.Since(started).Seconds(),
			Timestamp:       time.Now().UTC(),
		})
	}
}
