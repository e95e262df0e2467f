package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/triangle-intel/internal/application/dashboard"
	"github.com/bryanwahyu/triangle-intel/internal/application/journey"
	"github.com/bryanwahyu/triangle-intel/internal/application/servicerequests"
	"github.com/bryanwahyu/triangle-intel/internal/domain/intakeform"
	"github.com/bryanwahyu/triangle-intel/internal/domain/profile"
	"github.com/bryanwahyu/triangle-intel/internal/domain/report"
	"github.com/bryanwahyu/triangle-intel/internal/domain/servicerequest"
	"github.com/bryanwahyu/triangle-intel/internal/middleware"
)

const maxBodyBytes = 1 << 20

type PageSubmitter interface {
	Submit(ctx context.Context, req journey.Request, p profile.UserProfile) journey.Response
}

type DashboardHub interface {
	Intelligence(ctx context.Context, req dashboard.Request) dashboard.Response
}

type ServiceRequests interface {
	Create(ctx context.Context, in servicerequests.CreateInput, meta servicerequests.ClientMeta) (servicerequests.CreateResult, error)
	List(ctx context.Context, assignedTo string) servicerequests.ListResult
	Update(ctx context.Context, body map[string]any) (servicerequests.UpdateResult, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, req report.Request) (*report.Report, error)
}

type FormCatalog interface {
	ByService(key string) (*intakeform.Form, bool)
	All() map[string]intakeform.Form
}

// Observer is implemented by metrics.Registry.
type Observer interface {
	middleware.HTTPObserver
	ReportGenerated(kind, generator string)
}

type Deps struct {
	Journey   PageSubmitter
	Dashboard DashboardHub
	Requests  ServiceRequests
	Reports   ReportGenerator
	Forms     FormCatalog

	Logger         *zap.Logger
	Metrics        Observer
	MetricsHandler http.Handler
	RateLimiter    *middleware.RateLimiter

	AdminKeys      map[string]string
	CORSOrigins    []string
	MemoryBudgetMB int
	Health         map[string]middleware.HealthChecker
	Ready          map[string]middleware.HealthChecker
}

type Router struct {
	Deps
}

func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	r := &Router{Deps: d}
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(middleware.AccessLog(d.Logger))
	if d.Metrics != nil {
		mux.Use(middleware.MetricsMiddleware(d.Metrics))
	}
	mux.Use(chimw.Recoverer)
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(d.Health))
	mux.Get("/ready", middleware.ReadinessHandler(d.Ready))
	mux.Get("/live", middleware.LivenessHandler)
	if d.MetricsHandler != nil {
		mux.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	mux.Route("/api", func(rt chi.Router) {
		if d.RateLimiter != nil {
			rt.Use(d.RateLimiter.Middleware)
		}
		rt.Post("/goldmine/page-submit", r.handlePageSubmit)
		rt.Post("/dashboard-hub-intelligence", r.handleDashboardHub)
		rt.Get("/memory-status", middleware.MemoryStatusHandler(d.MemoryBudgetMB))
		rt.Get("/intake-forms", r.wrap(r.handleIntakeForms))
		rt.Get("/intake-forms/{service}", r.wrap(r.handleIntakeForm))

		// intake publik; baca dan ubah hanya untuk admin
		rt.Post("/admin/service-requests", r.wrap(r.handleCreateServiceRequest))
		rt.Group(func(admin chi.Router) {
			admin.Use(middleware.APIKeyAuth(d.AdminKeys))
			admin.Get("/admin/service-requests", r.wrap(r.handleListServiceRequests))
			admin.Patch("/admin/service-requests", r.wrap(r.handleUpdateServiceRequest))
			admin.Post("/reports/{kind}", r.wrap(r.handleGenerateReport))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sql.ErrNoRows),
		errors.Is(err, servicerequest.ErrNotFound),
		errors.Is(err, intakeform.ErrUnknownService):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, servicerequest.ErrConsentRequired),
		errors.Is(err, servicerequest.ErrMissingID),
		errors.Is(err, servicerequest.ErrInvalidStatus),
		errors.Is(err, report.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, report.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status := statusFor(err)
			msg := err.Error()
			if status == http.StatusInternalServerError {
				r.Logger.Error("handler failed", zap.String("path", req.URL.Path), zap.Error(err))
				msg = "internal server error"
			}
			writeJSON(w, status, map[string]any{"success": false, "error": msg})
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func readBody(req *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		return nil, badRequest("read body: %v", err)
	}
	return body, nil
}

// POST /api/goldmine/page-submit
// Body: {"page": "...", "userData": {...}, "sessionId": "..."}
// Apapun yang terjadi setelah validasi dibalas 200 (fallback mode).
func (r *Router) handlePageSubmit(w http.ResponseWriter, req *http.Request) {
	var body journey.Request
	if err := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes)).Decode(&body); err != nil {
		_ = writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "invalid JSON body"})
		return
	}
	p, err := body.Validate()
	if err != nil {
		_ = writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}
	_ = writeJSON(w, http.StatusOK, r.Journey.Submit(req.Context(), body, p))
}

// POST /api/dashboard-hub-intelligence
// Body kosong atau rusak tetap dilayani dengan view default.
func (r *Router) handleDashboardHub(w http.ResponseWriter, req *http.Request) {
	var body dashboard.Request
	if err := json.NewDecoder(io.LimitReader(req.Body, maxBodyBytes)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		r.Logger.Warn("dashboard hub: undecodable body", zap.Error(err))
		body = dashboard.Request{}
	}
	_ = writeJSON(w, http.StatusOK, r.Dashboard.Intelligence(req.Context(), body))
}

// GET /api/intake-forms
func (r *Router) handleIntakeForms(w http.ResponseWriter, req *http.Request) error {
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "forms": r.Forms.All()})
}

// GET /api/intake-forms/{service}
func (r *Router) handleIntakeForm(w http.ResponseWriter, req *http.Request) error {
	key := chi.URLParam(req, "service")
	if err := middleware.ValidateSlug(key); err != nil {
		return fmt.Errorf("%w: %v", intakeform.ErrUnknownService, err)
	}
	form, ok := r.Forms.ByService(key)
	if !ok {
		return fmt.Errorf("%w: %s", intakeform.ErrUnknownService, key)
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "service": key, "form": form})
}
