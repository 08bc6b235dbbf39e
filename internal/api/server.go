// Package api exposes the deal catalogue and the batch ingestion endpoint
// over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fiercfly/proteinHunt/internal/models"
	"github.com/fiercfly/proteinHunt/internal/processor"
	"github.com/fiercfly/proteinHunt/internal/validator"
)

// Repository is the storage the handlers read and mutate.
type Repository interface {
	GetDeal(ctx context.Context, id string) (*models.Deal, error)
	ListDeals(ctx context.Context, f models.DealFilter) ([]models.Deal, int, error)
	BrandCounts(ctx context.Context, limit int) ([]models.Count, error)
	PostTypeCounts(ctx context.Context) ([]models.Count, error)
	CreateManualDeal(ctx context.Context, deal *models.Deal) error
	ToggleVote(ctx context.Context, dealID, userID string) (int, bool, error)
	UpdateDeal(ctx context.Context, id string, patch models.DealPatch) (*models.Deal, error)
	DeleteDeal(ctx context.Context, id string) error
	ListSaved(ctx context.Context, userID string) ([]models.Deal, error)
	ToggleSaved(ctx context.Context, userID, dealID string) (bool, error)
}

// Ingester stores externally scraped candidates.
type Ingester interface {
	Ingest(ctx context.Context, candidates []models.DealCandidate) processor.Result
}

// Trigger starts a named background job out of band.
type Trigger interface {
	Trigger(ctx context.Context, name string) (bool, error)
}

type Options struct {
	// ScraperSecret gates the bulk ingest endpoint. Empty rejects every call.
	ScraperSecret string
	// PollJobs are the job names started by the admin poll endpoint.
	PollJobs       []string
	RequestTimeout time.Duration
}

type Handler struct {
	repo     Repository
	ingester Ingester
	trigger  Trigger
	validate *validator.Validator
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

func NewHandler(repo Repository, ingester Ingester, trigger Trigger, opts Options, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	return &Handler{
		repo:     repo,
		ingester: ingester,
		trigger:  trigger,
		validate: validator.New(),
		opts:     opts,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Router builds the chi route tree.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(h.opts.RequestTimeout))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Route("/deals", func(r chi.Router) {
			r.Get("/", h.listDeals)
			r.Get("/brands", h.brands)
			r.Get("/posttypes", h.postTypes)
			r.With(requireSecret(h.opts.ScraperSecret)).Post("/bulk", h.bulkIngest)
			r.With(requireUser).Post("/submit", h.submitDeal)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.getDeal)
				r.With(requireUser).Post("/vote", h.vote)
				r.With(requireUser, requireAdmin).Patch("/", h.updateDeal)
				r.With(requireUser, requireAdmin).Delete("/", h.deleteDeal)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/saved", h.listSaved)
			r.Post("/saved/{dealId}", h.toggleSaved)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireUser, requireAdmin)
			r.Post("/poll", h.triggerPoll)
		})
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
