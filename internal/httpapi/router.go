package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strconv"

	"github.com/go-chi/chi/v5"

	"realestate-watch/internal/crawljob"
	"realestate-watch/internal/model"
	"realestate-watch/internal/repositories"
	"realestate-watch/internal/services/ingest"
)

// Runner is the subset of crawljob.Runner exposed over HTTP.
type Runner interface {
	Bootstrap(ctx context.Context) (crawljob.Status, error)
	Plan(ctx context.Context) (crawljob.PlanResult, error)
	Dispatch(ctx context.Context) (crawljob.RunSummary, error)
	Prune(ctx context.Context) (int, error)
	Status(ctx context.Context) (crawljob.Status, error)
}

// ListingReader looks up stored listings.
type ListingReader interface {
	GetByExternalID(ctx context.Context, externalID int64) (model.Listing, error)
}

// Launcher runs task in the background for as long as the server lives and
// reports false when it no longer accepts work.
type Launcher func(task func(ctx context.Context)) bool

type Handler struct {
	runner   Runner
	stats    func() ingest.Stats
	listings ListingReader
	launch   Launcher
	logger   *slog.Logger
}

type Option func(*Handler)

// WithStats adds ingest counters to the status response.
func WithStats(stats func() ingest.Stats) Option {
	return func(h *Handler) {
		h.stats = stats
	}
}

// WithListings enables GET /listings/{id}.
func WithListings(listings ListingReader) Option {
	return func(h *Handler) {
		h.listings = listings
	}
}

// WithLauncher makes POST /dispatch return immediately and run the tick
// through launch. Without it the request waits for the tick to finish.
func WithLauncher(launch Launcher) Option {
	return func(h *Handler) {
		h.launch = launch
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

func NewHandler(runner Runner, options ...Option) *Handler {
	h := &Handler{runner: runner, logger: slog.Default()}
	for _, option := range options {
		option(h)
	}
	return h
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/status", h.handleStatus)
	r.Post("/bootstrap", h.handleBootstrap)
	r.Post("/plan", h.handlePlan)
	r.Post("/dispatch", h.handleDispatch)
	r.Post("/prune", h.handlePrune)
	if h.listings != nil {
		r.Get("/listings/{id}", h.handleListing)
	}
	r.Route("/debug/pprof", func(r chi.Router) {
		r.Get("/", pprof.Index)
		r.Get("/cmdline", pprof.Cmdline)
		r.Get("/profile", pprof.Profile)
		r.Get("/symbol", pprof.Symbol)
		r.Post("/symbol", pprof.Symbol)
		r.Get("/trace", pprof.Trace)
		r.Get("/allocs", pprof.Handler("allocs").ServeHTTP)
		r.Get("/block", pprof.Handler("block").ServeHTTP)
		r.Get("/goroutine", pprof.Handler("goroutine").ServeHTTP)
		r.Get("/heap", pprof.Handler("heap").ServeHTTP)
		r.Get("/mutex", pprof.Handler("mutex").ServeHTTP)
		r.Get("/threadcreate", pprof.Handler("threadcreate").ServeHTTP)
	})
	return r
}

type statusResponse struct {
	crawljob.Status
	Ingest *ingest.Stats `json:"ingest,omitempty"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.runner.Status(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	resp := statusResponse{Status: status}
	if h.stats != nil {
		stats := h.stats()
		resp.Ingest = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	status, err := h.runner.Bootstrap(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Plan(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"empty":            result.Empty,
		"feed_unavailable": result.FeedUnavailable,
		"lower":            result.Lower,
		"upper":            result.Upper,
		"count":            result.Count,
		"skipped":          result.Skipped,
		"window_start":     result.WindowStart,
		"interval":         result.Interval.String(),
	})
}

func (h *Handler) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if h.launch == nil {
		summary, err := h.runner.Dispatch(r.Context())
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summaryJSON(summary))
		return
	}

	started := h.launch(func(ctx context.Context) {
		summary, err := h.runner.Dispatch(ctx)
		if err != nil {
			h.logger.Error("dispatch failed", "error", err)
			return
		}
		h.logger.Info("dispatch finished", "due", summary.Due, "ran", summary.Ran, "failed", len(summary.Failures))
	})
	if !started {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "server is shutting down"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Dispatch started"})
}

func (h *Handler) handlePrune(w http.ResponseWriter, r *http.Request) {
	removed, err := h.runner.Prune(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (h *Handler) handleListing(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid listing id"})
		return
	}
	listing, err := h.listings.GetByExternalID(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, crawljob.ErrAlreadyInitialized), errors.Is(err, crawljob.ErrNotBootstrapped):
		code = http.StatusConflict
	case errors.Is(err, repositories.ErrNotFound):
		code = http.StatusNotFound
	}
	if code == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func summaryJSON(summary crawljob.RunSummary) map[string]any {
	failed := make([]int64, 0, len(summary.Failures))
	for _, f := range summary.Failures {
		failed = append(failed, f.ExternalID)
	}
	return map[string]any{"due": summary.Due, "ran": summary.Ran, "failed": failed}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
