// Package api provides the HTTP server for investorfolio.
//
// It serves the portfolio page, the spreadsheet download and a small JSON API
// over the same reconciled rows.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/investorfolio/internal/config"
	"github.com/seenimoa/investorfolio/internal/export"
	"github.com/seenimoa/investorfolio/internal/reconcile"
	"github.com/seenimoa/investorfolio/internal/render"
	"github.com/seenimoa/investorfolio/internal/rowsource"
	"github.com/seenimoa/investorfolio/pkg/models"
	"github.com/seenimoa/investorfolio/pkg/utils"
)

// Server is the HTTP server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	source rowsource.Fetcher
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewServer creates a configured server with all routes and middleware.
// now is the clock used to derive the current quarter; nil means utils.NowIST.
func NewServer(cfg *config.Config, source rowsource.Fetcher, log logrus.FieldLogger, now func() time.Time) *Server {
	if now == nil {
		now = utils.NowIST
	}
	s := &Server{
		cfg:    cfg,
		source: source,
		log:    log,
		now:    now,
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled or the process
// receives SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: s.log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// Browser views
	r.Get("/", s.handlePage)
	r.Get("/export", s.handleExport)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/quarters", s.handleQuarters)
		r.Get("/rows", s.handleRows)
		r.Get("/rows/raw", s.handleRawRows)
		r.Get("/config", s.handleGetConfig)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// QuartersResponse is returned by GET /api/v1/quarters.
type QuartersResponse struct {
	Current  models.Quarter   `json:"current"`
	Previous []models.Quarter `json:"previous"`
	Headers  []string         `json:"headers"`
}

// RowView is one reconciled row as sent to API clients.
type RowView struct {
	Cells  []string `json:"cells"`
	Repeat bool     `json:"repeat"`
	Color  string   `json:"color"`
}

// RowsResponse is returned by GET /api/v1/rows.
type RowsResponse struct {
	Quarter     models.Quarter          `json:"quarter"`
	Headers     []string                `json:"headers"`
	Rows        []RowView               `json:"rows"`
	Occurrences reconcile.OccurrenceMap `json:"occurrences"`
	Summary     reconcile.Summary       `json:"summary"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.nowIST()
	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":          "ok",
			"current_quarter": utils.CurrentQuarter(now),
			"time_ist":        utils.FormatDateTimeIST(now),
		},
	})
}

func (s *Server) handleQuarters(w http.ResponseWriter, r *http.Request) {
	now := s.nowIST()
	previous, err := utils.PrecedingQuarters(now, s.cfg.View.HistoryQuarters)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	headers, err := s.headers()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: QuartersResponse{
			Current:  utils.CurrentQuarter(now),
			Previous: previous,
			Headers:  headers,
		},
	})
}

func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	selected, err := s.selectedQuarter(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	headers, err := s.headers()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rows, res := s.load(r.Context(), selected)
	views := make([]RowView, 0, len(res.Rows))
	for _, p := range res.DisplayRows() {
		views = append(views, RowView{
			Cells:  p.Cells,
			Repeat: p.Highlight == reconcile.Repeat,
			Color:  p.Highlight.HexColor(),
		})
	}

	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: RowsResponse{
			Quarter:     selected,
			Headers:     headers,
			Rows:        views,
			Occurrences: res.Occurrences,
			Summary:     reconcile.Summarize(len(rows), res),
		},
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	selected, err := s.selectedQuarter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	headers, err := s.headers()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rows, res := s.load(r.Context(), selected)
	page := render.NewPage(selected, headers, len(rows), res)

	var buf bytes.Buffer
	if err := render.HTML(&buf, page); err != nil {
		s.log.WithError(err).Error("render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	selected, err := s.selectedQuarter(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	headers, err := s.headers()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	_, res := s.load(r.Context(), selected)

	var buf bytes.Buffer
	if err := export.Write(&buf, selected, headers, res); err != nil {
		s.log.WithError(err).Error("build workbook")
		s.writeError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(selected)))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// handleRawRows returns the unfiltered rows from the row server, without a
// quarter, exactly as fetched. A failed fetch is reported as 502.
func (s *Server) handleRawRows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if timeout := s.cfg.Source.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rows, err := s.source.Fetch(ctx, nil)
	if err != nil {
		s.log.WithError(err).Error("fetching raw rows failed")
		s.writeError(w, http.StatusBadGateway, "failed to fetch rows")
		return
	}
	s.writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: rows})
}

// ============================================================
// Helpers
// ============================================================

// nowIST reads the server clock in IST, whatever zone the clock reports.
func (s *Server) nowIST() time.Time {
	return utils.ToIST(s.now())
}

// headers returns the table headers for the current date.
func (s *Server) headers() ([]string, error) {
	return render.Headers(s.nowIST(), s.cfg.View.HistoryQuarters)
}

// selectedQuarter reads ?quarter= and pairs it with the current financial
// year. Without the parameter the current quarter is selected.
func (s *Server) selectedQuarter(r *http.Request) (models.Quarter, error) {
	current := utils.CurrentQuarter(s.nowIST())
	raw := r.URL.Query().Get("quarter")
	if raw == "" {
		return current, nil
	}
	label, err := models.ParseQuarterLabel(raw)
	if err != nil {
		return models.Quarter{}, err
	}
	return models.Quarter{Quarter: label, FinancialYear: current.FinancialYear}, nil
}

// load fetches the rows for q and reconciles them. Fetch failures become
// an empty row set.
func (s *Server) load(ctx context.Context, q models.Quarter) ([]models.PortfolioRow, reconcile.Result) {
	if timeout := s.cfg.Source.Timeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rows := rowsource.FetchOrEmpty(ctx, s.source, &q, s.log)
	return rows, reconcile.Reconcile(rows)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("failed to write JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
