package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"team-metrics/config"
	"team-metrics/jira"
	"team-metrics/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// IssueSource is the part of the Jira client the server uses.
type IssueSource interface {
	Search(ctx context.Context, jql, expand string) ([]jira.RawIssue, error)
	Report(ctx context.Context, jql string) ([]jira.Issue, error)
}

// Snapshot is one run of the column inventory.
type Snapshot struct {
	RunID       string            `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Inventory   metrics.Inventory `json:"inventory"`
}

// Server handles HTTP requests
type Server struct {
	Router *chi.Mux
	config config.Config
	source IssueSource
	log    zerolog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewServer creates a new web server
func NewServer(cfg config.Config, source IssueSource, log zerolog.Logger) *Server {
	s := &Server{
		config: cfg,
		source: source,
		log:    log,
		now:    time.Now,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.config.AllowedOrigin},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(2 * time.Minute)) // Jira searches page through every issue

	r.Get("/health", s.healthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/columns", s.getColumns)
		r.Post("/columns/refresh", s.refreshColumns)
		r.Get("/issues", s.getIssues)
		r.Get("/flow", s.getFlow)
	})

	s.Router = r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// Refresh recomputes the column inventory from the open sprints and the
// backlog and makes it the current snapshot.
func (s *Server) Refresh(ctx context.Context) error {
	sprint, err := s.source.Search(ctx, s.config.SprintJQL(), "")
	if err != nil {
		return fmt.Errorf("sprint issues: %w", err)
	}
	backlog, err := s.source.Search(ctx, s.config.BacklogJQL(), "")
	if err != nil {
		return fmt.Errorf("backlog issues: %w", err)
	}
	inv, err := metrics.CalculateInventory(sprint, backlog)
	if err != nil {
		return err
	}

	snap := &Snapshot{
		RunID:       uuid.NewString(),
		GeneratedAt: s.now().UTC(),
		Inventory:   inv,
	}
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	s.log.Info().Str("run_id", snap.RunID).Ints("counts", inv.Values()).Msg("column inventory refreshed")
	return nil
}

// Latest returns the current snapshot, or nil before the first refresh.
func (s *Server) Latest() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// healthCheck returns server health status
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": s.now().UTC(),
		"service":   "team-metrics-api",
	})
}

func (s *Server) getColumns(w http.ResponseWriter, r *http.Request) {
	snap := s.Latest()
	if snap == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no column snapshot yet")
		return
	}
	s.writeSuccess(w, snap, nil)
}

func (s *Server) refreshColumns(w http.ResponseWriter, r *http.Request) {
	if err := s.Refresh(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("column refresh failed")
		s.writeError(w, statusFor(err), "Error refreshing columns")
		return
	}
	s.writeSuccess(w, s.Latest(), nil)
}

// getIssues returns the serialized timelines of the issues in the analysis window
func (s *Server) getIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := s.source.Report(r.Context(), s.config.ReportJQL(s.now()))
	if err != nil {
		s.log.Error().Err(err).Msg("error fetching Jira issues")
		s.writeError(w, statusFor(err), "Error fetching Jira issues")
		return
	}
	if issues == nil {
		issues = []jira.Issue{}
	}
	s.writeSuccess(w, issues, map[string]int{"issues": len(issues)})
}

// getFlow calculates and returns flow metrics
func (s *Server) getFlow(w http.ResponseWriter, r *http.Request) {
	issues, err := s.source.Report(r.Context(), s.config.ReportJQL(s.now()))
	if err != nil {
		s.log.Error().Err(err).Msg("error fetching Jira issues")
		s.writeError(w, statusFor(err), "Error fetching Jira issues")
		return
	}
	fm := metrics.CalculateFlowMetrics(issues, s.now().UTC())
	s.writeSuccess(w, fm, map[string]int{"issues": len(issues)})
}

// statusFor maps malformed upstream data to 502, anything else to 500.
func statusFor(err error) int {
	var fe *jira.FormatError
	var ce *jira.ConfigurationError
	if errors.As(err, &fe) || errors.As(err, &ce) || errors.Is(err, metrics.ErrUnknownStatus) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeSuccess(w http.ResponseWriter, data interface{}, stats map[string]int) {
	response := map[string]interface{}{
		"status":    "success",
		"data":      data,
		"timestamp": s.now().UTC(),
	}
	if stats != nil {
		response["stats"] = stats
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]interface{}{
		"status":    "error",
		"error":     msg,
		"timestamp": s.now().UTC(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

// Start serves the API on port until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info().Str("port", port).Msg("starting team metrics API server")
	s.log.Info().Msg("endpoints: GET /health, GET /api/columns, POST /api/columns/refresh, GET /api/issues, GET /api/flow")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
