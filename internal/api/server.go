// Package api exposes the tracker's commands over local HTTP and provides
// the client the CLI uses to reach a running daemon.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Tiliavir/screen-time-tracker/internal/journal"
	"github.com/Tiliavir/screen-time-tracker/internal/logfields"
	"github.com/Tiliavir/screen-time-tracker/internal/model"
	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

// Commands is the operation set served over HTTP. The daemon implements it
// on top of the tracker; Client implements it over the wire.
type Commands interface {
	StartDay(ctx context.Context) (string, error)
	EndDay(ctx context.Context) (model.DayRecord, error)
	AddLap(ctx context.Context) (string, error)
	StopLap(ctx context.Context) (string, error)
	Signal(ctx context.Context, kind string) (string, error)
	Status(ctx context.Context) (*model.Status, error)
	Session(ctx context.Context) (*tracker.SessionState, error)
	Laps(ctx context.Context, day string) ([]model.Lap, error)
	Journal(ctx context.Context, day string) ([]journal.Entry, error)
}

// Response is the envelope of every JSON reply.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// MessageResponse carries the human-readable outcome of a command.
type MessageResponse struct {
	Message string `json:"message"`
}

// Server routes HTTP requests to Commands.
type Server struct {
	cmds    Commands
	metrics http.Handler
	router  *chi.Mux
}

// NewServer builds the router. metrics may be nil, in which case /metrics
// is not served.
func NewServer(cmds Commands, metrics http.Handler) *Server {
	s := &Server{cmds: cmds, metrics: metrics, router: chi.NewRouter()}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Get("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics)
	}

	s.router.Post("/day/start", s.message(s.cmds.StartDay))
	s.router.Post("/day/end", s.handleEndDay)
	s.router.Post("/lap", s.message(s.cmds.AddLap))
	s.router.Post("/lap/stop", s.message(s.cmds.StopLap))
	s.router.Post("/signal/{kind}", s.handleSignal)

	s.router.Get("/status", s.handleStatus)
	s.router.Get("/session", s.handleSession)
	s.router.Get("/laps", s.handleLaps)
	s.router.Get("/journal", s.handleJournal)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("HTTP request",
			slog.String("method", r.Method),
			logfields.Path(r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func success(w http.ResponseWriter, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		failure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: raw})
}

func failure(w http.ResponseWriter, err error) {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Command failed", logfields.Error(err))
	}
	writeJSON(w, status, Response{Success: false, Error: msg, Code: code})
}

func (s *Server) message(op func(context.Context) (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msg, err := op(r.Context())
		if err != nil {
			failure(w, err)
			return
		}
		success(w, MessageResponse{Message: msg})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	success(w, map[string]string{"status": "healthy"})
}

func (s *Server) handleEndDay(w http.ResponseWriter, r *http.Request) {
	rec, err := s.cmds.EndDay(r.Context())
	if err != nil {
		failure(w, err)
		return
	}
	success(w, rec)
}

func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	msg, err := s.cmds.Signal(r.Context(), chi.URLParam(r, "kind"))
	if err != nil {
		failure(w, err)
		return
	}
	success(w, MessageResponse{Message: msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.cmds.Status(r.Context())
	if err != nil {
		failure(w, err)
		return
	}
	success(w, st)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.cmds.Session(r.Context())
	if err != nil {
		failure(w, err)
		return
	}
	success(w, st)
}

func (s *Server) handleLaps(w http.ResponseWriter, r *http.Request) {
	laps, err := s.cmds.Laps(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		failure(w, err)
		return
	}
	if laps == nil {
		laps = []model.Lap{}
	}
	success(w, laps)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	entries, err := s.cmds.Journal(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		failure(w, err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	success(w, entries)
}
