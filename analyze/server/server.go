/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package server exposes the orchestrator over HTTP for the dashboard.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/arnavk-polka/gavin-ai/analyze"
	"github.com/arnavk-polka/gavin-ai/analyze/orchestrator"
	"github.com/chainguard-dev/clog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// MinContentWords is the shortest content accepted for content analysis.
const MinContentWords = 50

// maxBody bounds request bodies.
const maxBody = 4 << 20

// Sessions is the orchestrator surface served over HTTP.
type Sessions interface {
	StartStressTest(ctx context.Context, transcript, name string) (orchestrator.StartResult, error)
	StartContentAnalysis(ctx context.Context, content, name string) (orchestrator.StartResult, error)
	StartMultiTurn(ctx context.Context, messages []analyze.Message, name string) (orchestrator.StartResult, error)
	Status(id string) (*analyze.Snapshot, bool)
	Results(id string) (*analyze.Snapshot, bool)
	Latest(kind analyze.Kind) (string, bool)
	Cancel(id string) error
}

// Archive looks up snapshots of sessions that are no longer in memory.
type Archive interface {
	Get(ctx context.Context, id string) (*analyze.Snapshot, error)
}

// Server routes dashboard requests to Sessions.
type Server struct {
	sessions Sessions
	archive  Archive
}

// Option configures a Server.
type Option func(*Server)

// WithArchive serves results of unknown session ids from archive.
func WithArchive(a Archive) Option {
	return func(s *Server) { s.archive = a }
}

// New returns a Server for sessions.
func New(sessions Sessions, opts ...Option) *Server {
	s := &Server{sessions: sessions}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/analyze", func(r chi.Router) {
		r.Post("/start", s.startStressTest)
		r.Get("/status", s.status(analyze.KindStressTest))
		r.Get("/status/{id}", s.status(""))
		r.Get("/results", s.results(analyze.KindStressTest))
		r.Get("/results/{id}", s.results(""))

		r.Post("/multi-turn/start", s.startMultiTurn)
		r.Get("/multi-turn/status", s.status(analyze.KindMultiTurn))
		r.Get("/multi-turn/status/{id}", s.status(analyze.KindMultiTurn))
		r.Get("/multi-turn/results", s.results(analyze.KindMultiTurn))
		r.Get("/multi-turn/results/{id}", s.results(analyze.KindMultiTurn))

		r.Post("/content", s.startContentAnalysis)
		r.Get("/content/status/{id}", s.status(analyze.KindContentAnalysis))
		r.Get("/content/results/{id}", s.results(analyze.KindContentAnalysis))

		r.Delete("/sessions/{id}", s.cancel)
	})
	return otelhttp.NewHandler(r, "gavin-eval")
}

// requestLogger attaches a request scoped logger to the context.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := clog.FromContext(r.Context()).With(
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
		)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(clog.WithLogger(r.Context(), log)))
		if r.URL.Path != "/health" && r.URL.Path != "/metrics" {
			log.With("status", ww.Status()).Info("Handled request")
		}
	})
}

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errResp{Error: msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "analyze"})
}

type startStressTestRequest struct {
	Transcript  string `json:"transcript"`
	SessionName string `json:"session_name"`
}

func (s *Server) startStressTest(w http.ResponseWriter, r *http.Request) {
	var req startStressTestRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		writeError(w, http.StatusBadRequest, "transcript is required")
		return
	}
	res, err := s.sessions.StartStressTest(r.Context(), req.Transcript, req.SessionName)
	s.started(w, r, res, err)
}

type startContentRequest struct {
	Text        string `json:"text"`
	SessionName string `json:"session_name"`
}

func (s *Server) startContentAnalysis(w http.ResponseWriter, r *http.Request) {
	var req startContentRequest
	if !decode(w, r, &req) {
		return
	}
	words := len(strings.Fields(req.Text))
	if words == 0 {
		writeError(w, http.StatusBadRequest, "no content provided")
		return
	}
	if words < MinContentWords {
		writeError(w, http.StatusBadRequest, "content must have at least 50 words")
		return
	}
	res, err := s.sessions.StartContentAnalysis(r.Context(), req.Text, req.SessionName)
	s.started(w, r, res, err)
}

type startMultiTurnRequest struct {
	Messages    []analyze.Message `json:"messages"`
	SessionName string            `json:"session_name"`
}

func (s *Server) startMultiTurn(w http.ResponseWriter, r *http.Request) {
	var req startMultiTurnRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.sessions.StartMultiTurn(r.Context(), req.Messages, req.SessionName)
	s.started(w, r, res, err)
}

func (s *Server) started(w http.ResponseWriter, r *http.Request, res orchestrator.StartResult, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrNoUserMessages):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orchestrator.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		clog.FromContext(r.Context()).With("error", err).Error("Failed to start session")
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

// resolve returns the id from the path, or the latest session of kind when
// the path has none.
func (s *Server) resolve(r *http.Request, kind analyze.Kind) (string, bool) {
	if id := chi.URLParam(r, "id"); id != "" {
		return id, true
	}
	return s.sessions.Latest(kind)
}

// status serves the coarse snapshot, from the archive once the session has
// left memory. A non-empty kind restricts the lookup to sessions of that kind.
func (s *Server) status(kind analyze.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.resolve(r, kind)
		if !ok {
			writeError(w, http.StatusNotFound, "no session found")
			return
		}
		snap, ok := s.sessions.Status(id)
		if !ok {
			if snap = s.archived(r.Context(), id); snap != nil {
				snap = snap.Coarse()
			}
		}
		if snap == nil || !matches(snap, kind) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// results serves the full snapshot of a finished session.
func (s *Server) results(kind analyze.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.resolve(r, kind)
		if !ok {
			writeError(w, http.StatusNotFound, "no session found")
			return
		}
		snap, ok := s.sessions.Results(id)
		if !ok {
			if _, running := s.sessions.Status(id); running {
				writeError(w, http.StatusNotFound, "session has not finished")
				return
			}
			snap = s.archived(r.Context(), id)
		}
		if snap == nil || !matches(snap, kind) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func (s *Server) archived(ctx context.Context, id string) *analyze.Snapshot {
	if s.archive == nil {
		return nil
	}
	snap, err := s.archive.Get(ctx, id)
	if err != nil {
		clog.FromContext(ctx).With("session_id", id, "error", err).Debug("Archived snapshot unavailable")
		return nil
	}
	return snap
}

func matches(snap *analyze.Snapshot, kind analyze.Kind) bool {
	return kind == "" || snap.Kind == kind
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.Cancel(id); err != nil {
		if errors.Is(err, orchestrator.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	snap, _ := s.sessions.Status(id)
	writeJSON(w, http.StatusOK, snap)
}
