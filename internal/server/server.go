// Package server exposes the question-answering service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"quranrag/internal/domain"
)

const maxBodySize = 1 << 20 // 1MB

type Config struct {
	Addr    string
	Service domain.QAService
	Logger  *slog.Logger
}

type Server struct {
	addr    string
	svc     domain.QAService
	logger  *slog.Logger
	handler http.Handler
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{addr: cfg.Addr, svc: cfg.Service, logger: cfg.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	s.handler = requestID(accessLog(s.logger, recoverer(s.logger, mux)))
	return s
}

// Handler returns the routed handler wrapped in middleware.
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	s.logger.Info("HTTP server listening", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(lis) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type queryBody struct {
	Question *string `json:"question"`
}

type queryResult struct {
	Answer       string   `json:"answer"`
	ResponseTime float64  `json:"response_time"`
	Context      []string `json:"context"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "API is running"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.svc.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}
	var body queryBody
	if err := json.Unmarshal(data, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if body.Question == nil || strings.TrimSpace(*body.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	resp, err := s.svc.Query(r.Context(), domain.QueryRequest{Question: *body.Question})
	if err != nil {
		status := statusFor(err)
		s.logger.Error("query failed", "request_id", RequestIDFrom(r.Context()), "status", status, "error", err)
		writeError(w, status, detailFor(status, err))
		return
	}
	passages := resp.CitedPassages
	if passages == nil {
		passages = []string{}
	}
	writeJSON(w, http.StatusOK, queryResult{
		Answer:       resp.Answer,
		ResponseTime: resp.Elapsed.Seconds(),
		Context:      passages,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func detailFor(status int, err error) string {
	switch status {
	case http.StatusServiceUnavailable:
		return "Embeddings not loaded."
	case http.StatusBadGateway:
		return "language model request failed"
	default:
		return err.Error()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
