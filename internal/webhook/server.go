// Package webhook exposes the command actions over HTTP, together with health,
// readiness and metrics endpoints.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/hueaction/internal/actions"
)

// maxBodySize bounds a command request body
const maxBodySize = 64 << 10

// ConfigSource returns the module config commands run with
type ConfigSource func(ctx context.Context) (actions.ModuleConfig, error)

// Server is an HTTP server that runs spoken commands through the invoker.
type Server struct {
	addr       string
	invoker    *actions.Invoker
	config     ConfigSource
	gatherer   prometheus.Gatherer
	httpServer *http.Server
}

// NewServer creates a new command server. A nil gatherer disables /metrics.
func NewServer(addr string, invoker *actions.Invoker, config ConfigSource, gatherer prometheus.Gatherer) *Server {
	return &Server{
		addr:     addr,
		invoker:  invoker,
		config:   config,
		gatherer: gatherer,
	}
}

// Handler returns the routes served by the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /command", s.handleCommand)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("GET /ready", s.handleReady)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}

// Run starts the server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting command server")

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Command server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

type commandRequest struct {
	Command string `json:"command"`
}

type commandResponse struct {
	Action   string `json:"action"`
	Param    string `json:"param"`
	Response string `json:"response"`
}

// handleCommand accepts {"command": "..."} or the bare utterance as text.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read command request body")
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	command := strings.TrimSpace(string(body))
	if strings.HasPrefix(command, "{") {
		var req commandRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
			return
		}
		command = strings.TrimSpace(req.Command)
	}
	if command == "" {
		writeError(w, http.StatusBadRequest, "missing command")
		return
	}

	cfg, err := s.config(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to load module config")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	log.Debug().Str("command", command).Str("remote", r.RemoteAddr).Msg("Received command")

	result, err := s.invoker.Run(r.Context(), command, cfg, "webhook")
	switch {
	case errors.Is(err, actions.ErrNoMatch):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{
		Action:   result.Action,
		Param:    result.Param,
		Response: result.Response,
	})
}

// handleReady reports ready once a bridge address is known
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.config(r.Context())
	if err != nil || cfg.IsZero() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not installed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
