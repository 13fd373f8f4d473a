package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/Chative-Shop-Assistant/agent/agents/orchestrator"
	"github.com/tanpawarit/Chative-Shop-Assistant/agent/chatbot"
	contractx "github.com/tanpawarit/Chative-Shop-Assistant/agent/contract"
)

const maxBodyBytes = 64 << 10

type Config struct {
	Addr            string        `default:":8080"`
	ReadTimeout     time.Duration `split_words:"true" default:"10s"`
	WriteTimeout    time.Duration `split_words:"true" default:"120s"`
	ShutdownTimeout time.Duration `split_words:"true" default:"10s"`
}

type chatRequest struct {
	SessionID string             `json:"session_id"`
	Message   string             `json:"message"`
	UserInfo  contractx.UserInfo `json:"user_info,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type server struct {
	handler chatbot.Handler
}

// NewHandler exposes:
//
//	POST /v1/chat  -> contract.Response
//	GET  /healthz  -> {"status":"ok"}
//	GET  /metrics  -> Prometheus exposition
func NewHandler(handler chatbot.Handler) http.Handler {
	s := &server{handler: handler}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		encode(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		encode(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	resp, err := s.handler.HandleMessage(r.Context(), strings.TrimSpace(req.SessionID), req.Message, req.UserInfo)
	if err != nil {
		status := http.StatusInternalServerError
		if isInputError(err) {
			status = http.StatusBadRequest
		}
		encode(w, status, errorResponse{Error: err.Error()})
		return
	}
	encode(w, http.StatusOK, resp)
}

func isInputError(err error) bool {
	return errors.Is(err, orchestrator.ErrInvalidSession) ||
		errors.Is(err, orchestrator.ErrInvalidMessage) ||
		errors.Is(err, contractx.ErrValidation)
}

func encode(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// Serve runs the API until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, cfg Config, handler chatbot.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      NewHandler(handler),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	}
}
