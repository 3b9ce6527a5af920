package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/mattjoyce/actiongate/internal/config"
	"github.com/mattjoyce/actiongate/internal/signature"
	"github.com/mattjoyce/actiongate/internal/sink"
)

// Server represents the webhook HTTP server.
type Server struct {
	config   Config
	verifier *signature.Verifier // nil when no signing key is configured
	sinks    SinkLookup
	logger   *slog.Logger
	server   *http.Server

	// endpoints maps URL paths to their configurations
	endpoints map[string]*EndpointConfig
}

// New creates a new webhook server instance.
func New(cfg Config, sinks SinkLookup, logger *slog.Logger) *Server {
	endpoints := make(map[string]*EndpointConfig)
	for i := range cfg.Endpoints {
		ep := &cfg.Endpoints[i]

		// Apply defaults
		if ep.MaxBodySize == 0 {
			ep.MaxBodySize = DefaultMaxBodySize
		}
		if ep.SignatureHeader == "" {
			ep.SignatureHeader = DefaultSignatureHeader
		}

		endpoints[ep.Path] = ep
	}
	if cfg.ForwardTimeout <= 0 {
		cfg.ForwardTimeout = DefaultForwardTimeout
	}

	verifier, err := signature.New(signature.Config{Secret: cfg.Secret})
	if err != nil {
		logger.Error("signing key not configured, all endpoints will answer 500")
	}

	return &Server{
		config:    cfg,
		verifier:  verifier,
		sinks:     sinks,
		logger:    logger,
		endpoints: endpoints,
	}
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.config.ForwardTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	attrs := []any{"listen", s.config.Listen, "endpoints", len(s.endpoints)}
	if s.verifier != nil {
		attrs = append(attrs, "key_fingerprint", s.verifier.Fingerprint())
	}
	s.logger.Info("webhook server starting", attrs...)

	// Run server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	notFound := func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusNotFound, "not found")
	}
	r.NotFound(notFound)
	r.MethodNotAllowed(notFound)

	for path := range s.endpoints {
		r.Post(path, s.handleWebhook)
	}

	return r
}

// loggingMiddleware logs HTTP requests (excludes sensitive payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleWebhook verifies the request signature and runs the endpoint action.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	endpoint, ok := s.endpoints[r.URL.Path]
	if !ok {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}
	logger := s.logger.With("path", endpoint.Path, "request_id", middleware.GetReqID(r.Context()))

	if s.verifier == nil {
		logger.Error("rejecting request, signing key not configured")
		s.respondError(w, http.StatusInternalServerError, signature.ErrNotConfigured.Error())
		return
	}

	header := r.Header.Get(endpoint.SignatureHeader)
	if header == "" {
		logger.Warn("webhook signature missing", "header", endpoint.SignatureHeader)
		s.respondError(w, http.StatusBadRequest, signature.ErrMissingHeader.Error())
		return
	}

	// Enforce body size limit
	body, err := io.ReadAll(io.LimitReader(r.Body, endpoint.MaxBodySize+1))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}
	if int64(len(body)) > endpoint.MaxBodySize {
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	if err := s.verifier.Verify(header, body); err != nil {
		logger.Warn("webhook signature verification failed", "reason", err)
		switch {
		case errors.Is(err, signature.ErrMalformedHeader), errors.Is(err, signature.ErrMissingHeader):
			s.respondError(w, http.StatusBadRequest, err.Error())
		default:
			s.respondError(w, http.StatusBadRequest, signature.ErrSignatureMismatch.Error())
		}
		return
	}

	switch endpoint.Action {
	case config.ActionClaims:
		s.handleClaims(w, logger, endpoint, body)
	case config.ActionForward:
		s.handleForward(w, r, logger, endpoint, body)
	case config.ActionNotify:
		s.handleNotify(w, r, logger, endpoint)
	default:
		logger.Error("endpoint has unknown action", "action", endpoint.Action)
		s.respondError(w, http.StatusInternalServerError, "unknown action")
	}
}

func (s *Server) handleClaims(w http.ResponseWriter, logger *slog.Logger, endpoint *EndpointConfig, body []byte) {
	if !json.Valid(body) {
		logger.Warn("claims request body is not valid JSON")
		s.respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	claims := endpoint.Claims
	if claims == nil {
		claims = []Claim{}
	}
	logger.Info("claims issued", "count", len(claims))
	s.respondJSON(w, http.StatusOK, ClaimsResponse{AppendClaims: claims})
}

func (s *Server) handleForward(w http.ResponseWriter, r *http.Request, logger *slog.Logger, endpoint *EndpointConfig, body []byte) {
	if !json.Valid(body) {
		logger.Warn("forward request body is not valid JSON")
		s.respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	ev := s.newEvent(endpoint, body)
	s.send(r.Context(), logger, endpoint, ev)
	s.respondJSON(w, http.StatusOK, StatusResponse{Status: "event processed", EventID: ev.ID})
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request, logger *slog.Logger, endpoint *EndpointConfig) {
	ev := s.newEvent(endpoint, nil)
	ev.Message = endpoint.Message
	s.send(r.Context(), logger, endpoint, ev)
	s.respondJSON(w, http.StatusOK, StatusResponse{Status: "ok", EventID: ev.ID})
}

func (s *Server) newEvent(endpoint *EndpointConfig, body []byte) sink.Event {
	return sink.Event{
		ID:       uuid.NewString(),
		Endpoint: endpoint.Path,
		Received: time.Now().UTC(),
		Payload:  json.RawMessage(body),
	}
}

// send delivers ev to the endpoint's sink. Failures are logged, never returned:
// the sender must not retry because a downstream service is unhappy.
func (s *Server) send(ctx context.Context, logger *slog.Logger, endpoint *EndpointConfig, ev sink.Event) {
	logger = logger.With("sink", endpoint.Sink, "event_id", ev.ID)

	target, ok := s.sinks.Get(endpoint.Sink)
	if !ok {
		logger.Error("sink not registered")
		return
	}

	// The delivery outlives a disconnecting client but not the forward timeout.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ForwardTimeout)
	defer cancel()

	if err := target.Send(sendCtx, ev); err != nil {
		logger.Error("sink delivery failed", "error", err)
		return
	}
	logger.Info("sink delivery succeeded")
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
