package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"autoreply-project/internal/app"
	"autoreply-project/internal/config"
	"autoreply-project/internal/domain"
)

// Server exposes the webhook over HTTP.
type Server struct {
	app    *app.App
	cfg    config.HTTPConfig
	logger *slog.Logger
	http   *http.Server
}

// NewServer creates the HTTP server. ctx bounds background work such as
// the rate limiter's cleanup.
func NewServer(ctx context.Context, application *app.App, cfg config.HTTPConfig, logger *slog.Logger) *Server {
	s := &Server{
		app:    application,
		cfg:    cfg,
		logger: logger.With("component", "http"),
	}

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.handler(ctx),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /webhook", s.handleVerify)
	mux.HandleFunc("POST /webhook", s.handleMessage)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/", s.handleNotFound)

	return Chain(mux,
		RequestID,
		Logging(s.logger),
		Recovery(s.logger),
		SecurityHeaders,
		RateLimit(ctx, RateLimitConfig{
			RequestsPerMin: s.cfg.RateLimitPerMin,
			BurstSize:      s.cfg.RateLimitBurst,
			TrustedProxies: s.cfg.TrustedProxies,
		}),
	)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("webhook server listening", "addr", s.cfg.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down webhook server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	out, err := s.app.Verify(r.Context(), signatureParams(r), q.Get("echostr"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, out)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.logger.WarnContext(r.Context(), "request body too large", "limit", tooLarge.Limit)
			http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
			return
		}
		s.logger.WarnContext(r.Context(), "failed to read request body", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	resp, err := s.app.HandleMessage(r.Context(), app.Request{
		Body:        body,
		ContentType: r.Header.Get("Content-Type"),
		Signature:   signatureParams(r),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Health())
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "route not found", "method", r.Method, "path", r.URL.Path)

	if wantsJSON(r) {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":   "Not Found",
			"message": fmt.Sprintf("Cannot %s %s", r.Method, r.URL.Path),
			"code":    "NOT_FOUND",
		})
		return
	}
	http.Error(w, "Page Not Found", http.StatusNotFound)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrInvalidSignature) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	s.logger.ErrorContext(r.Context(), "request failed", "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func signatureParams(r *http.Request) app.SignatureParams {
	q := r.URL.Query()
	return app.SignatureParams{
		Signature: q.Get("signature"),
		Timestamp: q.Get("timestamp"),
		Nonce:     q.Get("nonce"),
	}
}
