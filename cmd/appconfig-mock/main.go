package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autoreply-project/internal/config"
	"autoreply-project/internal/logging"
)

const (
	defaultPort       = "2772"
	defaultConfigsDir = "/configs"
)

// Server serves reply configuration profiles from a directory the way the
// AppConfig agent serves them: GET /{profile}.yaml.
type Server struct {
	configsDir string
	logger     *slog.Logger
}

func NewServer(configsDir string, logger *slog.Logger) *Server {
	return &Server{
		configsDir: configsDir,
		logger:     logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{profile}", s.handleProfile)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	filename := r.PathValue("profile")

	if strings.Contains(filename, "..") || !isYAML(filename) {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		s.logger.Warn("rejected profile name", "filename", filename)
		return
	}

	filePath := filepath.Join(s.configsDir, filename)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			s.logger.Warn("profile not found", "filename", filename, "path", filePath)
		} else {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			s.logger.Error("failed to read profile", "filename", filename, "error", err)
		}
		return
	}

	// Serve only profiles the webhook would accept.
	if err := validateProfile(data); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		s.logger.Error("invalid profile", "filename", filename, "error", err)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	_, _ = w.Write(data)

	s.logger.Info("profile served",
		"filename", filename,
		"size", len(data),
		"duration", time.Since(start),
	)
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func validateProfile(data []byte) error {
	cfg, err := config.ParseReplyConfig(data)
	if err != nil {
		return err
	}
	cfg.Normalize()
	return cfg.Validate()
}

func main() {
	logger := logging.New(logging.DefaultConfig())

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	configsDir := os.Getenv("CONFIGS_DIR")
	if configsDir == "" {
		configsDir = defaultConfigsDir
	}

	if _, err := os.Stat(configsDir); err != nil {
		logger.Error("configs directory does not exist", "path", configsDir, "error", err)
		os.Exit(1)
	}

	server := NewServer(configsDir, logger)

	addr := fmt.Sprintf(":%s", port)
	logger.Info("starting appconfig mock server", "port", port, "configs_dir", configsDir)

	if err := http.ListenAndServe(addr, server.Handler()); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
