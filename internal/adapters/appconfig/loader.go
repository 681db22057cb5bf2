package appconfig

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"autoreply-project/internal/config"
	"autoreply-project/internal/domain"
)

// Loader implements ports.ReplyConfigLoader.
//
// The reply table comes from the AWS AppConfig agent when an endpoint is
// configured, else from a local YAML file, else from the built-in defaults.
// Environment overrides are applied on top in every case.
type Loader struct {
	httpClient *http.Client
	endpoint   string
	profile    string
	path       string
	getenv     func(string) string
	logger     *slog.Logger

	mu     sync.Mutex
	cached *config.ReplyConfig
}

// NewLoader creates a new reply configuration loader.
func NewLoader(appCfg config.AppConfigSettings, replies config.RepliesSettings, logger *slog.Logger) *Loader {
	return &Loader{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		endpoint: strings.TrimSuffix(appCfg.Endpoint, "/"),
		profile:  appCfg.Profile,
		path:     replies.Path,
		getenv:   os.Getenv,
		logger:   logger.With("component", "config_loader"),
	}
}

// Load returns the reply configuration. The first successful result is
// kept and returned by later calls.
func (l *Loader) Load(ctx context.Context) (*config.ReplyConfig, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil {
		return l.cached, nil
	}

	cfg, source, err := l.read(ctx)
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnvOverrides(l.getenv); err != nil {
		// A bad override must not take the webhook down; the file or
		// default value stays in place.
		l.logger.Warn("ignoring invalid environment override", "error", err)
	}
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, &domain.ConfigError{ConfigName: source, Err: fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)}
	}

	l.cached = cfg
	l.logger.Info("loaded reply config",
		"source", source,
		"keywords", len(cfg.Keywords),
		"links", len(cfg.Links),
	)

	return cfg, nil
}

// ClearCache forgets the loaded configuration.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = nil
}

func (l *Loader) read(ctx context.Context) (*config.ReplyConfig, string, error) {
	switch {
	case l.endpoint != "":
		data, err := l.loadProfile(ctx, l.profile)
		if err != nil {
			return nil, "", fmt.Errorf("load reply config %s: %w", l.profile, err)
		}
		cfg, err := config.ParseReplyConfig(data)
		return cfg, "appconfig:" + l.profile, err

	case l.path != "":
		data, err := os.ReadFile(l.path)
		if err != nil {
			return nil, "", fmt.Errorf("read reply config %s: %w", l.path, err)
		}
		cfg, err := config.ParseReplyConfig(data)
		return cfg, "file:" + l.path, err

	default:
		return config.DefaultReplyConfig(), "defaults", nil
	}
}

// loadProfile fetches a configuration profile from the AppConfig agent.
func (l *Loader) loadProfile(ctx context.Context, profile string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s.yaml", l.endpoint, profile)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch config: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			l.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("profile %s: %w", profile, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("config not available: %s (status %d)", profile, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
