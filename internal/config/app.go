package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	Version     string
	HTTP        HTTPConfig
	Redis       RedisConfig
	Cache       CacheConfig
	AppConfig   AppConfigSettings
	Replies     RepliesSettings
	WeChat      WeChatConfig
}

// HTTPConfig holds settings for the local webhook server.
type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64
	RateLimitPerMin int // 0 disables rate limiting
	RateLimitBurst  int
	// TrustedProxies may set X-Forwarded-For for rate limiting.
	TrustedProxies []string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int

	// ElastiCache-specific settings
	ClusterMode   bool
	SentinelAddrs []string
	MasterName    string
}

// CacheConfig controls the reply cache used to answer platform retries.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// AppConfigSettings holds AWS AppConfig agent settings.
// An empty Endpoint means reply configuration is not fetched from AppConfig.
type AppConfigSettings struct {
	Endpoint string
	Profile  string
}

// RepliesSettings points at a local reply configuration file.
type RepliesSettings struct {
	Path string
}

// WeChatConfig holds the webhook verification token.
// TokenSecretName, when set, names a Secrets Manager secret holding the token.
type WeChatConfig struct {
	Token           string
	TokenSecretName string
}

// LoadFromEnv loads configuration from environment variables with sensible defaults.
func LoadFromEnv() (*AppConfig, error) {
	redisAddr := os.Getenv("REDIS_ADDR")
	if elasticacheEndpoint := os.Getenv("ELASTICACHE_ENDPOINT"); elasticacheEndpoint != "" {
		redisAddr = elasticacheEndpoint
	}

	redisCfg := RedisConfig{
		Addr:         redisAddr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           getEnvInt("REDIS_DB", 0),
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	}

	if os.Getenv("ELASTICACHE_CLUSTER_MODE") == "true" {
		redisCfg.ClusterMode = true
	}

	if sentinelAddrs := os.Getenv("ELASTICACHE_SENTINEL_ADDRS"); sentinelAddrs != "" {
		redisCfg.SentinelAddrs = strings.Split(sentinelAddrs, ",")
		redisCfg.MasterName = os.Getenv("ELASTICACHE_MASTER_NAME")
	}

	cfg := &AppConfig{
		Environment: getEnvOrDefault("APP_ENV", "development"),
		Version:     getEnvOrDefault("APP_VERSION", "1.0.0"),
		HTTP: HTTPConfig{
			Addr:            ":" + getEnvOrDefault("PORT", "80"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MaxBodyBytes:    1 << 20,
			RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 600),
			RateLimitBurst:  getEnvInt("RATE_LIMIT_BURST", 100),
			TrustedProxies:  splitList(os.Getenv("TRUSTED_PROXIES")),
		},
		Redis: redisCfg,
		Cache: CacheConfig{
			Enabled: redisAddr != "",
			TTL:     parseDuration(getEnvOrDefault("REPLY_CACHE_TTL", "5m"), 5*time.Minute),
		},
		AppConfig: AppConfigSettings{
			Endpoint: os.Getenv("APPCONFIG_ENDPOINT"),
			Profile:  getEnvOrDefault("APPCONFIG_PROFILE", "autoreply.replies"),
		},
		Replies: RepliesSettings{
			Path: os.Getenv("REPLIES_CONFIG_PATH"),
		},
		WeChat: WeChatConfig{
			Token:           os.Getenv("WECHAT_TOKEN"),
			TokenSecretName: os.Getenv("WECHAT_TOKEN_SECRET_NAME"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
