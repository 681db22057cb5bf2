package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"

	"autoreply-project/internal/adapters/apigateway"
	"autoreply-project/internal/adapters/appconfig"
	"autoreply-project/internal/adapters/httpapi"
	"autoreply-project/internal/adapters/redis"
	"autoreply-project/internal/adapters/secrets"
	"autoreply-project/internal/app"
	"autoreply-project/internal/config"
	"autoreply-project/internal/logging"
	"autoreply-project/internal/metrics"
	"autoreply-project/internal/ports"
)

func main() {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		if err := runLambda(); err != nil {
			os.Exit(1)
		}
	} else {
		if err := runLocal(); err != nil {
			os.Exit(1)
		}
	}
}

func runLambda() error {
	ctx := context.Background()
	logger := logging.New(logging.DefaultConfig())

	application, cfg, cleanup, err := build(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	handler := apigateway.NewHandler(application, cfg.HTTP.MaxBodyBytes, logger)
	lambda.Start(handler.Handle)
	return nil
}

func runLocal() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := logging.New(logging.DefaultConfig())

	application, cfg, cleanup, err := build(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	server := httpapi.NewServer(ctx, application, cfg.HTTP, logger)
	if err := server.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", "error", err)
		return err
	}
	return nil
}

// build wires the application. The returned cleanup releases the Redis
// connection, if one was opened.
func build(ctx context.Context, logger *slog.Logger) (*app.App, *config.AppConfig, func(), error) {
	cleanup := func() {}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return nil, nil, cleanup, err
	}

	metrics.Register()

	replies, err := appconfig.NewLoader(cfg.AppConfig, cfg.Replies, logger).Load(ctx)
	if err != nil {
		logger.Error("failed to load reply config", "error", err)
		return nil, nil, cleanup, err
	}

	tokens, err := secrets.NewTokenSource(ctx, cfg.WeChat)
	if err != nil {
		logger.Error("failed to create token source", "error", err)
		return nil, nil, cleanup, err
	}

	var cache ports.ReplyCache
	if cfg.Cache.Enabled {
		redisClient, err := redis.NewClient(cfg.Redis)
		if err != nil {
			// Replies do not depend on the cache; run without it.
			logger.Warn("reply cache disabled, redis unavailable", "addr", cfg.Redis.Addr, "error", err)
		} else {
			logger.Info("connected to redis", "addr", cfg.Redis.Addr)
			cache = redis.NewReplyCache(redisClient, cfg.Cache.TTL)
			cleanup = func() { _ = redisClient.Close() }
		}
	}

	application := app.New(app.Options{
		Config:  cfg,
		Replies: replies,
		Logger:  logger,
		Cache:   cache,
		Tokens:  tokens,
	})

	logger.Info("autoreply configured",
		"environment", cfg.Environment,
		"version", cfg.Version,
		"keywords", len(replies.Keywords),
		"cache", cache != nil,
		"signed", cfg.WeChat.Token != "" || cfg.WeChat.TokenSecretName != "",
	)

	return application, cfg, cleanup, nil
}
