package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"autoreply-project/internal/config"
)

// WeChatSecret is the JSON shape of the token secret. A secret that is not
// JSON is used as the token as is.
type WeChatSecret struct {
	Token string `json:"token"`
}

type secretGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// TokenSource implements ports.TokenSource. The token is either given
// directly or fetched once from AWS Secrets Manager.
type TokenSource struct {
	client     secretGetter
	secretName string

	mu    sync.Mutex
	token string
}

// NewTokenSource creates a token source for cfg. AWS credentials are only
// loaded when a secret name is configured.
func NewTokenSource(ctx context.Context, cfg config.WeChatConfig) (*TokenSource, error) {
	if cfg.TokenSecretName == "" {
		return &TokenSource{token: cfg.Token}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &TokenSource{
		client:     secretsmanager.NewFromConfig(awsCfg),
		secretName: cfg.TokenSecretName,
	}, nil
}

// Token returns the webhook token. An empty token disables signature checks.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" || s.client == nil {
		return s.token, nil
	}

	token, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}
	s.token = token
	return token, nil
}

func (s *TokenSource) fetch(ctx context.Context) (string, error) {
	output, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretName),
	})
	if err != nil {
		return "", fmt.Errorf("fetch secret %q from secrets manager: %w", s.secretName, err)
	}

	if output.SecretString == nil {
		return "", fmt.Errorf("secret %q has no string value (binary secrets not supported)", s.secretName)
	}

	raw := strings.TrimSpace(*output.SecretString)
	if !strings.HasPrefix(raw, "{") {
		if raw == "" {
			return "", fmt.Errorf("secret %q is empty", s.secretName)
		}
		return raw, nil
	}

	var secret WeChatSecret
	if err := json.Unmarshal([]byte(raw), &secret); err != nil {
		return "", fmt.Errorf("parse secret %q as JSON: %w", s.secretName, err)
	}
	if secret.Token == "" {
		return "", fmt.Errorf("secret %q missing required field: token", s.secretName)
	}

	return secret.Token, nil
}
