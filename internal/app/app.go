package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"autoreply-project/internal/adapters/wechat"
	"autoreply-project/internal/config"
	"autoreply-project/internal/domain"
	"autoreply-project/internal/logging"
	"autoreply-project/internal/metrics"
	"autoreply-project/internal/ports"
	"autoreply-project/internal/service"
)

// WelcomeText answers a verification GET that carries no echostr.
const WelcomeText = "Welcome to WeChat Auto Reply System"

// SignatureParams are the query parameters the platform signs requests with.
type SignatureParams struct {
	Signature string
	Timestamp string
	Nonce     string
}

// Request is an inbound webhook POST, independent of the transport.
type Request struct {
	Body        []byte
	ContentType string
	Signature   SignatureParams
}

// Response is the passive reply to write back with status 200.
type Response struct {
	ContentType string
	Body        []byte
	Outcome     domain.Outcome
}

// Health is the body of the health endpoint.
type Health struct {
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// App is the main application container.
type App struct {
	replies   *config.ReplyConfig
	generator ports.ReplyGenerator
	cache     ports.ReplyCache
	tokens    ports.TokenSource
	encoder   *wechat.Encoder
	logger    *slog.Logger

	version     string
	environment string
	now         func() time.Time
}

// Options configures the App. Replies and Logger are required; Cache and
// Tokens are optional.
type Options struct {
	Config  *config.AppConfig
	Replies *config.ReplyConfig
	Logger  *slog.Logger

	// Generator defaults to a service.Dispatcher over Replies.
	Generator ports.ReplyGenerator
	Cache     ports.ReplyCache
	Tokens    ports.TokenSource

	// Now defaults to time.Now.
	Now func() time.Time
}

// New creates a new App with all dependencies injected.
func New(opts Options) *App {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	generator := opts.Generator
	if generator == nil {
		generator = service.NewDispatcher(opts.Replies, opts.Logger)
	}

	a := &App{
		replies:   opts.Replies,
		generator: generator,
		cache:     opts.Cache,
		tokens:    opts.Tokens,
		encoder:   wechat.NewEncoder(now),
		logger:    opts.Logger.With("component", "webhook"),
		now:       now,
	}
	if opts.Config != nil {
		a.version = opts.Config.Version
		a.environment = opts.Config.Environment
	}
	return a
}

// Verify answers the server verification GET. It returns echostr, or
// WelcomeText when there is none. With a token configured the signature
// is mandatory.
func (a *App) Verify(ctx context.Context, params SignatureParams, echostr string) (string, error) {
	token, err := a.token(ctx)
	if err != nil {
		return "", err
	}
	if token != "" {
		if err := wechat.VerifySignature(token, params.Signature, params.Timestamp, params.Nonce); err != nil {
			metrics.SignatureFailures.Inc()
			a.logger.WarnContext(ctx, "verification signature mismatch")
			return "", err
		}
	}

	if echostr == "" {
		return WelcomeText, nil
	}
	a.logger.InfoContext(ctx, "answered server verification")
	return echostr, nil
}

// HandleMessage turns an inbound message into its passive reply.
//
// Only a bad signature is returned as an error (domain.ErrInvalidSignature);
// every other failure is answered with the default reply so the platform
// does not redeliver the message.
func (a *App) HandleMessage(ctx context.Context, req Request) (resp Response, err error) {
	start := a.now()
	format := wechat.ReplyFormat(req.ContentType)

	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "panic while handling message", "panic", fmt.Sprint(r))
			resp = a.fallback(ctx, req, format)
			err = nil
		}
		metrics.HandleDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			metrics.Replies.WithLabelValues(format.String(), string(resp.Outcome)).Inc()
		}
	}()

	if req.Signature.Signature != "" {
		if err := a.checkSignature(ctx, req.Signature); err != nil {
			return Response{}, err
		}
	}

	var msg *domain.Message
	if wechat.IsMarkup(req.ContentType, req.Body) {
		msg, err = service.ExtractMarkup(string(req.Body))
	} else {
		msg, err = service.ExtractJSON(req.Body)
	}
	if err != nil {
		metrics.ExtractionFailures.Inc()
		a.logger.WarnContext(ctx, "invalid message, answering with default reply",
			"error", err,
			"content_type", req.ContentType,
			"body_size", len(req.Body),
		)
		return a.fallback(ctx, req, format), nil
	}

	content, outcome := a.reply(ctx, msg)

	resp = a.encode(ctx, format, msg, content)
	resp.Outcome = outcome

	a.logger.InfoContext(ctx, "message answered",
		"msg_type", msg.MsgType,
		"from_user", logging.MaskUser(msg.FromUserName),
		"outcome", outcome,
		"format", format.String(),
		"duration", time.Since(start),
	)

	return resp, nil
}

// Health reports service status.
func (a *App) Health() Health {
	return Health{
		Status:      "ok",
		Timestamp:   a.now().UTC().Format(time.RFC3339),
		Version:     a.version,
		Environment: a.environment,
	}
}

func (a *App) token(ctx context.Context) (string, error) {
	if a.tokens == nil {
		return "", nil
	}
	token, err := a.tokens.Token(ctx)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to load webhook token", "error", err)
		return "", fmt.Errorf("load webhook token: %w", err)
	}
	return token, nil
}

func (a *App) checkSignature(ctx context.Context, params SignatureParams) error {
	token, err := a.token(ctx)
	if err != nil || token == "" {
		return err
	}
	if err := wechat.VerifySignature(token, params.Signature, params.Timestamp, params.Nonce); err != nil {
		metrics.SignatureFailures.Inc()
		a.logger.WarnContext(ctx, "message signature mismatch", "timestamp", params.Timestamp)
		return err
	}
	return nil
}

// reply consults the cache, then the generator. Cache failures only cost
// the lookup.
func (a *App) reply(ctx context.Context, msg *domain.Message) (string, domain.Outcome) {
	msgID := msg.MsgID()
	if a.cache == nil || msgID == "" {
		return a.generator.Reply(ctx, msg)
	}

	cached, err := a.cache.Get(ctx, msg.FromUserName, msgID)
	switch {
	case err == nil:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		a.logger.DebugContext(ctx, "answering redelivered message from cache", "msg_id", msgID)
		return cached, domain.OutcomeCached
	case errors.Is(err, domain.ErrNotFound):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		a.logger.WarnContext(ctx, "reply cache lookup failed", "error", err)
	}

	content, outcome := a.generator.Reply(ctx, msg)
	if err := a.cache.Put(ctx, msg.FromUserName, msgID, content); err != nil {
		a.logger.WarnContext(ctx, "failed to cache reply", "error", err)
	}
	return content, outcome
}

// fallback answers with the default reply, addressed from whatever user
// ids can still be read from the body.
func (a *App) fallback(ctx context.Context, req Request, format wechat.Format) Response {
	parties := service.ExtractParties(req.Body, wechat.IsMarkup(req.ContentType, req.Body))
	msg := &domain.Message{ToUserName: parties.ToUserName, FromUserName: parties.FromUserName}

	resp := a.encode(ctx, format, msg, a.replies.DefaultReply)
	resp.Outcome = domain.OutcomeFallback
	return resp
}

func (a *App) encode(ctx context.Context, format wechat.Format, msg *domain.Message, content string) Response {
	if format == wechat.FormatXML {
		out, err := a.encoder.XML(msg, content)
		if err == nil {
			return Response{ContentType: format.ContentType(), Body: []byte(out)}
		}
		a.logger.ErrorContext(ctx, "failed to encode xml reply, falling back to json", "error", err)
	}

	reply, err := a.encoder.JSON(msg, content)
	if err != nil {
		a.logger.WarnContext(ctx, "encoding reply", "error", err)
	}
	body, err := json.Marshal(reply)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to marshal json reply", "error", err)
		body = []byte(`{"MsgType":"text","Content":""}`)
	}
	return Response{ContentType: wechat.FormatJSON.ContentType(), Body: body}
}
