package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"autoreply-project/internal/adapters/wechat"
	"autoreply-project/internal/domain"
	"autoreply-project/internal/logging"
	"autoreply-project/internal/service"
)

const maxReplyBytes = 1 << 20

// Client implements ports.Messenger.
// It posts messages to a webhook the way the platform does and decodes the
// passive reply.
type Client struct {
	httpClient *http.Client
	webhookURL string
	format     wechat.Format
	token      string
	now        func() time.Time
	logger     *slog.Logger
}

// NewClient creates a new messaging client. With a non-empty token every
// request is signed.
func NewClient(webhookURL string, format wechat.Format, token string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
		format:     format,
		token:      token,
		now:        time.Now,
		logger:     logger.With("component", "messenger"),
	}
}

// Send delivers msg and returns the reply the webhook answered with.
func (c *Client) Send(ctx context.Context, msg *domain.Message) (*domain.Reply, error) {
	body, err := wechat.EncodeInbound(msg, c.format)
	if err != nil {
		return nil, err
	}

	target, err := c.signedURL()
	if err != nil {
		return nil, &domain.DeliveryError{URL: c.webhookURL, Err: fmt.Errorf("%w: %v", domain.ErrDelivery, err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, &domain.DeliveryError{URL: c.webhookURL, Err: fmt.Errorf("%w: %v", domain.ErrDelivery, err)}
	}
	req.Header.Set("Content-Type", c.format.ContentType())

	c.logger.InfoContext(ctx, "sending message",
		"msg_type", msg.MsgType,
		"from_user", logging.MaskUser(msg.FromUserName),
		"format", c.format.String(),
	)
	c.logger.DebugContext(ctx, "message payload", "payload", string(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.DeliveryError{URL: c.webhookURL, Err: fmt.Errorf("%w: %v", domain.ErrDelivery, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, &domain.DeliveryError{URL: c.webhookURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: read reply: %v", domain.ErrDelivery, err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &domain.DeliveryError{
			URL:        c.webhookURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%w: %s", domain.ErrDelivery, bytes.TrimSpace(data)),
		}
	}

	reply, err := decodeReply(resp.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, &domain.DeliveryError{URL: c.webhookURL, StatusCode: resp.StatusCode, Err: err}
	}
	return reply, nil
}

func (c *Client) signedURL() (string, error) {
	if c.token == "" {
		return c.webhookURL, nil
	}
	u, err := url.Parse(c.webhookURL)
	if err != nil {
		return "", err
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	nonce := uuid.NewString()

	q := u.Query()
	q.Set("timestamp", timestamp)
	q.Set("nonce", nonce)
	q.Set("signature", wechat.Signature(c.token, timestamp, nonce))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// decodeReply reads an XML or JSON passive reply.
func decodeReply(contentType string, data []byte) (*domain.Reply, error) {
	if !wechat.IsMarkup(contentType, data) {
		var reply domain.Reply
		if err := json.Unmarshal(data, &reply); err != nil {
			return nil, fmt.Errorf("%w: decode json reply: %v", domain.ErrDelivery, err)
		}
		return &reply, nil
	}

	msg, err := service.ExtractMarkup(string(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode xml reply: %w", domain.ErrDelivery, err)
	}
	reply := &domain.Reply{
		ToUserName:   msg.ToUserName,
		FromUserName: msg.FromUserName,
		MsgType:      msg.MsgType,
	}
	if msg.Text != nil {
		reply.Content = msg.Text.Content
	}
	if msg.CreateTime != "" {
		if ts, err := strconv.ParseInt(msg.CreateTime, 10, 64); err == nil {
			reply.CreateTime = ts
		}
	}
	return reply, nil
}
