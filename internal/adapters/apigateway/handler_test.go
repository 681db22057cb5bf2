package apigateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoreply-project/internal/adapters/wechat"
	"autoreply-project/internal/app"
	"autoreply-project/internal/config"
	"autoreply-project/internal/domain"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

func newTestHandler(opts app.Options) *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	replies := config.DefaultReplyConfig()
	replies.Normalize()
	opts.Replies = replies
	opts.Logger = logger
	return NewHandler(app.New(opts), 1<<20, logger)
}

const inboundXML = `<xml><ToUserName><![CDATA[gh_service]]></ToUserName>` +
	`<FromUserName><![CDATA[o_user_123456]]></FromUserName>` +
	`<MsgType><![CDATA[text]]></MsgType><Content><![CDATA[测试]]></Content></xml>`

func TestHandle_PostXML(t *testing.T) {
	h := newTestHandler(app.Options{})

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		Path:       "/webhook",
		HTTPMethod: http.MethodPost,
		Headers:    map[string]string{"content-type": "text/xml"},
		Body:       inboundXML,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Headers["Content-Type"], "xml")
	assert.Contains(t, resp.Body, "<Content><![CDATA[测试完成。]]></Content>")
}

func TestHandle_PostBase64JSON(t *testing.T) {
	h := newTestHandler(app.Options{})
	body := `{"ToUserName":"gh_service","FromUserName":"o_user_123456","MsgType":"text","Content":"测试"}`

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		Path:              "/webhook",
		HTTPMethod:        http.MethodPost,
		MultiValueHeaders: map[string][]string{"Content-Type": {"application/json"}},
		Body:              base64.StdEncoding.EncodeToString([]byte(body)),
		IsBase64Encoded:   true,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reply domain.Reply
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &reply))
	assert.Equal(t, "测试完成。", reply.Content)
	assert.Equal(t, "o_user_123456", reply.ToUserName)
}

func TestHandle_InvalidBase64(t *testing.T) {
	h := newTestHandler(app.Options{})

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		Path:            "/webhook",
		HTTPMethod:      http.MethodPost,
		Body:            "!!!not base64",
		IsBase64Encoded: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandle_Verify(t *testing.T) {
	h := newTestHandler(app.Options{Tokens: staticToken("secret")})

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		Path:       "/webhook",
		HTTPMethod: http.MethodGet,
		QueryStringParameters: map[string]string{
			"signature": wechat.Signature("secret", "1", "2"),
			"timestamp": "1",
			"nonce":     "2",
			"echostr":   "hello",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello", resp.Body)

	resp, err = h.Handle(context.Background(), events.APIGatewayProxyRequest{
		Path:                  "/webhook",
		HTTPMethod:            http.MethodGet,
		QueryStringParameters: map[string]string{"echostr": "hello"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHandle_HealthAndNotFound(t *testing.T) {
	h := newTestHandler(app.Options{Config: &config.AppConfig{Version: "9.9.9", Environment: "lambda"}})

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{Path: "/health", HTTPMethod: http.MethodGet})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Body, `"version":"9.9.9"`)

	resp, err = h.Handle(context.Background(), events.APIGatewayProxyRequest{
		Path:       "/missing",
		HTTPMethod: http.MethodGet,
		Headers:    map[string]string{"Accept": "application/json"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Body, `"code":"NOT_FOUND"`)
}

func TestHandle_BodyTooLarge(t *testing.T) {
	h := newTestHandler(app.Options{})
	h.maxBodyBytes = 8

	resp, err := h.Handle(context.Background(), events.APIGatewayProxyRequest{
		Path:       "/webhook",
		HTTPMethod: http.MethodPost,
		Body:       inboundXML,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}
