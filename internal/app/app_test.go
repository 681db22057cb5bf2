package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoreply-project/internal/adapters/wechat"
	"autoreply-project/internal/config"
	"autoreply-project/internal/domain"
	"autoreply-project/internal/service"
)

var fixedNow = time.Unix(1700000123, 0)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testReplies() *config.ReplyConfig {
	cfg := config.DefaultReplyConfig()
	cfg.DefaultReply = "DEFAULT"
	cfg.Keywords = []config.KeywordRule{
		{Keyword: "测试", Reply: "A"},
		{Keyword: "试", Reply: "B"},
	}
	cfg.Normalize()
	return cfg
}

type recordingGenerator struct {
	calls int
	reply string
	panic bool
}

func (g *recordingGenerator) Reply(_ context.Context, msg *domain.Message) (string, domain.Outcome) {
	g.calls++
	if g.panic {
		panic("boom")
	}
	return g.reply, domain.OutcomeKeyword
}

type memoryCache struct {
	entries map[string]string
	getErr  error
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]string{}}
}

func (c *memoryCache) Get(_ context.Context, sender, msgID string) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	v, ok := c.entries[sender+"/"+msgID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (c *memoryCache) Put(_ context.Context, sender, msgID, content string) error {
	c.puts++
	if _, ok := c.entries[sender+"/"+msgID]; !ok {
		c.entries[sender+"/"+msgID] = content
	}
	return nil
}

type staticToken string

func (s staticToken) Token(context.Context) (string, error) { return string(s), nil }

type failingToken struct{}

func (failingToken) Token(context.Context) (string, error) { return "", errors.New("secrets unavailable") }

func newApp(opts Options) *App {
	if opts.Replies == nil {
		opts.Replies = testReplies()
	}
	opts.Logger = testLogger()
	opts.Now = func() time.Time { return fixedNow }
	return New(opts)
}

func textXML(content string) []byte {
	return []byte(`<xml><ToUserName><![CDATA[gh_service]]></ToUserName>` +
		`<FromUserName><![CDATA[o_user_123456]]></FromUserName>` +
		`<CreateTime>1700000000</CreateTime><MsgType><![CDATA[text]]></MsgType>` +
		`<Content><![CDATA[` + content + `]]></Content><MsgId>42</MsgId></xml>`)
}

func TestHandleMessage_XMLKeyword(t *testing.T) {
	a := newApp(Options{})

	resp, err := a.HandleMessage(context.Background(), Request{Body: textXML("我来测试"), ContentType: "text/xml"})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeKeyword, resp.Outcome)
	assert.Contains(t, resp.ContentType, "xml")

	reply, err := service.ExtractMarkup(string(resp.Body))
	require.NoError(t, err)
	assert.Equal(t, "A", reply.Text.Content)
	assert.Equal(t, "o_user_123456", reply.ToUserName)
	assert.Equal(t, "gh_service", reply.FromUserName)
	assert.Equal(t, "1700000123", reply.CreateTime)
}

func TestHandleMessage_JSON(t *testing.T) {
	a := newApp(Options{})

	body := `{"toUserName":"gh_service","fromUserName":"o_user_123456","msgType":"text","content":"你好"}`
	resp, err := a.HandleMessage(context.Background(), Request{Body: []byte(body), ContentType: "application/json"})
	require.NoError(t, err)

	var reply domain.Reply
	require.NoError(t, json.Unmarshal(resp.Body, &reply))
	assert.Equal(t, domain.Reply{
		ToUserName:   "o_user_123456",
		FromUserName: "gh_service",
		CreateTime:   fixedNow.Unix(),
		MsgType:      "text",
		Content:      "DEFAULT",
	}, reply)
	assert.Equal(t, domain.OutcomeDefault, resp.Outcome)
}

func TestHandleMessage_UnlabelledXMLIsParsed(t *testing.T) {
	a := newApp(Options{})

	resp, err := a.HandleMessage(context.Background(), Request{Body: textXML("试试"), ContentType: ""})
	require.NoError(t, err)

	var reply domain.Reply
	require.NoError(t, json.Unmarshal(resp.Body, &reply))
	assert.Equal(t, "B", reply.Content)
	assert.Equal(t, "o_user_123456", reply.ToUserName)
}

func TestHandleMessage_MissingSenderSkipsGenerator(t *testing.T) {
	gen := &recordingGenerator{reply: "never"}
	a := newApp(Options{Generator: gen})

	body := `<xml><ToUserName><![CDATA[gh_service]]></ToUserName><MsgType><![CDATA[text]]></MsgType><Content><![CDATA[测试]]></Content></xml>`
	resp, err := a.HandleMessage(context.Background(), Request{Body: []byte(body), ContentType: "application/xml"})
	require.NoError(t, err)

	assert.Equal(t, 0, gen.calls)
	assert.Equal(t, domain.OutcomeFallback, resp.Outcome)
	assert.Contains(t, string(resp.Body), "<Content><![CDATA[DEFAULT]]></Content>")
	assert.Contains(t, string(resp.Body), "<FromUserName><![CDATA[gh_service]]></FromUserName>")
}

func TestHandleMessage_GarbageJSON(t *testing.T) {
	a := newApp(Options{})

	resp, err := a.HandleMessage(context.Background(), Request{Body: []byte("not json"), ContentType: "application/json"})
	require.NoError(t, err)

	var reply domain.Reply
	require.NoError(t, json.Unmarshal(resp.Body, &reply))
	assert.Equal(t, "DEFAULT", reply.Content)
	assert.Empty(t, reply.ToUserName)
}

func TestHandleMessage_PanicFallsBack(t *testing.T) {
	a := newApp(Options{Generator: &recordingGenerator{panic: true}})

	resp, err := a.HandleMessage(context.Background(), Request{Body: textXML("测试"), ContentType: "text/xml"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeFallback, resp.Outcome)
	assert.Contains(t, string(resp.Body), "DEFAULT")
	assert.Contains(t, string(resp.Body), "<ToUserName><![CDATA[o_user_123456]]></ToUserName>")
}

func TestHandleMessage_CardEndToEnd(t *testing.T) {
	replies := testReplies()
	a := newApp(Options{Replies: replies})

	body := `<xml><ToUserName><![CDATA[gh_service]]></ToUserName><FromUserName><![CDATA[o_user_123456]]></FromUserName>` +
		`<CreateTime>1700000000</CreateTime><MsgType><![CDATA[miniprogrampage]]></MsgType><MsgId>7</MsgId>` +
		`<Title><![CDATA[T]]></Title><PagePath><![CDATA[pages/shop/item?poiid=999]]></PagePath></xml>`

	resp, err := a.HandleMessage(context.Background(), Request{Body: []byte(body), ContentType: "text/xml"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCard, resp.Outcome)

	reply, err := service.ExtractMarkup(string(resp.Body))
	require.NoError(t, err)
	assert.Contains(t, reply.Text.Content, service.EncodeURIComponent(replies.CouponBaseURL+"999"))
	assert.Contains(t, reply.Text.Content, replies.RedirectBaseURL+service.EncodeURIComponent(replies.Links["linkA"]))
}

func TestHandleMessage_Cache(t *testing.T) {
	cache := newMemoryCache()
	gen := &recordingGenerator{reply: "first"}
	a := newApp(Options{Generator: gen, Cache: cache})

	req := Request{Body: textXML("hello"), ContentType: "text/xml"}

	resp, err := a.HandleMessage(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeKeyword, resp.Outcome)

	gen.reply = "second"
	resp, err = a.HandleMessage(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeCached, resp.Outcome)
	assert.Contains(t, string(resp.Body), "first")
	assert.Equal(t, 1, gen.calls)
}

func TestHandleMessage_CacheErrorStillReplies(t *testing.T) {
	cache := newMemoryCache()
	cache.getErr = errors.New("connection refused")
	gen := &recordingGenerator{reply: "fresh"}
	a := newApp(Options{Generator: gen, Cache: cache})

	resp, err := a.HandleMessage(context.Background(), Request{Body: textXML("hello"), ContentType: "text/xml"})
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "fresh")
	assert.Equal(t, 1, cache.puts)
}

func TestHandleMessage_Signature(t *testing.T) {
	a := newApp(Options{Tokens: staticToken("secret")})
	good := SignatureParams{
		Signature: wechat.Signature("secret", "1700000000", "n1"),
		Timestamp: "1700000000",
		Nonce:     "n1",
	}

	_, err := a.HandleMessage(context.Background(), Request{Body: textXML("测试"), ContentType: "text/xml", Signature: good})
	require.NoError(t, err)

	bad := good
	bad.Nonce = "n2"
	_, err = a.HandleMessage(context.Background(), Request{Body: textXML("测试"), ContentType: "text/xml", Signature: bad})
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	// Unsigned requests are accepted; cloud hosted deliveries carry no signature.
	_, err = a.HandleMessage(context.Background(), Request{Body: textXML("测试"), ContentType: "text/xml"})
	assert.NoError(t, err)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	open := newApp(Options{})
	out, err := open.Verify(ctx, SignatureParams{}, "echo-123")
	require.NoError(t, err)
	assert.Equal(t, "echo-123", out)

	out, err = open.Verify(ctx, SignatureParams{}, "")
	require.NoError(t, err)
	assert.Equal(t, WelcomeText, out)

	secured := newApp(Options{Tokens: staticToken("secret")})
	_, err = secured.Verify(ctx, SignatureParams{}, "echo-123")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	params := SignatureParams{Signature: wechat.Signature("secret", "1", "2"), Timestamp: "1", Nonce: "2"}
	out, err = secured.Verify(ctx, params, "echo-123")
	require.NoError(t, err)
	assert.Equal(t, "echo-123", out)

	broken := newApp(Options{Tokens: failingToken{}})
	_, err = broken.Verify(ctx, params, "echo-123")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrInvalidSignature))
}

func TestHealth(t *testing.T) {
	a := newApp(Options{Config: &config.AppConfig{Version: "1.2.3", Environment: "test"}})

	h := a.Health()
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "1.2.3", h.Version)
	assert.Equal(t, "test", h.Environment)
	assert.True(t, strings.HasPrefix(h.Timestamp, "2023-11-14T"))
}
