package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoreply-project/internal/config"
	"autoreply-project/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testReplyConfig() *config.ReplyConfig {
	return &config.ReplyConfig{
		Keywords: []config.KeywordRule{
			{Keyword: "测试", Reply: "A"},
			{Keyword: "试", Reply: "B"},
			{Keyword: "echo", Reply: "you said {{content}} ({{keyword}})"},
		},
		DefaultReply:    "DEFAULT",
		RedirectBaseURL: "R?t=",
		CouponBaseURL:   "https://coupon.example/?poiid=",
		Links: map[string]string{
			"linkA": "https://a.example",
			"linkC": "#小程序://美团外卖/abc",
		},
		Templates: config.CardTemplates{
			WithPOIID: "{{pageTitle}}|{{poiid}}|{{couponLink}}|{{linkA}}|{{linkC}}",
		},
	}
}

func textMessage(content string) *domain.Message {
	return &domain.Message{
		ToUserName:   "gh_service",
		FromUserName: "o_user_123456",
		MsgType:      "text",
		Text:         &domain.TextBody{Content: content, MsgID: "1"},
	}
}

func cardMessage(title, pagePath string) *domain.Message {
	return &domain.Message{
		ToUserName:   "gh_service",
		FromUserName: "o_user_123456",
		MsgType:      "miniprogrampage",
		Card:         &domain.MiniprogramCard{Title: title, PagePath: pagePath},
	}
}

func TestDispatcher_Text(t *testing.T) {
	d := NewDispatcher(testReplyConfig(), testLogger())
	ctx := context.Background()

	tests := []struct {
		name        string
		content     string
		want        string
		wantOutcome domain.Outcome
	}{
		{"first match in table order", "我来测试", "A", domain.OutcomeKeyword},
		{"second keyword", "试一下", "B", domain.OutcomeKeyword},
		{"rendered reply", "  echo me  ", "you said echo me (echo)", domain.OutcomeKeyword},
		{"no match", "你好", "DEFAULT", domain.OutcomeDefault},
		{"blank content", "   ", "DEFAULT", domain.OutcomeDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, outcome := d.Reply(ctx, textMessage(tt.content))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOutcome, outcome)
		})
	}
}

func TestDispatcher_TextWithoutBody(t *testing.T) {
	d := NewDispatcher(testReplyConfig(), testLogger())
	msg := textMessage("")
	msg.Text = nil

	got, _ := d.Reply(context.Background(), msg)
	assert.Equal(t, "DEFAULT", got)
}

func TestDispatcher_Card(t *testing.T) {
	d := NewDispatcher(testReplyConfig(), testLogger())

	got, outcome := d.Reply(context.Background(), cardMessage("T", "pages/item?poiid=999"))

	assert.Equal(t, domain.OutcomeCard, outcome)
	want := "T|999|" +
		"R?t=" + EncodeURIComponent("https://coupon.example/?poiid=999") + "|" +
		"R?t=" + EncodeURIComponent("https://a.example") + "|" +
		"#小程序://美团外卖/abc"
	assert.Equal(t, want, got)
}

func TestDispatcher_CardWithoutPOIID(t *testing.T) {
	cfg := testReplyConfig()
	d := NewDispatcher(cfg, testLogger())

	got, outcome := d.Reply(context.Background(), cardMessage("", "pages/item"))
	assert.Equal(t, domain.OutcomeCardNoPOI, outcome)
	assert.True(t, strings.HasPrefix(got, "商品页面|未知||"), got)

	cfg.Templates.WithoutPOIID = "missing {{poiid}}"
	d = NewDispatcher(cfg, testLogger())
	got, _ = d.Reply(context.Background(), cardMessage("", "pages/item"))
	assert.Equal(t, "missing 未知", got)
}

func TestDispatcher_CardBuiltinTemplate(t *testing.T) {
	cfg := testReplyConfig()
	cfg.Templates = config.CardTemplates{}
	cfg.BusinessName = "小店"
	d := NewDispatcher(cfg, testLogger())

	got, _ := d.Reply(context.Background(), cardMessage("奶茶", "pages/item?poiid=42"))
	assert.Contains(t, got, "【小店】")
	assert.Contains(t, got, "您查看的商品：奶茶")
	assert.Contains(t, got, EncodeURIComponent("https://coupon.example/?poiid=42"))
	assert.Contains(t, got, "#小程序://美团外卖/abc")
	assert.NotContains(t, got, "{{couponLink}}")
}

func TestDispatcher_CardWithoutPagePath(t *testing.T) {
	d := NewDispatcher(testReplyConfig(), testLogger())

	got, outcome := d.Reply(context.Background(), cardMessage("T", ""))
	assert.Equal(t, "DEFAULT", got)
	assert.Equal(t, domain.OutcomeFallback, outcome)
}

func TestDispatcher_Unknown(t *testing.T) {
	cfg := testReplyConfig()
	d := NewDispatcher(cfg, testLogger())
	msg := &domain.Message{ToUserName: "a", FromUserName: "b", MsgType: "image"}

	got, outcome := d.Reply(context.Background(), msg)
	assert.Equal(t, "DEFAULT", got)
	assert.Equal(t, domain.OutcomeUnknown, outcome)

	cfg.UnknownMessageReply = "暂不支持"
	got, _ = NewDispatcher(cfg, testLogger()).Reply(context.Background(), msg)
	assert.Equal(t, "暂不支持", got)
}

func TestDispatcher_NilMessage(t *testing.T) {
	d := NewDispatcher(testReplyConfig(), testLogger())
	got, outcome := d.Reply(context.Background(), nil)
	assert.Equal(t, "DEFAULT", got)
	assert.Equal(t, domain.OutcomeFallback, outcome)
}

func TestDispatcher_EndToEndMarkupCard(t *testing.T) {
	cfg := config.DefaultReplyConfig()
	cfg.Normalize()
	require.NoError(t, cfg.Validate())
	d := NewDispatcher(cfg, testLogger())

	msg, err := ExtractMarkup(cardMarkup)
	require.NoError(t, err)

	got, outcome := d.Reply(context.Background(), msg)
	assert.Equal(t, domain.OutcomeCard, outcome)
	assert.Contains(t, got, EncodeURIComponent(cfg.CouponBaseURL+"999"))
	assert.Contains(t, got, cfg.RedirectBaseURL+EncodeURIComponent(cfg.Links["linkA"]))
	assert.Contains(t, got, cfg.Links["linkC"])
	assert.NotContains(t, got, "{{")
}
