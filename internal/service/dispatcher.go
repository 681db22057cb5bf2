package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"autoreply-project/internal/config"
	"autoreply-project/internal/domain"
	"autoreply-project/internal/logging"
)

const (
	defaultPageTitle    = "商品页面"
	unknownPOIID        = "未知"
	defaultBusinessName = "商家名称"
)

// Dispatcher picks the reply text for an extracted message.
type Dispatcher struct {
	cfg      *config.ReplyConfig
	renderer *Renderer
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over an immutable reply table.
func NewDispatcher(cfg *config.ReplyConfig, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		renderer: NewRenderer(cfg.RedirectBaseURL),
		logger:   logger.With("component", "dispatcher"),
	}
}

// Reply returns the reply content for msg and the rule that produced it.
// It never fails: render errors and panics yield the default reply.
func (d *Dispatcher) Reply(ctx context.Context, msg *domain.Message) (content string, outcome domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "dispatch panicked", "panic", fmt.Sprint(r))
			content, outcome = d.cfg.DefaultReply, domain.OutcomeFallback
		}
	}()

	if msg == nil {
		return d.cfg.DefaultReply, domain.OutcomeFallback
	}
	d.logger.DebugContext(ctx, "dispatching message", describe(msg)...)

	switch msg.Kind() {
	case domain.KindText:
		return d.replyText(ctx, msg)
	case domain.KindMiniprogramPage:
		return d.replyCard(ctx, msg)
	default:
		d.logger.InfoContext(ctx, "unsupported message type", describe(msg)...)
		return d.cfg.ReplyForUnknown(), domain.OutcomeUnknown
	}
}

func (d *Dispatcher) replyText(ctx context.Context, msg *domain.Message) (string, domain.Outcome) {
	content := ""
	if msg.Text != nil {
		content = strings.TrimSpace(msg.Text.Content)
	}
	if content == "" {
		return d.cfg.DefaultReply, domain.OutcomeDefault
	}

	for _, rule := range d.cfg.Keywords {
		if rule.Keyword == "" || !strings.Contains(content, rule.Keyword) {
			continue
		}
		d.logger.DebugContext(ctx, "keyword matched", "keyword", rule.Keyword)

		if !strings.Contains(rule.Reply, "{{") {
			return rule.Reply, domain.OutcomeKeyword
		}
		out, err := d.renderer.Render(rule.Reply, map[string]any{
			"content": content,
			"keyword": rule.Keyword,
		})
		if err != nil {
			d.logger.WarnContext(ctx, "render keyword reply", "keyword", rule.Keyword, "error", err)
			return d.cfg.DefaultReply, domain.OutcomeFallback
		}
		return out, domain.OutcomeKeyword
	}

	return d.cfg.DefaultReply, domain.OutcomeDefault
}

func (d *Dispatcher) replyCard(ctx context.Context, msg *domain.Message) (string, domain.Outcome) {
	card := msg.Card
	if card == nil || card.PagePath == "" {
		d.logger.WarnContext(ctx, "card without page path")
		return d.cfg.DefaultReply, domain.OutcomeFallback
	}

	poiid, found := ExtractPOIID(card.PagePath)
	data := d.cardContext(card, poiid, found)

	tmpl := d.cardTemplate(found)
	out, err := d.renderer.Render(tmpl, data)
	if err != nil {
		d.logger.WarnContext(ctx, "render card reply", "error", err)
		return d.cfg.DefaultReply, domain.OutcomeFallback
	}

	d.logger.DebugContext(ctx, "card reply rendered",
		"poiid", poiid,
		"page_path", card.PagePath,
		"length", len(out),
	)
	if !found {
		return out, domain.OutcomeCardNoPOI
	}
	return out, domain.OutcomeCard
}

func (d *Dispatcher) cardContext(card *domain.MiniprogramCard, poiid string, found bool) map[string]any {
	data := make(map[string]any, len(d.cfg.Links)+4)
	for name, link := range d.cfg.Links {
		data[name] = link
	}

	title := card.Title
	if title == "" {
		title = defaultPageTitle
	}
	data["pageTitle"] = title

	// couponLink stays nil without an id, which renders as "".
	var coupon any
	if found && d.cfg.CouponBaseURL != "" {
		coupon = d.cfg.CouponBaseURL + poiid
	}
	data["couponLink"] = coupon
	data["shopCouponLink"] = coupon

	if found {
		data["poiid"] = poiid
	} else {
		data["poiid"] = unknownPOIID
	}
	return data
}

func (d *Dispatcher) cardTemplate(found bool) string {
	t := d.cfg.Templates
	if !found && t.WithoutPOIID != "" {
		return t.WithoutPOIID
	}
	if t.WithPOIID != "" {
		return t.WithPOIID
	}

	business := d.cfg.BusinessName
	if business == "" {
		business = defaultBusinessName
	}
	return "【" + business + "】\n" + `您查看的商品：{{pageTitle}}

为您准备了专属优惠，点击下方链接领取：
{{couponLink}}

更多优惠活动：
{{linkA}}
{{linkB}}
{{linkC}}`
}

// describe identifies a message in log lines without its content.
func describe(msg *domain.Message) []any {
	if msg == nil {
		return nil
	}
	return []any{
		"msg_type", msg.MsgType,
		"msg_id", msg.MsgID(),
		"from_user", logging.MaskUser(msg.FromUserName),
	}
}
