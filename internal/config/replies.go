package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"autoreply-project/internal/domain"
)

// ReplyConfig is the read-only reply table shared by all requests.
// It is built once at startup and must not be modified afterwards.
type ReplyConfig struct {
	// Keywords are matched in list order; the first hit wins.
	Keywords            []KeywordRule     `yaml:"keywords"`
	DefaultReply        string            `yaml:"default_reply"`
	UnknownMessageReply string            `yaml:"unknown_message_reply"`
	BusinessName        string            `yaml:"business_name"`
	Templates           CardTemplates     `yaml:"templates"`
	Links               map[string]string `yaml:"links"`
	RedirectBaseURL     string            `yaml:"redirect_base_url"`
	CouponBaseURL       string            `yaml:"coupon_base_url"`
}

// KeywordRule maps a keyword to its reply. The reply may contain
// {{content}} and {{keyword}} placeholders.
type KeywordRule struct {
	Keyword string `yaml:"keyword" json:"keyword"`
	Reply   string `yaml:"reply" json:"reply"`
}

// CardTemplates holds the replies for mini-program cards.
type CardTemplates struct {
	// WithPOIID is the card reply template.
	WithPOIID string `yaml:"with_poiid"`
	// WithoutPOIID, when set, replaces WithPOIID for cards whose page path
	// carries no poiid.
	WithoutPOIID string `yaml:"without_poiid"`
}

const (
	fallbackDefaultReply = "感谢您的消息！"
	defaultRedirectBase  = "weixin://dl/business/?t="
)

// DefaultReplyConfig returns the built-in reply table.
func DefaultReplyConfig() *ReplyConfig {
	return &ReplyConfig{
		Keywords: []KeywordRule{
			{Keyword: "测试", Reply: "测试完成。"},
		},
		DefaultReply:    "感谢您的消息！请发送美团外卖小程序卡片获取专属福利，其他功能请等待上线。",
		RedirectBaseURL: defaultRedirectBase,
		Links: map[string]string{
			"linkA": " `https://kurl01.cn/75Mx7a` ",
			"linkB": " `https://kurl01.cn/75Mx7f` ",
			"linkC": "#小程序://美团外卖丨外卖美食奶茶咖啡水果/kPOfmjsimwLLIxC",
			"linkD": "#小程序://美团外卖丨外卖美食奶茶咖啡水果/AM0JMCilcHUdQMp",
			"linkE": " `https://offsiteact.meituan.com/web/hoae/collection_waimai_v8/index.html?recallBizId=cpsH5Coupon&bizId=224ac1afd8674632ae7b85226f192d82&mediumSrc1=224ac1afd8674632ae7b85226f192d82&scene=CPS_SELF_SRC&pageSrc1=CPS_SELF_OUT_SRC_H5_LINK&pageSrc2=224ac1afd8674632ae7b85226f192d82&pageSrc3=f9f5776e716941fdaba720b243525425&activityId=6&mediaPvId=dafkdsajffjafdfs&mediaUserId=10086&outActivityId=6&hoaePageV=8&p=1006228694084128768` ",
			"linkF": " `https://kurl02.cn/75Mx80` ",
		},
		CouponBaseURL: " `https://offsiteact.meituan.com/web/hoae/collection_waimai_v8/index.html?recallBizId=cpsH5Coupon&bizId=224ac1afd8674632ae7b85226f192d82&mediumSrc1=224ac1afd8674632ae7b85226f192d82&scene=CPS_SELF_SRC&pageSrc1=CPS_SELF_OUT_SRC_H5_LINK&pageSrc2=224ac1afd8674632ae7b85226f192d82&pageSrc3=f9f5776e716941fdaba720b243525425&activityId=6&mediaPvId=dafkdsajffjafdfs&mediaUserId=10086&outActivityId=6&hoaePageV=8&p=1006228694084128768` ",
		Templates: CardTemplates{
			WithPOIID: `【美团外卖专属福利】
 -
 1. 点我领取美团红包1 → {{linkA}}
 -
 2. 点我领取美团红包2 → {{linkB}}
 -
 3. 点我领取商家券 → {{shopCouponLink}}
 -
 4. 免配入口 → {{linkC}}
 -
 5. 点我领取淘宝闪购红包 → {{linkF}}
 `,
			WithoutPOIID: `【提示】获取失败，请检查是否通过"美团外卖"小程序收藏的
 美团外卖小程序 → {{linkD}}

 【美团外卖福利】
 -
 1. 点我领取美团红包1 → {{linkA}}
 -
 2. 点我领取美团红包2 → {{linkB}}
 -
 3. 点我领取商家券 → {{linkE}}
 -
 4. 免配入口 → {{linkC}}
 -
 5. 点我领取淘宝闪购红包 → {{linkF}}
 `,
		},
	}
}

// ParseReplyConfig decodes a YAML reply configuration. Fields missing from
// the document keep their built-in defaults.
func ParseReplyConfig(data []byte) (*ReplyConfig, error) {
	var cfg ReplyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &domain.ConfigError{ConfigName: "replies", Err: fmt.Errorf("parse yaml: %w", err)}
	}
	cfg.fillFrom(DefaultReplyConfig())
	return &cfg, nil
}

// fillFrom copies every unset field from def.
func (c *ReplyConfig) fillFrom(def *ReplyConfig) {
	if c.Keywords == nil {
		c.Keywords = def.Keywords
	}
	if c.DefaultReply == "" {
		c.DefaultReply = def.DefaultReply
	}
	if c.UnknownMessageReply == "" {
		c.UnknownMessageReply = def.UnknownMessageReply
	}
	if c.BusinessName == "" {
		c.BusinessName = def.BusinessName
	}
	if c.Templates.WithPOIID == "" && c.Templates.WithoutPOIID == "" {
		c.Templates = def.Templates
	}
	if c.Links == nil {
		c.Links = def.Links
	}
	if c.RedirectBaseURL == "" {
		c.RedirectBaseURL = def.RedirectBaseURL
	}
	if c.CouponBaseURL == "" {
		c.CouponBaseURL = def.CouponBaseURL
	}
}

// Normalize strips the backtick markers some deployments put around link
// values and fills an empty default reply.
func (c *ReplyConfig) Normalize() {
	links := make(map[string]string, len(c.Links))
	for name, v := range c.Links {
		links[name] = domain.TrimLinkMarkers(v)
	}
	c.Links = links
	c.RedirectBaseURL = domain.TrimLinkMarkers(c.RedirectBaseURL)
	c.CouponBaseURL = domain.TrimLinkMarkers(c.CouponBaseURL)
	if c.DefaultReply == "" {
		c.DefaultReply = fallbackDefaultReply
	}
}

// ReplyForUnknown returns the reply for unsupported message kinds.
func (c *ReplyConfig) ReplyForUnknown() string {
	if c.UnknownMessageReply != "" {
		return c.UnknownMessageReply
	}
	return c.DefaultReply
}
