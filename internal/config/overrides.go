package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"autoreply-project/internal/domain"
)

// Environment variables that override the reply table.
const (
	EnvKeywords          = "KEYWORDS"
	EnvDefaultReply      = "DEFAULT_REPLY"
	EnvUnknownReply      = "UNKNOWN_MESSAGE_REPLY"
	EnvBusinessName      = "BUSINESS_NAME"
	EnvTemplateWithPOIID = "TEMPLATE_WITH_POIID"
	EnvTemplateNoPOIID   = "TEMPLATE_WITHOUT_POIID"
	EnvRedirectBaseURL   = "WECHATWEBAPPCONFIG_BASEURL"
	EnvCouponBaseURL     = "MEITUAN_LINKS_BASESHOPCOUPONLINK"
	envLinkPrefix        = "MEITUAN_LINKS_"
)

// ApplyEnvOverrides overrides reply settings from the environment.
// getenv is usually os.Getenv. Every override that parses is applied even
// when another one fails; the failures are returned joined.
func (c *ReplyConfig) ApplyEnvOverrides(getenv func(string) string) error {
	var errs []error

	if v := getenv(EnvKeywords); v != "" {
		rules, err := ParseKeywords(v)
		if err != nil {
			errs = append(errs, &domain.ConfigError{ConfigName: "env", Field: EnvKeywords, Err: err})
		} else {
			c.Keywords = rules
		}
	}

	setString(&c.DefaultReply, getenv(EnvDefaultReply))
	setString(&c.UnknownMessageReply, getenv(EnvUnknownReply))
	setString(&c.BusinessName, getenv(EnvBusinessName))
	setString(&c.Templates.WithPOIID, getenv(EnvTemplateWithPOIID))
	setString(&c.Templates.WithoutPOIID, getenv(EnvTemplateNoPOIID))
	setString(&c.RedirectBaseURL, getenv(EnvRedirectBaseURL))
	setString(&c.CouponBaseURL, getenv(EnvCouponBaseURL))

	// Env names are upper case, so only links that already exist can be
	// overridden: MEITUAN_LINKS_LINKA -> linkA.
	if len(c.Links) > 0 {
		links := make(map[string]string, len(c.Links))
		for name, v := range c.Links {
			if ev := getenv(envLinkPrefix + strings.ToUpper(name)); ev != "" {
				v = envString(ev)
			}
			links[name] = v
		}
		c.Links = links
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ParseKeywords decodes a keyword table given either as a list of
// {keyword, reply} objects or as a keyword -> reply object. Object keys
// keep their document order so the first-match rule stays predictable.
func ParseKeywords(s string) ([]KeywordRule, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return nil, fmt.Errorf("parse keywords: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("parse keywords: empty document")
	}

	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var rules []KeywordRule
		if err := root.Decode(&rules); err != nil {
			return nil, fmt.Errorf("decode keyword list: %w", err)
		}
		return rules, nil
	case yaml.MappingNode:
		rules := make([]KeywordRule, 0, len(root.Content)/2)
		for i := 0; i+1 < len(root.Content); i += 2 {
			k, v := root.Content[i], root.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("keyword %q: reply must be a string", k.Value)
			}
			rules = append(rules, KeywordRule{Keyword: k.Value, Reply: v.Value})
		}
		return rules, nil
	default:
		return nil, errors.New("parse keywords: expected a list or an object")
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = envString(v)
	}
}

// envString accepts both plain values and JSON string literals.
func envString(v string) string {
	if strings.HasPrefix(v, `"`) {
		var s string
		if err := json.Unmarshal([]byte(v), &s); err == nil {
			return s
		}
	}
	return v
}
