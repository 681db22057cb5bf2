package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate validates the application configuration.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.HTTP.Addr == "" || c.HTTP.Addr == ":" {
		errs = append(errs, errors.New("http address is required"))
	}

	if c.HTTP.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("http max body bytes must be positive"))
	}

	if c.HTTP.RateLimitPerMin < 0 || c.HTTP.RateLimitBurst < 0 {
		errs = append(errs, errors.New("rate limit settings must not be negative"))
	}

	if c.Cache.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis address is required when the reply cache is enabled"))
		}
		if c.Redis.DialTimeout <= 0 {
			errs = append(errs, errors.New("redis dial timeout must be positive"))
		}
		if c.Cache.TTL <= 0 {
			errs = append(errs, errors.New("reply cache TTL must be positive"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %w", errors.Join(errs...))
	}

	return nil
}

// Validate validates a reply configuration.
func (c *ReplyConfig) Validate() error {
	var errs []error

	if strings.TrimSpace(c.DefaultReply) == "" {
		errs = append(errs, errors.New("default_reply is required"))
	}

	if c.RedirectBaseURL == "" {
		errs = append(errs, errors.New("redirect_base_url is required"))
	}

	for i, rule := range c.Keywords {
		if rule.Keyword == "" {
			errs = append(errs, fmt.Errorf("keywords[%d].keyword is required", i))
		}
		if rule.Reply == "" {
			errs = append(errs, fmt.Errorf("keywords[%d].reply is required", i))
		}
	}

	for name := range c.Links {
		if name == "" {
			errs = append(errs, errors.New("links: empty link name"))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("reply config validation failed: %w", errors.Join(errs...))
	}

	return nil
}
