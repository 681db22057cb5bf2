package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrExtraction       = errors.New("message extraction failed")
	ErrRender           = errors.New("template rendering failed")
	ErrEncoding         = errors.New("reply encoding failed")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrDelivery         = errors.New("delivery failed")
)

// ExtractionError reports a raw payload that could not be turned into a Message.
type ExtractionError struct {
	Field string // missing or malformed field, if known
	Err   error
}

func (e *ExtractionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("extract: field %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("extract: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// RenderError reports a template that could not be rendered.
type RenderError struct {
	Template string // leading part of the template, for logs
	Err      error
}

func (e *RenderError) Error() string {
	if e.Template != "" {
		return fmt.Sprintf("render %q: %v", e.Template, e.Err)
	}
	return fmt.Sprintf("render: %v", e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// EncodingError reports a reply that could not be encoded.
type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Op, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration-related error.
type ConfigError struct {
	ConfigName string
	Field      string
	Err        error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config %s: field %s: %v", e.ConfigName, e.Field, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.ConfigName, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DeliveryError reports a message that could not be delivered to a webhook.
type DeliveryError struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("deliver to %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("deliver to %s: %v", e.URL, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
