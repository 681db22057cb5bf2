package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"autoreply-project/internal/domain"
)

// Inbound field names, canonical case.
const (
	fieldToUserName   = "ToUserName"
	fieldFromUserName = "FromUserName"
	fieldCreateTime   = "CreateTime"
	fieldMsgType      = "MsgType"
	fieldContent      = "Content"
	fieldMsgID        = "MsgId"
	fieldTitle        = "Title"
	fieldAppID        = "AppId"
	fieldPagePath     = "PagePath"
	fieldThumbURL     = "ThumbUrl"
	fieldThumbMediaID = "ThumbMediaId"
)

// cdataJoint is what the encoder inserts to split "]]>" inside a CDATA
// section. Removing it restores the original text.
const cdataJoint = "]]><![CDATA["

// fieldSource looks up a single inbound field by name.
type fieldSource func(name string) (string, bool)

// ExtractMarkup builds a Message from an XML webhook body.
//
// Fields are located per tag rather than by a full XML decode: the body is a
// small fixed schema and some gateways forward it entity-escaped.
func ExtractMarkup(raw string) (*domain.Message, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &domain.ExtractionError{Err: fmt.Errorf("%w: empty body", domain.ErrExtraction)}
	}
	return extract(func(name string) (string, bool) {
		return markupField(raw, name)
	})
}

// ExtractObject builds a Message from an already decoded JSON body.
// Each field is read by its canonical key, then by the key with a
// lowercase first letter (ToUserName, toUserName).
func ExtractObject(obj map[string]any) (*domain.Message, error) {
	if obj == nil {
		return nil, &domain.ExtractionError{Err: fmt.Errorf("%w: empty object", domain.ErrExtraction)}
	}
	return extract(func(name string) (string, bool) {
		return objectField(obj, name)
	})
}

// ExtractJSON decodes body as a JSON object and extracts a Message from it.
func ExtractJSON(body []byte) (*domain.Message, error) {
	obj, err := DecodeObject(body)
	if err != nil {
		return nil, err
	}
	return ExtractObject(obj)
}

// DecodeObject decodes a JSON object body, keeping numbers exact.
func DecodeObject(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, &domain.ExtractionError{Err: fmt.Errorf("%w: decode json: %v", domain.ErrExtraction, err)}
	}
	if obj == nil {
		return nil, &domain.ExtractionError{Err: fmt.Errorf("%w: body is not an object", domain.ErrExtraction)}
	}
	return obj, nil
}

// Parties holds the two user ids of an inbound message.
type Parties struct {
	ToUserName   string
	FromUserName string
}

// ExtractParties reads only the user ids, best effort, from either body
// format. It is used to address a fallback reply after extraction failed.
func ExtractParties(body []byte, markup bool) Parties {
	var get fieldSource
	if markup {
		raw := string(body)
		get = func(name string) (string, bool) { return markupField(raw, name) }
	} else {
		obj, err := DecodeObject(body)
		if err != nil {
			return Parties{}
		}
		get = func(name string) (string, bool) { return objectField(obj, name) }
	}
	to, _ := get(fieldToUserName)
	from, _ := get(fieldFromUserName)
	return Parties{ToUserName: to, FromUserName: from}
}

func extract(get fieldSource) (*domain.Message, error) {
	msg := &domain.Message{}

	var ok bool
	if msg.ToUserName, ok = get(fieldToUserName); !ok {
		return nil, missing(fieldToUserName)
	}
	if msg.FromUserName, ok = get(fieldFromUserName); !ok {
		return nil, missing(fieldFromUserName)
	}
	if msg.MsgType, ok = get(fieldMsgType); !ok {
		return nil, missing(fieldMsgType)
	}
	msg.CreateTime, _ = get(fieldCreateTime)

	switch domain.MessageKind(msg.MsgType) {
	case domain.KindText:
		msg.Text = &domain.TextBody{
			Content: optional(get, fieldContent),
			MsgID:   optional(get, fieldMsgID),
		}
	case domain.KindMiniprogramPage:
		msg.Card = &domain.MiniprogramCard{
			Title:        optional(get, fieldTitle),
			AppID:        optional(get, fieldAppID),
			PagePath:     optional(get, fieldPagePath),
			ThumbURL:     optional(get, fieldThumbURL),
			ThumbMediaID: optional(get, fieldThumbMediaID),
			MsgID:        optional(get, fieldMsgID),
		}
	}

	return msg, nil
}

func optional(get fieldSource, name string) string {
	v, _ := get(name)
	return v
}

func missing(field string) error {
	return &domain.ExtractionError{
		Field: field,
		Err:   fmt.Errorf("%w: required field missing", domain.ErrExtraction),
	}
}

// markupField tries the canonical tag name, then its lowercase form.
func markupField(raw, name string) (string, bool) {
	for _, tag := range []string{name, strings.ToLower(name)} {
		if v, ok := markupTag(raw, tag); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// markupTag tries, in order, a CDATA-wrapped tag, a bare tag and an
// entity-escaped tag. The first pattern that matches decides the value.
func markupTag(raw, tag string) (string, bool) {
	p := tagPatternsFor(tag)
	if m := p.cdata.FindStringSubmatch(raw); m != nil {
		return strings.ReplaceAll(m[1], cdataJoint, ""), true
	}
	if m := p.bare.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if m := p.escaped.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	return "", false
}

type tagPatterns struct {
	cdata   *regexp.Regexp
	bare    *regexp.Regexp
	escaped *regexp.Regexp
}

var patternCache sync.Map // tag -> *tagPatterns

func tagPatternsFor(tag string) *tagPatterns {
	if p, ok := patternCache.Load(tag); ok {
		return p.(*tagPatterns)
	}
	q := regexp.QuoteMeta(tag)
	p := &tagPatterns{
		// The CDATA body is matched lazily up to the "]]></Tag>" that closes
		// the field, so split sections ("]]]]><![CDATA[>") stay inside it.
		cdata:   regexp.MustCompile(`(?s)<` + q + `><!\[CDATA\[(.*?)\]\]></` + q + `>`),
		bare:    regexp.MustCompile(`(?s)<` + q + `>(.*?)</` + q + `>`),
		escaped: regexp.MustCompile(`(?s)&lt;` + q + `&gt;(.*?)&lt;/` + q + `&gt;`),
	}
	actual, _ := patternCache.LoadOrStore(tag, p)
	return actual.(*tagPatterns)
}

// objectField reads name, then name with a lowercase first letter.
func objectField(obj map[string]any, name string) (string, bool) {
	for _, key := range []string{name, lowerFirst(name)} {
		v, ok := obj[key]
		if !ok {
			continue
		}
		if s, ok := scalarString(v); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// scalarString stringifies JSON scalars; objects and arrays are rejected.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}
