package wechat

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"autoreply-project/internal/domain"
)

// Format is the wire format of a webhook body.
type Format int

const (
	FormatJSON Format = iota
	FormatXML
)

func (f Format) String() string {
	if f == FormatXML {
		return "xml"
	}
	return "json"
}

// ContentType returns the response Content-Type for f.
func (f Format) ContentType() string {
	if f == FormatXML {
		return "application/xml; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// ReplyFormat picks the reply format from the request Content-Type.
func ReplyFormat(contentType string) Format {
	if strings.Contains(strings.ToLower(contentType), "xml") {
		return FormatXML
	}
	return FormatJSON
}

// IsMarkup reports whether an inbound body should be read as XML. The
// platform does not always label XML bodies, so the body itself is checked
// when the header says nothing.
func IsMarkup(contentType string, body []byte) bool {
	if ReplyFormat(contentType) == FormatXML {
		return true
	}
	return strings.HasPrefix(strings.TrimSpace(string(body)), "<")
}

// Encoder builds passive reply envelopes.
type Encoder struct {
	now func() time.Time
}

// NewEncoder creates an encoder. A nil clock means time.Now.
func NewEncoder(now func() time.Time) *Encoder {
	if now == nil {
		now = time.Now
	}
	return &Encoder{now: now}
}

type cdata struct {
	Value string `xml:",cdata"`
}

// xmlReply is the five field <xml> envelope. encoding/xml splits any "]]>"
// inside a CDATA value into "]]]]><![CDATA[>".
type xmlReply struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   cdata    `xml:"ToUserName"`
	FromUserName cdata    `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      cdata    `xml:"MsgType"`
	Content      cdata    `xml:"Content"`
}

// XML encodes a text reply to msg. For a nil msg it returns an
// *domain.EncodingError together with a minimal envelope that still
// carries content.
func (e *Encoder) XML(msg *domain.Message, content string) (string, error) {
	r := domain.NewReply(msg, content, e.now())

	out, err := xml.Marshal(xmlReply{
		ToUserName:   cdata{r.ToUserName},
		FromUserName: cdata{r.FromUserName},
		CreateTime:   r.CreateTime,
		MsgType:      cdata{r.MsgType},
		Content:      cdata{r.Content},
	})
	if err != nil {
		return "", &domain.EncodingError{Op: "xml", Err: fmt.Errorf("%w: %v", domain.ErrEncoding, err)}
	}

	if msg == nil {
		return string(out), nilMessage("xml")
	}
	return string(out), nil
}

// JSON builds the flat JSON reply object for msg. A nil msg is handled as
// in XML.
func (e *Encoder) JSON(msg *domain.Message, content string) (domain.Reply, error) {
	r := domain.NewReply(msg, content, e.now())
	if msg == nil {
		return r, nilMessage("json")
	}
	return r, nil
}

func nilMessage(op string) error {
	return &domain.EncodingError{Op: op, Err: fmt.Errorf("%w: no message to reply to", domain.ErrEncoding)}
}
