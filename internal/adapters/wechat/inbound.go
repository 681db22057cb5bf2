package wechat

import (
	"encoding/json"
	"encoding/xml"
	"fmt"

	"autoreply-project/internal/domain"
)

type xmlInbound struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   cdata    `xml:"ToUserName"`
	FromUserName cdata    `xml:"FromUserName"`
	CreateTime   string   `xml:"CreateTime,omitempty"`
	MsgType      cdata    `xml:"MsgType"`
	Content      *cdata   `xml:"Content,omitempty"`
	Title        *cdata   `xml:"Title,omitempty"`
	AppID        *cdata   `xml:"AppId,omitempty"`
	PagePath     *cdata   `xml:"PagePath,omitempty"`
	ThumbURL     *cdata   `xml:"ThumbUrl,omitempty"`
	ThumbMediaID *cdata   `xml:"ThumbMediaId,omitempty"`
	MsgID        string   `xml:"MsgId,omitempty"`
}

// EncodeInbound renders msg the way the platform delivers it, as XML or as
// a flat JSON object with canonical keys.
func EncodeInbound(msg *domain.Message, format Format) ([]byte, error) {
	if msg == nil {
		return nil, &domain.EncodingError{Op: "inbound", Err: fmt.Errorf("%w: nil message", domain.ErrEncoding)}
	}
	if format == FormatXML {
		return encodeInboundXML(msg)
	}
	return encodeInboundJSON(msg)
}

func encodeInboundXML(msg *domain.Message) ([]byte, error) {
	in := xmlInbound{
		ToUserName:   cdata{msg.ToUserName},
		FromUserName: cdata{msg.FromUserName},
		CreateTime:   msg.CreateTime,
		MsgType:      cdata{msg.MsgType},
		MsgID:        msg.MsgID(),
	}
	if msg.Text != nil {
		in.Content = &cdata{msg.Text.Content}
	}
	if c := msg.Card; c != nil {
		in.Title = &cdata{c.Title}
		in.AppID = &cdata{c.AppID}
		in.PagePath = &cdata{c.PagePath}
		in.ThumbURL = &cdata{c.ThumbURL}
		in.ThumbMediaID = &cdata{c.ThumbMediaID}
	}

	out, err := xml.Marshal(in)
	if err != nil {
		return nil, &domain.EncodingError{Op: "inbound xml", Err: fmt.Errorf("%w: %v", domain.ErrEncoding, err)}
	}
	return out, nil
}

func encodeInboundJSON(msg *domain.Message) ([]byte, error) {
	obj := map[string]string{
		"ToUserName":   msg.ToUserName,
		"FromUserName": msg.FromUserName,
		"MsgType":      msg.MsgType,
	}
	set := func(k, v string) {
		if v != "" {
			obj[k] = v
		}
	}
	set("CreateTime", msg.CreateTime)
	set("MsgId", msg.MsgID())
	if msg.Text != nil {
		set("Content", msg.Text.Content)
	}
	if c := msg.Card; c != nil {
		set("Title", c.Title)
		set("AppId", c.AppID)
		set("PagePath", c.PagePath)
		set("ThumbUrl", c.ThumbURL)
		set("ThumbMediaId", c.ThumbMediaID)
	}

	out, err := json.Marshal(obj)
	if err != nil {
		return nil, &domain.EncodingError{Op: "inbound json", Err: fmt.Errorf("%w: %v", domain.ErrEncoding, err)}
	}
	return out, nil
}
