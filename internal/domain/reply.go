package domain

import "time"

// ReplyMsgType is the only outbound message type.
const ReplyMsgType = "text"

// Reply is the passive reply sent back on the webhook response.
type Reply struct {
	ToUserName   string `json:"ToUserName"`
	FromUserName string `json:"FromUserName"`
	CreateTime   int64  `json:"CreateTime"`
	MsgType      string `json:"MsgType"`
	Content      string `json:"Content"`
}

// NewReply addresses a reply to the sender of msg.
// A nil msg yields a reply with empty user ids.
func NewReply(msg *Message, content string, now time.Time) Reply {
	r := Reply{
		CreateTime: now.Unix(),
		MsgType:    ReplyMsgType,
		Content:    content,
	}
	if msg != nil {
		r.ToUserName = msg.FromUserName
		r.FromUserName = msg.ToUserName
	}
	return r
}

// Outcome names the rule that produced a reply.
type Outcome string

const (
	OutcomeKeyword   Outcome = "keyword"
	OutcomeDefault   Outcome = "default"
	OutcomeCard      Outcome = "card"
	OutcomeCardNoPOI Outcome = "card_without_poiid"
	OutcomeUnknown   Outcome = "unknown"
	OutcomeFallback  Outcome = "fallback"
	OutcomeCached    Outcome = "cached"
)
