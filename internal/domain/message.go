package domain

// MessageKind is the resolved variant of an inbound message.
type MessageKind string

const (
	KindText            MessageKind = "text"
	KindMiniprogramPage MessageKind = "miniprogrampage"
	KindUnknown         MessageKind = "unknown"
)

// Message is the normalized record of one inbound event.
// It is built once per request by the extractor and never modified afterwards.
type Message struct {
	ToUserName   string `json:"ToUserName"`
	FromUserName string `json:"FromUserName"`
	CreateTime   string `json:"CreateTime"`
	MsgType      string `json:"MsgType"`

	// Exactly one of Text and Card is set for the known kinds.
	Text *TextBody        `json:"-"`
	Card *MiniprogramCard `json:"-"`
}

// TextBody holds the fields of a plain text message.
type TextBody struct {
	Content string
	MsgID   string
}

// MiniprogramCard holds the fields of a mini-program page card.
type MiniprogramCard struct {
	Title        string
	AppID        string
	PagePath     string
	ThumbURL     string
	ThumbMediaID string
	MsgID        string
}

// Kind returns the message variant.
func (m *Message) Kind() MessageKind {
	switch {
	case m.Text != nil:
		return KindText
	case m.Card != nil:
		return KindMiniprogramPage
	default:
		return KindUnknown
	}
}

// MsgID returns the platform message id, empty for unknown kinds.
func (m *Message) MsgID() string {
	switch {
	case m.Text != nil:
		return m.Text.MsgID
	case m.Card != nil:
		return m.Card.MsgID
	default:
		return ""
	}
}
