package bus

import "time"

// MessageKind classifies an inbound platform message.
type MessageKind int

const (
	KindText MessageKind = iota
	KindAudio
	KindImage
	KindOther
)

type InboundMessage struct {
	Channel    string
	SenderID   string
	SenderName string
	ChatID     string
	Topic      string // group title, empty for private chats
	IsGroup    bool
	IsSelf     bool // sent by the bot account itself
	Kind       MessageKind
	Content    string
	Media      []string // local paths of materialized attachments
	Timestamp  time.Time
	Metadata   map[string]any
}

type OutboundMessage struct {
	Channel  string
	ChatID   string
	Content  string
	MediaURL string // when set, sent as a media attachment instead of text
	Metadata map[string]any
}
