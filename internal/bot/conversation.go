package bot

import "github.com/stellarlinkco/chatpal/internal/bus"

type ConversationKind int

const (
	Private ConversationKind = iota
	Group
)

// Conversation identifies one chat thread. ID keys the persisted history
// (contact display name for private chats, topic or room id for groups);
// ChatID is the platform address replies are sent to.
type Conversation struct {
	Kind    ConversationKind
	ID      string
	ChatID  string
	Channel string
	Topic   string
	Sender  string // display name of the current speaker
}

func conversationFrom(msg bus.InboundMessage) Conversation {
	conv := Conversation{
		ChatID:  msg.ChatID,
		Channel: msg.Channel,
		Sender:  msg.SenderName,
	}
	if msg.IsGroup {
		conv.Kind = Group
		conv.Topic = msg.Topic
		conv.ID = msg.Topic
		if conv.ID == "" {
			conv.ID = msg.ChatID
		}
		return conv
	}
	conv.Kind = Private
	conv.ID = msg.SenderName
	if conv.ID == "" {
		conv.ID = msg.SenderID
	}
	return conv
}
