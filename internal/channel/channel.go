package channel

import (
	"context"

	"github.com/stellarlinkco/chatpal/internal/bus"
)

// Channel is one chat-platform connection.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Send(msg bus.OutboundMessage) error
}

// BaseChannel carries the name, bus handle, and sender allow-list shared by
// all channel implementations.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowFrom []string
}

func NewBaseChannel(name string, b *bus.MessageBus, allowFrom []string) BaseChannel {
	return BaseChannel{name: name, bus: b, allowFrom: allowFrom}
}

func (b *BaseChannel) Name() string {
	return b.name
}

// IsAllowed reports whether a sender id passes the allow-list. An empty list
// allows everyone.
func (b *BaseChannel) IsAllowed(senderID string) bool {
	if len(b.allowFrom) == 0 {
		return true
	}
	for _, id := range b.allowFrom {
		if id == senderID {
			return true
		}
	}
	return false
}
