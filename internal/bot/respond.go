package bot

import (
	"context"
	"log"
	"strings"

	"github.com/stellarlinkco/chatpal/internal/bus"
)

// singleMessageMax caps one outbound platform message; longer replies are
// segmented.
const singleMessageMax = 500

const apologyText = "Sorry, please try again later. 😔"

// respond forwards the user text with the conversation's stored history to
// the model backend and sends the reply. History is mutated only on a
// non-empty reply.
func (b *Bot) respond(ctx context.Context, conv Conversation, text string) {
	history := b.store.History(conv.ID)
	reply, err := b.backend.Complete(ctx, history, text)
	if err != nil {
		log.Printf("[bot] completion for %s: %v", conv.ID, err)
		b.say(conv, apologyText)
		return
	}
	if strings.TrimSpace(reply) == "" {
		b.say(conv, apologyText)
		return
	}

	b.store.AppendUser(conv.ID, text)
	b.store.AppendAssistant(conv.ID, reply)

	if conv.Kind == Group {
		reply = "@" + conv.Sender + "\n------\n" + reply
	}
	b.say(conv, reply)
}

// say sends text to the conversation, segmented into platform-sized chunks.
// A reply containing a model block word is dropped entirely before
// segmentation.
func (b *Bot) say(conv Conversation, text string) {
	if b.triggers.BlocksOutput(text) {
		log.Printf("[bot] blocked reply to %s", conv.ID)
		return
	}
	for _, chunk := range splitMessage(text, singleMessageMax) {
		b.out <- bus.OutboundMessage{
			Channel: conv.Channel,
			ChatID:  conv.ChatID,
			Content: chunk,
		}
	}
}

// splitMessage segments s into chunks of at most max characters, preserving
// order and completeness: concatenating the chunks reconstructs s exactly.
func splitMessage(s string, max int) []string {
	runes := []rune(s)
	var chunks []string
	for len(runes) > max {
		chunks = append(chunks, string(runes[:max]))
		runes = runes[max:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
