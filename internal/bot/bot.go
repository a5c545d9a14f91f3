// Package bot decides whether and how inbound chat messages are answered:
// trigger rules, slash commands, model-backed replies with per-conversation
// history, and idle greeting timers.
package bot

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/stellarlinkco/chatpal/internal/bus"
	"github.com/stellarlinkco/chatpal/internal/config"
	"github.com/stellarlinkco/chatpal/internal/store"
)

const (
	commandPrefix = "/command "
	imagePrefix   = "/image"

	// sayHiPrompt is replayed through the responder when a greeting timer
	// fires.
	sayHiPrompt = "请向我打个招呼，分享你正在想什么，并且正在做什么。"
)

// Backend is the language-model collaborator.
type Backend interface {
	Complete(ctx context.Context, history []store.Message, text string) (string, error)
	Transcribe(ctx context.Context, audioPath string) (string, error)
	GenerateImage(ctx context.Context, prompt string) (string, error)
}

type Bot struct {
	cfg       config.BotConfig
	store     *store.Store
	backend   Backend
	triggers  *Triggers
	scheduler *Scheduler
	out       chan<- bus.OutboundMessage
	cmds      []command

	mu   sync.Mutex
	seen map[string]Conversation // conversations seen this process lifetime
}

func New(cfg config.BotConfig, greeting config.GreetingConfig, st *store.Store, backend Backend, out chan<- bus.OutboundMessage) (*Bot, error) {
	triggers, err := NewTriggers(cfg)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		cfg:      cfg,
		store:    st,
		backend:  backend,
		triggers: triggers,
		out:      out,
		seen:     make(map[string]Conversation),
	}
	b.scheduler = NewScheduler(
		time.Duration(greeting.MinDelayMs)*time.Millisecond,
		time.Duration(greeting.MaxDelayMs)*time.Millisecond,
		func(conv Conversation, replay string) {
			b.respond(context.Background(), conv, replay)
		},
	)
	b.registerCommands()
	return b, nil
}

// Scheduler exposes the greeting scheduler for shutdown and sweep wiring.
func (b *Bot) Scheduler() *Scheduler {
	return b.scheduler
}

// HandleMessage routes one inbound message. Branches are evaluated in order;
// the first match wins, and every failure degrades to an apology or silence.
func (b *Bot) HandleMessage(ctx context.Context, msg bus.InboundMessage) {
	conv := conversationFrom(msg)
	if conv.Kind == Group {
		log.Printf("[bot] room %q contact %q text %q", conv.Topic, conv.Sender, msg.Content)
	} else {
		log.Printf("[bot] contact %q text %q", conv.Sender, msg.Content)
	}

	if b.triggers.IsNonsense(msg) {
		return
	}
	b.remember(conv)

	if msg.Kind == bus.KindAudio {
		b.handleAudio(ctx, conv, msg)
		return
	}

	// Group commands arrive behind the mention prefix.
	body := msg.Content
	if conv.Kind == Group {
		body = b.triggers.StripMention(body)
	}

	if strings.HasPrefix(body, commandPrefix) {
		b.Dispatch(ctx, conv, body[len(commandPrefix):])
		return
	}

	if strings.HasPrefix(body, imagePrefix) {
		b.handleImage(ctx, conv, strings.TrimSpace(body[len(imagePrefix):]))
		return
	}

	private := conv.Kind == Private
	if !b.triggers.Trigger(msg.Content, private) {
		return
	}
	if !private && b.cfg.DisableGroupMessage {
		return
	}

	text := b.triggers.CleanMessage(msg.Content, private)
	b.scheduler.Arm(conv, sayHiPrompt)
	b.respond(ctx, conv, text)
}

func (b *Bot) handleAudio(ctx context.Context, conv Conversation, msg bus.InboundMessage) {
	if len(msg.Media) == 0 {
		log.Printf("[bot] audio from %s has no media file", conv.ID)
		return
	}
	text, err := b.backend.Transcribe(ctx, msg.Media[0])
	if err != nil {
		log.Printf("[bot] transcribe for %s: %v", conv.ID, err)
		b.say(conv, apologyText)
		return
	}
	b.say(conv, text)
}

func (b *Bot) handleImage(ctx context.Context, conv Conversation, prompt string) {
	url, err := b.backend.GenerateImage(ctx, prompt)
	if err != nil {
		log.Printf("[bot] image generation for %s: %v", conv.ID, err)
		b.say(conv, apologyText)
		return
	}
	b.out <- bus.OutboundMessage{
		Channel:  conv.Channel,
		ChatID:   conv.ChatID,
		MediaURL: url,
	}
}

func (b *Bot) remember(conv Conversation) {
	b.mu.Lock()
	b.seen[conv.ID] = conv
	b.mu.Unlock()
	b.store.SetRoute(conv.ID, conv.Channel, conv.ChatID, conv.Kind == Group)
}

// ArmAllGreetings arms the greeting timer for every known conversation:
// persisted records with a routable address plus everything seen this
// process lifetime. Used by scheduled greeting sweeps.
func (b *Bot) ArmAllGreetings() {
	convs := make(map[string]Conversation)
	for _, rec := range b.store.Records() {
		if rec.ChatID == "" {
			continue
		}
		conv := Conversation{ID: rec.ID, ChatID: rec.ChatID, Channel: rec.Channel}
		if rec.Group {
			conv.Kind = Group
			conv.Topic = rec.ID
		}
		convs[rec.ID] = conv
	}
	// Live-session entries win; they carry the current speaker name.
	b.mu.Lock()
	for id, conv := range b.seen {
		convs[id] = conv
	}
	b.mu.Unlock()

	for _, conv := range convs {
		if conv.Kind == Group && b.cfg.DisableGroupMessage {
			continue
		}
		b.scheduler.Arm(conv, sayHiPrompt)
	}
}
