// Package gateway wires the store, model backend, bot, channels, and
// maintenance jobs together and runs the inbound processing loop.
package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/stellarlinkco/chatpal/internal/bot"
	"github.com/stellarlinkco/chatpal/internal/bus"
	"github.com/stellarlinkco/chatpal/internal/channel"
	"github.com/stellarlinkco/chatpal/internal/config"
	"github.com/stellarlinkco/chatpal/internal/cron"
	"github.com/stellarlinkco/chatpal/internal/llm"
	"github.com/stellarlinkco/chatpal/internal/store"
)

// storeFlushExpr rewrites the backing file once a day as a safety net.
const storeFlushExpr = "0 0 4 * * *"

// BackendFactory creates the model backend (allows mocking in tests)
type BackendFactory func(cfg *config.Config) (bot.Backend, error)

// Options for creating a Gateway
type Options struct {
	BackendFactory BackendFactory
	SignalChan     chan os.Signal // for testing signal handling
}

// DefaultBackendFactory creates the default openai-backed client
func DefaultBackendFactory(cfg *config.Config) (bot.Backend, error) {
	return llm.New(cfg.Provider)
}

type Gateway struct {
	cfg        *config.Config
	bus        *bus.MessageBus
	store      *store.Store
	bot        *bot.Bot
	channels   *channel.ChannelManager
	cron       *cron.Service
	signalChan chan os.Signal // for testing
}

// New creates a Gateway with default options
func New(cfg *config.Config) (*Gateway, error) {
	return NewWithOptions(cfg, Options{})
}

// NewWithOptions creates a Gateway with custom options for testing
func NewWithOptions(cfg *config.Config, opts Options) (*Gateway, error) {
	g := &Gateway{cfg: cfg}

	g.bus = bus.NewMessageBus(config.DefaultBufSize)

	g.store = store.Open(cfg.Store.Path, store.Options{
		DefaultPrompt: cfg.Bot.DefaultPrompt,
		TokenLimit:    cfg.Store.TokenLimit,
	})

	factory := opts.BackendFactory
	if factory == nil {
		factory = DefaultBackendFactory
	}
	backend, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	b, err := bot.New(cfg.Bot, cfg.Greeting, g.store, backend, g.bus.Outbound)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	g.bot = b

	chMgr, err := channel.NewChannelManager(cfg.Channels, cfg.Bot.MediaDir, g.bus)
	if err != nil {
		return nil, fmt.Errorf("create channel manager: %w", err)
	}
	g.channels = chMgr

	g.cron = cron.NewService()
	if err := g.cron.Add("store-flush", storeFlushExpr, func() {
		if err := g.store.Flush(); err != nil {
			log.Printf("[gateway] store flush warning: %v", err)
		}
	}); err != nil {
		return nil, err
	}
	for i, expr := range cfg.Greeting.Sweeps {
		name := fmt.Sprintf("greeting-sweep-%d", i)
		if err := g.cron.Add(name, expr, g.bot.ArmAllGreetings); err != nil {
			return nil, err
		}
	}

	g.signalChan = opts.SignalChan
	return g, nil
}

func (g *Gateway) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go g.bus.DispatchOutbound(ctx)

	if err := g.channels.StartAll(ctx); err != nil {
		return fmt.Errorf("start channels: %w", err)
	}
	log.Printf("[gateway] channels started: %v", g.channels.EnabledChannels())

	g.cron.Start()

	go g.processLoop(ctx)

	log.Printf("[gateway] running as %q", g.cfg.Bot.Name)

	// Use injected signal channel for testing, or create default
	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	}
	<-sigCh

	log.Printf("[gateway] shutting down...")
	return g.Shutdown()
}

// processLoop handles inbound messages one at a time; external backend calls
// carry their own timeouts so one stuck conversation cannot wedge the loop
// forever.
func (g *Gateway) processLoop(ctx context.Context) {
	for {
		select {
		case msg := <-g.bus.Inbound:
			g.handleInbound(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

// handleInbound isolates one message; a panicking handler is logged and the
// loop keeps serving other conversations.
func (g *Gateway) handleInbound(ctx context.Context, msg bus.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[gateway] panic handling message from %s: %v", msg.SenderID, r)
		}
	}()
	g.bot.HandleMessage(ctx, msg)
}

func (g *Gateway) Shutdown() error {
	g.cron.Stop()
	g.bot.Scheduler().Stop()
	if err := g.store.Flush(); err != nil {
		log.Printf("[gateway] final store flush warning: %v", err)
	}
	_ = g.channels.StopAll()
	log.Printf("[gateway] shutdown complete")
	return nil
}
