package core

import (
	"WaConsole/entity"
	"WaConsole/internal/conversation"
	"WaConsole/internal/lib/sl"
	"context"
	"errors"
	"log/slog"
	"time"
)

var (
	ErrNoConversation = errors.New("no conversation open")
	ErrUnknownKey     = errors.New("conversation key needs an order number or a phone")
	ErrNoSource       = errors.New("message source not configured")
)

// Source is the live document store: change-stream subscriptions plus one-shot pages.
// Subscriptions start asynchronously; the first batch of each is its snapshot, delivered
// even when empty. Live batches are never empty.
type Source interface {
	conversation.PageFetcher
	SubscribeMessages(ctx context.Context, q entity.Query, onBatch func([]entity.ChangeEvent), onError func(error)) (func(), error)
	SubscribeOrders(ctx context.Context, q entity.Query, onBatch func([]entity.OrderChange), onError func(error)) (func(), error)
}

// Sender forwards outbound messages to the WhatsApp gateway. Phones arrive without "+".
type Sender interface {
	SendText(ctx context.Context, phone, body, orderNumber string) error
	SendTemplate(ctx context.Context, phone, name string, variables map[string]string, orderNumber string) error
}

type Notifier interface {
	Notify(ctx context.Context, n entity.Notification) error
}

// Publisher pushes events to connected operator clients.
type Publisher interface {
	SendTo(clientID, eventType string, data interface{})
	Broadcast(eventType string, data interface{})
}

type Options struct {
	PageSize      int
	FetchTimeout  time.Duration
	IndexWindow   int
	OrdersWindow  int
	NotifyTimeout time.Duration
}

type Core struct {
	loop      *Loop
	source    Source
	sender    Sender
	publisher Publisher
	notifiers []Notifier
	render    conversation.RenderFunc
	opts      Options

	// loop-owned state
	sessions map[string]*session
	feed     *feed
	gen      uint64

	ctx context.Context
	log *slog.Logger
}

func New(log *slog.Logger, opts Options) *Core {
	if opts.PageSize <= 0 {
		opts.PageSize = conversation.DefaultPageSize
	}
	if opts.IndexWindow <= 0 {
		opts.IndexWindow = 500
	}
	if opts.OrdersWindow <= 0 {
		opts.OrdersWindow = 50
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}
	return &Core{
		loop:     NewLoop(256),
		opts:     opts,
		sessions: make(map[string]*session),
		ctx:      context.Background(),
		log:      log.With(sl.Module("core")),
	}
}

func (c *Core) SetSource(source Source) {
	c.source = source
}

func (c *Core) SetSender(sender Sender) {
	c.sender = sender
}

func (c *Core) SetPublisher(publisher Publisher) {
	c.publisher = publisher
}

func (c *Core) AddNotifier(n Notifier) {
	c.notifiers = append(c.notifiers, n)
}

func (c *Core) SetRenderer(render conversation.RenderFunc) {
	c.render = render
}

// Start runs the loop and opens the global index and orders subscriptions.
func (c *Core) Start(ctx context.Context, gate *conversation.NotificationGate) error {
	c.ctx = ctx
	c.feed = newFeed(c.render, gate, c.opts.IndexWindow, c.opts.OrdersWindow)
	go c.loop.Run(ctx)

	if c.source == nil {
		return ErrNoSource
	}
	return c.loop.Call(ctx, func() {
		c.subscribeFeed()
	})
}

func (c *Core) publish(clientID, eventType string, data interface{}) {
	if c.publisher == nil {
		return
	}
	if clientID == "" {
		c.publisher.Broadcast(eventType, data)
		return
	}
	c.publisher.SendTo(clientID, eventType, data)
}
