package core

import (
	"WaConsole/entity"
	"WaConsole/internal/conversation"
	"WaConsole/internal/lib/sl"
	"WaConsole/internal/metrics"
	"context"
	"errors"
	"log/slog"
)

const (
	scopeIndex        = "index"
	scopeOrders       = "orders"
	scopeConversation = "conversation"
)

// feed is the always-open global state: the recent-window index, the notification
// gate tapping it, and the orders window.
type feed struct {
	index        *conversation.ConversationIndex
	gate         *conversation.NotificationGate
	orders       *conversation.OrderBook
	staleIndex   bool
	staleOrders  bool
	unsubscribes []func()
}

func newFeed(render conversation.RenderFunc, gate *conversation.NotificationGate, indexWindow, ordersWindow int) *feed {
	return &feed{
		index:  conversation.NewConversationIndex(render, indexWindow),
		gate:   gate,
		orders: conversation.NewOrderBook(ordersWindow),
	}
}

type StreamStatus struct {
	Scope string `json:"scope"`
	Stale bool   `json:"stale"`
	Error string `json:"error,omitempty"`
}

// subscribeFeed runs on the loop.
func (c *Core) subscribeFeed() {
	log := c.log.With(slog.String("scope", scopeIndex))

	unsub, err := c.source.SubscribeMessages(c.ctx, conversation.WindowQuery(c.opts.IndexWindow),
		func(events []entity.ChangeEvent) {
			c.loop.Post(func() { c.applyIndexBatch(events) })
		},
		func(err error) {
			c.loop.Post(func() { c.feedFailed(scopeIndex, err) })
		},
	)
	if err != nil {
		log.Error("subscribe message window", sl.Err(err))
		c.feedFailed(scopeIndex, err)
	} else {
		c.feed.unsubscribes = append(c.feed.unsubscribes, unsub)
	}

	ordersQuery := entity.Query{OrderBy: "confirmation_sent_at", Desc: true, Limit: c.opts.OrdersWindow}
	unsub, err = c.source.SubscribeOrders(c.ctx, ordersQuery,
		func(changes []entity.OrderChange) {
			c.loop.Post(func() { c.applyOrdersBatch(changes) })
		},
		func(err error) {
			c.loop.Post(func() { c.feedFailed(scopeOrders, err) })
		},
	)
	if err != nil {
		log.Error("subscribe orders window", sl.Err(err))
		c.feedFailed(scopeOrders, err)
	} else {
		c.feed.unsubscribes = append(c.feed.unsubscribes, unsub)
	}
}

// applyIndexBatch updates the index, then decides notifications. All state is final
// before any notification leaves the loop.
func (c *Core) applyIndexBatch(events []entity.ChangeEvent) {
	changes := c.normalizeBatch(scopeIndex, events)
	updated := c.feed.index.Observe(changes)

	var fire []entity.Notification
	if c.feed.gate != nil {
		for _, ch := range changes {
			if n, ok := c.feed.gate.OnEvent(ch); ok {
				fire = append(fire, n)
			}
		}
	}

	if c.feed.staleIndex {
		c.feed.staleIndex = false
		c.publish("", "stream_status", StreamStatus{Scope: scopeIndex})
	}
	if len(updated) > 0 {
		c.publish("", "inbox", c.buildInbox(conversation.InboxFilter{}))
	}
	for _, n := range fire {
		c.dispatch(n)
	}
}

func (c *Core) applyOrdersBatch(changes []entity.OrderChange) {
	if c.feed.staleOrders {
		c.feed.staleOrders = false
		c.publish("", "stream_status", StreamStatus{Scope: scopeOrders})
	}
	if c.feed.orders.Apply(changes) {
		c.publish("", "inbox", c.buildInbox(conversation.InboxFilter{}))
	}
}

func (c *Core) feedFailed(scope string, err error) {
	metrics.StreamErrors.WithLabelValues(scope).Inc()
	c.log.With(slog.String("scope", scope), sl.Err(err)).Error("global stream dropped")
	switch scope {
	case scopeIndex:
		c.feed.staleIndex = true
	case scopeOrders:
		c.feed.staleOrders = true
	}
	c.publish("", "stream_status", StreamStatus{Scope: scope, Stale: true, Error: err.Error()})
}

// dispatch hands a notification to every sink off the loop.
func (c *Core) dispatch(n entity.Notification) {
	metrics.Notifications.Inc()
	for _, notifier := range c.notifiers {
		go func(notifier Notifier) {
			ctx, cancel := context.WithTimeout(c.ctx, c.opts.NotifyTimeout)
			defer cancel()
			if err := notifier.Notify(ctx, n); err != nil {
				c.log.With(
					slog.String("message_id", n.MessageID),
					sl.Err(err),
				).Warn("notification failed")
			}
		}(notifier)
	}
}

// normalizeBatch converts raw events, logging and counting the ones it drops.
func (c *Core) normalizeBatch(scope string, events []entity.ChangeEvent) []entity.Change {
	changes := make([]entity.Change, 0, len(events))
	for _, ev := range events {
		ch, err := conversation.NormalizeEvent(ev)
		if err != nil {
			reason := "malformed"
			switch {
			case errors.Is(err, conversation.ErrUnresolvableKey):
				reason = "unresolvable_key"
			case errors.Is(err, conversation.ErrMalformedTimestamp):
				reason = "malformed_timestamp"
			}
			metrics.DroppedEvents.WithLabelValues(reason).Inc()
			c.log.With(
				slog.String("scope", scope),
				slog.String("id", ev.ID),
				slog.String("op", string(ev.Op)),
				sl.Err(err),
			).Warn("change event excluded")
			continue
		}
		metrics.ChangeEvents.WithLabelValues(scope, string(ch.Op)).Inc()
		changes = append(changes, ch)
	}
	return changes
}

func (c *Core) buildInbox(filter conversation.InboxFilter) []entity.InboxEntry {
	return conversation.BuildInbox(c.feed.orders.Orders(), c.feed.index, filter)
}

// Inbox returns the inbox rows matching filter.
func (c *Core) Inbox(ctx context.Context, filter conversation.InboxFilter) ([]entity.InboxEntry, error) {
	var entries []entity.InboxEntry
	err := c.loop.Call(ctx, func() {
		if c.feed == nil {
			return
		}
		entries = c.buildInbox(filter)
	})
	return entries, err
}

// Summaries returns the index summaries, most recent first.
func (c *Core) Summaries(ctx context.Context) ([]entity.ConversationSummary, error) {
	var list []entity.ConversationSummary
	err := c.loop.Call(ctx, func() {
		if c.feed == nil {
			return
		}
		list = c.feed.index.Summaries()
	})
	return list, err
}
