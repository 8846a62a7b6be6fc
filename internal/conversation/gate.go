package conversation

import (
	"WaConsole/entity"
	"fmt"
	"github.com/dgraph-io/ristretto/v2"
	"time"
)

// NotificationGate decides which change events deserve an operator notification:
// live inserts of inbound messages only. Snapshot and backfill rows are history.
//
// Two insert events for the same id both notify unless a dedup TTL is configured.
type NotificationGate struct {
	render RenderFunc
	seen   *ristretto.Cache[string, struct{}]
	ttl    time.Duration
}

// NewNotificationGate builds a gate. A positive dedupTTL enables a bounded set of
// already notified ids holding at most maxEntries ids for dedupTTL each.
func NewNotificationGate(render RenderFunc, dedupTTL time.Duration, maxEntries int64) (*NotificationGate, error) {
	g := &NotificationGate{
		render: render,
		ttl:    dedupTTL,
	}
	if dedupTTL <= 0 {
		return g, nil
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, struct{}]{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("notification dedup cache: %w", err)
	}
	g.seen = cache
	return g, nil
}

// OnEvent returns the notification to fire for ch, if any.
func (g *NotificationGate) OnEvent(ch entity.Change) (entity.Notification, bool) {
	if ch.Op != entity.OpInsert || ch.Origin != entity.OriginLive || ch.Message == nil {
		return entity.Notification{}, false
	}
	msg := ch.Message
	if msg.Direction != entity.DirectionInbound {
		return entity.Notification{}, false
	}

	if g.seen != nil {
		if _, found := g.seen.Get(msg.ID); found {
			return entity.Notification{}, false
		}
		g.seen.SetWithTTL(msg.ID, struct{}{}, 1, g.ttl)
		g.seen.Wait()
	}

	return entity.Notification{
		MessageID: msg.ID,
		Key:       msg.Key,
		Phone:     msg.Phone,
		Preview:   Preview(*msg, g.render),
		Timestamp: msg.Timestamp,
	}, true
}

func (g *NotificationGate) Close() {
	if g.seen != nil {
		g.seen.Close()
	}
}
