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

// session is one operator client's open conversation. Its subscriptions belong to a
// single generation; anything arriving for an older generation is dropped.
type session struct {
	clientID string
	gen      uint64
	key      entity.ConversationKey
	store    *conversation.MessageStore
	cursor   *conversation.PaginationCursor
	limit    int
	edges    []conversation.SnapshotEdge
	reported []bool
	stale    bool
	ctx      context.Context
	cancel   context.CancelFunc
	unsubs   []func()
	log      *slog.Logger
}

// ThreadView is what an operator sees of the open conversation.
type ThreadView struct {
	Key            entity.ConversationKey `json:"key"`
	Order          *entity.Order          `json:"order,omitempty"`
	Messages       []entity.Message       `json:"messages"`
	Pagination     entity.PaginationState `json:"pagination"`
	ScrollToLatest bool                   `json:"scroll_to_latest"`
	Stale          bool                   `json:"stale"`
}

type PageError struct {
	Key   entity.ConversationKey `json:"key"`
	Error string                 `json:"error"`
}

// OpenConversation replaces whatever the client had open with key. The previous
// subscriptions are cancelled before the new ones start.
func (c *Core) OpenConversation(ctx context.Context, clientID string, key entity.ConversationKey) error {
	key, ok := conversation.ResolveKey(key.Order, key.Phone)
	if !ok {
		return ErrUnknownKey
	}
	if c.source == nil {
		return ErrNoSource
	}
	var err error
	callErr := c.loop.Call(ctx, func() {
		err = c.open(clientID, key)
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// CloseConversation ends the client's open conversation, if any.
func (c *Core) CloseConversation(ctx context.Context, clientID string) error {
	return c.loop.Call(ctx, func() {
		c.close(clientID)
	})
}

// Disconnect drops every piece of state held for a client.
func (c *Core) Disconnect(clientID string) {
	c.loop.Post(func() {
		c.close(clientID)
	})
}

// LoadOlder starts a backward page fetch for the client's conversation. A call while a
// fetch is outstanding, or after history is exhausted, is a no-op.
func (c *Core) LoadOlder(ctx context.Context, clientID string) error {
	var err error
	callErr := c.loop.Call(ctx, func() {
		err = c.loadOlder(clientID)
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// Thread returns the current view of the client's conversation.
func (c *Core) Thread(ctx context.Context, clientID string) (ThreadView, error) {
	var view ThreadView
	var err error
	callErr := c.loop.Call(ctx, func() {
		s, ok := c.sessions[clientID]
		if !ok {
			err = ErrNoConversation
			return
		}
		view = c.view(s, false)
	})
	if callErr != nil {
		return ThreadView{}, callErr
	}
	return view, err
}

func (c *Core) open(clientID string, key entity.ConversationKey) error {
	c.close(clientID)

	c.gen++
	queries := conversation.StreamQueries(key, c.opts.PageSize)
	ctx, cancel := context.WithCancel(c.ctx)
	s := &session{
		clientID: clientID,
		gen:      c.gen,
		key:      key,
		store:    conversation.NewMessageStore(),
		limit:    c.opts.PageSize,
		edges:    make([]conversation.SnapshotEdge, len(queries)),
		reported: make([]bool, len(queries)),
		ctx:      ctx,
		cancel:   cancel,
		log: c.log.With(
			slog.String("client", clientID),
			slog.String("conversation", key.String()),
		),
	}
	s.cursor = conversation.NewPaginationCursor(key, c.source, c.opts.PageSize, c.opts.FetchTimeout, c.log)
	c.sessions[clientID] = s
	metrics.OpenConversations.Inc()

	for i, q := range queries {
		stream := i
		gen := s.gen
		unsub, err := c.source.SubscribeMessages(ctx, q,
			func(events []entity.ChangeEvent) {
				c.loop.Post(func() { c.applySessionBatch(clientID, gen, stream, events) })
			},
			func(err error) {
				c.loop.Post(func() { c.sessionFailed(clientID, gen, err) })
			},
		)
		if err != nil {
			c.close(clientID)
			return err
		}
		s.unsubs = append(s.unsubs, unsub)
	}

	s.log.Debug("conversation opened", slog.Int("streams", len(queries)))
	return nil
}

func (c *Core) close(clientID string) {
	s, ok := c.sessions[clientID]
	if !ok {
		return
	}
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.cancel()
	delete(c.sessions, clientID)
	metrics.OpenConversations.Dec()
	s.log.Debug("conversation closed")
}

// current returns the client's session only if it is still generation gen.
func (c *Core) current(clientID string, gen uint64) (*session, bool) {
	s, ok := c.sessions[clientID]
	if !ok || s.gen != gen {
		metrics.DroppedEvents.WithLabelValues("stale_generation").Inc()
		c.log.With(
			slog.String("client", clientID),
			slog.Uint64("generation", gen),
		).Debug("dropping late event from closed subscription")
		return nil, false
	}
	return s, true
}

func (c *Core) applySessionBatch(clientID string, gen uint64, stream int, events []entity.ChangeEvent) {
	s, ok := c.current(clientID, gen)
	if !ok {
		return
	}

	changes := c.normalizeBatch(scopeConversation, events)
	for i := range changes {
		ch := &changes[i]
		// an update can move a message to another conversation; here that is a removal
		if ch.Message != nil && !ch.Message.Key.Same(s.key) {
			ch.Op = entity.OpDelete
			ch.Message = nil
		}
	}
	changes = s.withinLoadedRange(changes)

	// the first batch of every stream is its snapshot, possibly empty
	if !s.reported[stream] {
		s.reported[stream] = true
		s.edges[stream] = snapshotEdge(changes, len(events) >= s.limit)
		if allReported(s.reported) {
			s.cursor.Seed(s.edges)
		}
	}

	res := s.store.ApplyChangeBatch(changes)
	if res.Changed || res.ScrollToLatest {
		c.publish(clientID, "thread", c.view(s, res.ScrollToLatest))
	}
}

func (c *Core) sessionFailed(clientID string, gen uint64, err error) {
	s, ok := c.current(clientID, gen)
	if !ok {
		return
	}
	metrics.StreamErrors.WithLabelValues(scopeConversation).Inc()
	s.log.Error("conversation stream dropped", sl.Err(err))
	s.stale = true
	c.publish(clientID, "stream_status", StreamStatus{Scope: scopeConversation, Stale: true, Error: err.Error()})
}

func (c *Core) loadOlder(clientID string) error {
	s, ok := c.sessions[clientID]
	if !ok {
		return ErrNoConversation
	}
	boundary, err := s.cursor.Begin()
	if err != nil {
		if errors.Is(err, conversation.ErrFetchInFlight) || errors.Is(err, conversation.ErrExhausted) {
			return nil
		}
		return err
	}

	gen, cursor, ctx := s.gen, s.cursor, s.ctx
	go func() {
		page, err := cursor.Fetch(ctx, boundary)
		c.loop.Post(func() { c.completeOlder(clientID, gen, page, err) })
	}()
	return nil
}

func (c *Core) completeOlder(clientID string, gen uint64, page conversation.OlderPage, err error) {
	s, ok := c.current(clientID, gen)
	if !ok {
		return
	}
	if err != nil {
		metrics.PageFetches.WithLabelValues("error").Inc()
		s.log.Warn("older page fetch failed", sl.Err(err))
		s.cursor.Fail()
		c.publish(clientID, "page_error", PageError{Key: s.key, Error: err.Error()})
		c.publish(clientID, "thread", c.view(s, false))
		return
	}
	metrics.PageFetches.WithLabelValues("ok").Inc()
	metrics.ChangeEvents.WithLabelValues(scopeConversation, "backfill").Add(float64(len(page.Messages)))

	kept := page.Messages[:0:0]
	for _, m := range page.Messages {
		if m.Key.Same(s.key) {
			kept = append(kept, m)
		}
	}
	s.store.Merge(kept)
	s.cursor.Complete(page)
	c.publish(clientID, "thread", c.view(s, false))
}

func (c *Core) view(s *session, scroll bool) ThreadView {
	view := ThreadView{
		Key:            s.key,
		Messages:       s.store.Messages(),
		Pagination:     s.cursor.State(),
		ScrollToLatest: scroll,
		Stale:          s.stale,
	}
	if c.feed != nil {
		if order, ok := c.feed.orders.Find(s.key); ok {
			view.Order = &order
		}
	}
	return view
}

// withinLoadedRange drops updates for unknown messages older than the boundary; those
// rows belong to a page not loaded yet and arrive with it.
func (s *session) withinLoadedRange(changes []entity.Change) []entity.Change {
	boundary := s.cursor.State().Boundary
	if boundary == nil {
		return changes
	}
	kept := changes[:0]
	for _, ch := range changes {
		if ch.Op == entity.OpUpdate && ch.Message != nil && !s.store.Has(ch.ID) &&
			ch.Message.Timestamp.Before(boundary.Timestamp) {
			continue
		}
		kept = append(kept, ch)
	}
	return kept
}

func snapshotEdge(changes []entity.Change, full bool) conversation.SnapshotEdge {
	edge := conversation.SnapshotEdge{Full: full}
	for _, ch := range changes {
		if ch.Message == nil {
			continue
		}
		cur := ch.Message.Cursor()
		if edge.Oldest == nil || cur.Timestamp.Before(edge.Oldest.Timestamp) ||
			(cur.Timestamp.Equal(edge.Oldest.Timestamp) && cur.ID < edge.Oldest.ID) {
			edge.Oldest = &cur
		}
	}
	return edge
}

func allReported(reported []bool) bool {
	for _, r := range reported {
		if !r {
			return false
		}
	}
	return true
}
