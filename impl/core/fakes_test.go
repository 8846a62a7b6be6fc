package core

import (
	"WaConsole/entity"
	"context"
	"fmt"
	"sync"
	"time"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return base.Add(time.Duration(sec) * time.Second)
}

type subscription struct {
	query     entity.Query
	onBatch   func([]entity.ChangeEvent)
	onError   func(error)
	cancelled bool
}

type orderSubscription struct {
	query   entity.Query
	onBatch func([]entity.OrderChange)
	onError func(error)
}

type fakeSource struct {
	mu       sync.Mutex
	messages []*subscription
	orders   []*orderSubscription
	pages    []entity.Page
	fetchErr error
	fetches  int
	// release, when set, holds FetchPage until closed
	release chan struct{}
}

func (f *fakeSource) SubscribeMessages(_ context.Context, q entity.Query, onBatch func([]entity.ChangeEvent), onError func(error)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &subscription{query: q, onBatch: onBatch, onError: onError}
	f.messages = append(f.messages, sub)
	return func() {
		f.mu.Lock()
		sub.cancelled = true
		f.mu.Unlock()
	}, nil
}

func (f *fakeSource) SubscribeOrders(_ context.Context, q entity.Query, onBatch func([]entity.OrderChange), onError func(error)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, &orderSubscription{query: q, onBatch: onBatch, onError: onError})
	return func() {}, nil
}

func (f *fakeSource) FetchPage(ctx context.Context, _ entity.Query, _ *entity.PageCursor, _ int) (entity.Page, error) {
	f.mu.Lock()
	release := f.release
	f.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return entity.Page{}, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return entity.Page{}, f.fetchErr
	}
	if len(f.pages) == 0 {
		return entity.Page{}, nil
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func (f *fakeSource) sub(i int) *subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[i]
}

func (f *fakeSource) subCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type published struct {
	clientID  string
	eventType string
	data      interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *fakePublisher) SendTo(clientID, eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{clientID: clientID, eventType: eventType, data: data})
}

func (p *fakePublisher) Broadcast(eventType string, data interface{}) {
	p.SendTo("", eventType, data)
}

func (p *fakePublisher) ofType(eventType string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, e := range p.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type sentMessage struct {
	phone, body, template, order string
	variables                    map[string]string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (s *fakeSender) SendText(_ context.Context, phone, body, orderNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{phone: phone, body: body, order: orderNumber})
	return s.err
}

func (s *fakeSender) SendTemplate(_ context.Context, phone, name string, variables map[string]string, orderNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{phone: phone, template: name, variables: variables, order: orderNumber})
	return s.err
}

type fakeNotifier struct {
	mu    sync.Mutex
	fired []entity.Notification
}

func (n *fakeNotifier) Notify(_ context.Context, notification entity.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fired = append(n.fired, notification)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.fired)
}

func messageDoc(id string, order interface{}, phone string, sec int, dir entity.Direction) *entity.MessageDoc {
	return &entity.MessageDoc{
		ID:          id,
		OrderNumber: order,
		Phone:       phone,
		CreatedAt:   at(sec),
		Direction:   string(dir),
		Type:        "text",
		Text:        "text " + id,
	}
}

func event(op entity.ChangeOp, origin entity.ChangeOrigin, doc *entity.MessageDoc) entity.ChangeEvent {
	return entity.ChangeEvent{ID: fmt.Sprint(doc.ID), Op: op, Origin: origin, Doc: doc}
}

// rows returns n inbound snapshot events for order, oldest at sec from.
func rows(prefix string, order interface{}, from, n int, origin entity.ChangeOrigin) []entity.ChangeEvent {
	events := make([]entity.ChangeEvent, 0, n)
	for i := n - 1; i >= 0; i-- {
		doc := messageDoc(fmt.Sprintf("%s%02d", prefix, i), order, "+201000000000", from+i, entity.DirectionInbound)
		events = append(events, event(entity.OpInsert, origin, doc))
	}
	return events
}
