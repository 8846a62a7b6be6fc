package ws

import (
	"WaConsole/entity"
	"WaConsole/internal/conversation"
	"WaConsole/internal/lib/sl"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

const handlerTimeout = 10 * time.Second

// ClientMessageHandler handles requests coming from operator clients.
type ClientMessageHandler interface {
	OpenConversation(ctx context.Context, clientID string, key entity.ConversationKey) error
	CloseConversation(ctx context.Context, clientID string) error
	LoadOlder(ctx context.Context, clientID string) error
	Disconnect(clientID string)
}

// Event represents a WebSocket event sent to operator clients.
type Event struct {
	Type string      `json:"type"` // "session", "thread", "inbox", "notification", "stream_status", "page_error", "error"
	Data interface{} `json:"data"`
}

type envelope struct {
	clientID string // empty for broadcast
	event    *Event
}

// Hub maintains the set of active WebSocket clients and routes events to them.
type Hub struct {
	clients    map[string]*Client
	outbound   chan envelope
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	handler    ClientMessageHandler
	log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		outbound:   make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log.With(sl.Module("ws hub")),
	}
}

func (h *Hub) SetHandler(handler ClientMessageHandler) {
	h.handler = handler
}

// Run starts the hub's event loop. Should be called in a goroutine. Once it returns,
// sends and registrations are discarded instead of blocking.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()
			if hello, err := json.Marshal(&Event{Type: "session", Data: map[string]string{"id": client.id}}); err == nil {
				h.deliver(client, hello)
			}
			h.log.Debug("client connected",
				slog.String("client", client.id),
				slog.String("username", client.username),
			)

		case client := <-h.unregister:
			h.drop(client)

		case env := <-h.outbound:
			data, err := json.Marshal(env.event)
			if err != nil {
				h.log.Error("marshal event", slog.String("type", env.event.Type), sl.Err(err))
				continue
			}
			if env.clientID != "" {
				h.mu.RLock()
				client, ok := h.clients[env.clientID]
				h.mu.RUnlock()
				if ok {
					h.deliver(client, data)
				}
				continue
			}
			h.mu.RLock()
			targets := make([]*Client, 0, len(h.clients))
			for _, client := range h.clients {
				targets = append(targets, client)
			}
			h.mu.RUnlock()
			for _, client := range targets {
				h.deliver(client, data)
			}
		}
	}
}

// deliver drops a client whose send buffer is full.
func (h *Hub) deliver(client *Client, data []byte) {
	select {
	case client.send <- data:
	default:
		h.log.Warn("client send buffer full", slog.String("client", client.id))
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client.id]
	if ok {
		delete(h.clients, client.id)
		close(client.send)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	h.log.Debug("client disconnected", slog.String("client", client.id))
	if h.handler != nil {
		// the handler may publish back through the hub
		go h.handler.Disconnect(client.id)
	}
}

// SendTo queues an event for one client.
func (h *Hub) SendTo(clientID, eventType string, data interface{}) {
	h.enqueue(envelope{clientID: clientID, event: &Event{Type: eventType, Data: data}})
}

// Broadcast queues an event for every connected client.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	h.enqueue(envelope{event: &Event{Type: eventType, Data: data}})
}

func (h *Hub) enqueue(env envelope) {
	select {
	case h.outbound <- env:
	case <-h.done:
	}
}

// Notify broadcasts an inbound message notification.
func (h *Hub) Notify(_ context.Context, n entity.Notification) error {
	h.Broadcast("notification", n)
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// clientEvent represents an incoming WebSocket message from an operator client.
type clientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type openData struct {
	OrderNumber interface{} `json:"order_number"`
	Phone       string      `json:"phone"`
}

// HandleClientMessage parses and dispatches an incoming message from a client.
func (h *Hub) HandleClientMessage(clientID string, raw []byte) {
	if h.handler == nil {
		return
	}
	log := h.log.With(slog.String("client", clientID))

	var event clientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		log.Warn("failed to parse client ws message", sl.Err(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	var err error
	switch event.Type {
	case "open":
		var data openData
		if err = json.Unmarshal(event.Data, &data); err != nil {
			log.Warn("failed to parse open data", sl.Err(err))
			return
		}
		key, ok := conversation.ResolveKey(data.OrderNumber, data.Phone)
		if !ok {
			h.SendTo(clientID, "error", map[string]string{"error": "order_number or phone is required"})
			return
		}
		err = h.handler.OpenConversation(ctx, clientID, key)
	case "close":
		err = h.handler.CloseConversation(ctx, clientID)
	case "load_older":
		err = h.handler.LoadOlder(ctx, clientID)
	default:
		log.Debug("unknown client event", slog.String("type", event.Type))
		return
	}
	if err != nil {
		log.Error("failed to handle client event", slog.String("type", event.Type), sl.Err(err))
		h.SendTo(clientID, "error", map[string]string{"type": event.Type, "error": err.Error()})
	}
}
