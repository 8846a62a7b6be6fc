package conversation

import (
	"WaConsole/entity"
	"slices"
	"strings"
)

// NormalizeOrder resolves the conversation key of an order row.
func NormalizeOrder(id string, doc *entity.OrderDoc) (entity.Order, bool) {
	number := CanonicalOrder(doc.OrderNumber)
	if number == "" {
		return entity.Order{}, false
	}
	return entity.Order{
		ID:                 id,
		Key:                entity.ConversationKey{Order: number, Phone: CanonicalPhone(doc.PhoneE164)},
		OrderNumber:        number,
		PhoneE164:          doc.PhoneE164,
		Name:               doc.Name,
		Status:             doc.Status,
		ConfirmationSentAt: doc.ConfirmationSentAt.UTC(),
	}, true
}

// OrderBook holds the most recently confirmed orders, bounded to window rows.
type OrderBook struct {
	window int
	byID   map[string]entity.Order
}

func NewOrderBook(window int) *OrderBook {
	return &OrderBook{
		window: window,
		byID:   make(map[string]entity.Order),
	}
}

// Apply folds an orders stream batch in. It reports whether the visible list changed.
func (b *OrderBook) Apply(changes []entity.OrderChange) bool {
	changed := false
	for _, ch := range changes {
		switch ch.Op {
		case entity.OpDelete:
			if _, ok := b.byID[ch.ID]; ok {
				delete(b.byID, ch.ID)
				changed = true
			}
		default:
			if ch.Doc == nil {
				continue
			}
			order, ok := NormalizeOrder(ch.ID, ch.Doc)
			if !ok {
				continue
			}
			if prev, exists := b.byID[ch.ID]; !exists || prev != order {
				b.byID[ch.ID] = order
				changed = true
			}
		}
	}
	if changed {
		b.trim()
	}
	return changed
}

// Orders returns the orders newest confirmation first.
func (b *OrderBook) Orders() []entity.Order {
	list := make([]entity.Order, 0, len(b.byID))
	for _, o := range b.byID {
		list = append(list, o)
	}
	slices.SortFunc(list, func(x, y entity.Order) int {
		if c := y.ConfirmationSentAt.Compare(x.ConfirmationSentAt); c != 0 {
			return c
		}
		return strings.Compare(x.ID, y.ID)
	})
	return list
}

// Find returns the order behind a conversation key.
func (b *OrderBook) Find(key entity.ConversationKey) (entity.Order, bool) {
	for _, o := range b.byID {
		if o.Key.Same(key) {
			return o, true
		}
	}
	return entity.Order{}, false
}

func (b *OrderBook) trim() {
	if b.window <= 0 || len(b.byID) <= b.window {
		return
	}
	for _, o := range b.Orders()[b.window:] {
		delete(b.byID, o.ID)
	}
}
