package conversation

import (
	"WaConsole/entity"
	"slices"
	"strings"
)

type InboxFilter struct {
	Phone string
	Order string
}

func (f InboxFilter) match(key entity.ConversationKey, order *entity.Order) bool {
	phone := key.Phone
	if order != nil && order.PhoneE164 != "" {
		phone = order.PhoneE164
	}
	if f.Phone != "" && !strings.Contains(CanonicalPhone(phone), CanonicalPhone(f.Phone)) {
		return false
	}
	if f.Order != "" && !strings.Contains(key.Order, strings.TrimSpace(f.Order)) {
		return false
	}
	return true
}

// BuildInbox merges the orders window with the index. Rows sort by last message
// activity, falling back to the order confirmation time when a conversation has no
// observed messages yet.
func BuildInbox(orders []entity.Order, index *ConversationIndex, filter InboxFilter) []entity.InboxEntry {
	entries := make([]entity.InboxEntry, 0, len(orders)+index.Len())
	seen := make(map[string]struct{}, len(orders))

	for i := range orders {
		order := orders[i]
		k := order.Key.String()
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if !filter.match(order.Key, &order) {
			continue
		}
		entry := entity.InboxEntry{
			Key:      order.Key,
			Order:    &order,
			SortTime: order.ConfirmationSentAt,
		}
		if sum, ok := index.Summary(order.Key); ok {
			entry.Summary = &sum
			if !sum.LastActivityAt.IsZero() {
				entry.SortTime = sum.LastActivityAt
			}
		}
		entries = append(entries, entry)
	}

	for _, sum := range index.Summaries() {
		k := sum.Key.String()
		if _, ok := seen[k]; ok {
			continue
		}
		if !filter.match(sum.Key, nil) {
			continue
		}
		sum := sum
		entries = append(entries, entity.InboxEntry{
			Key:        sum.Key,
			Summary:    &sum,
			SortTime:   sum.LastActivityAt,
			Unassigned: sum.Unassigned,
		})
	}

	slices.SortFunc(entries, func(a, b entity.InboxEntry) int {
		if c := b.SortTime.Compare(a.SortTime); c != 0 {
			return c
		}
		return strings.Compare(a.Key.String(), b.Key.String())
	})
	return entries
}
