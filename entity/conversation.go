package entity

import (
	"time"
)

const (
	keyOrderPrefix      = "order:"
	keyUnassignedPrefix = "unassigned:"
)

// ConversationKey identifies one conversation. Order-backed conversations are keyed by
// the canonical order number alone; unassigned ones by the phone without "+".
type ConversationKey struct {
	Order string `json:"order_number,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (k ConversationKey) IsZero() bool {
	return k.Order == "" && k.Phone == ""
}

func (k ConversationKey) Unassigned() bool {
	return k.Order == "" && k.Phone != ""
}

func (k ConversationKey) String() string {
	if k.Order != "" {
		return keyOrderPrefix + k.Order
	}
	if k.Phone != "" {
		return keyUnassignedPrefix + k.Phone
	}
	return ""
}

// Same compares identity only; phone is ignored for order-backed keys.
func (k ConversationKey) Same(o ConversationKey) bool {
	return k.String() == o.String()
}

type ConversationSummary struct {
	Key                ConversationKey `json:"key"`
	LastActivityAt     time.Time       `json:"last_activity_at"`
	LastMessagePreview string          `json:"last_message_preview"`
	LastDirection      Direction       `json:"last_direction"`
	LastMessageID      string          `json:"last_message_id"`
	Unassigned         bool            `json:"unassigned"`
}

// InboxEntry is one row of the inbox list.
type InboxEntry struct {
	Key        ConversationKey      `json:"key"`
	Order      *Order               `json:"order,omitempty"`
	Summary    *ConversationSummary `json:"summary,omitempty"`
	SortTime   time.Time            `json:"sort_time"`
	Unassigned bool                 `json:"unassigned"`
}
