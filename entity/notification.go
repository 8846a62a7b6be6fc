package entity

import (
	"time"
)

type Notification struct {
	MessageID string          `json:"message_id"`
	Key       ConversationKey `json:"key"`
	Phone     string          `json:"phone"`
	Preview   string          `json:"preview"`
	Timestamp time.Time       `json:"timestamp"`
}
