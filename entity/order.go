package entity

import (
	"time"
)

type Order struct {
	ID                 string          `json:"id"`
	Key                ConversationKey `json:"key"`
	OrderNumber        string          `json:"order_number"`
	PhoneE164          string          `json:"phone_e164"`
	Name               string          `json:"name,omitempty"`
	Status             string          `json:"status,omitempty"`
	ConfirmationSentAt time.Time       `json:"confirmation_sent_at"`
}

type OrderDoc struct {
	ID                 interface{} `bson:"_id"`
	OrderNumber        interface{} `bson:"order_number"`
	PhoneE164          string      `bson:"phone_e164"`
	Name               string      `bson:"name,omitempty"`
	Status             string      `bson:"status,omitempty"`
	ConfirmationSentAt time.Time   `bson:"confirmation_sent_at,omitempty"`
}

// OrderChange is one event of the orders stream. Doc is nil for deletes.
type OrderChange struct {
	ID  string
	Op  ChangeOp
	Doc *OrderDoc
}
