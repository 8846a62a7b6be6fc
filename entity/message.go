package entity

import (
	"time"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Kind string

const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindAudio    Kind = "audio"
	KindVideo    Kind = "video"
	KindButton   Kind = "button"
	KindTemplate Kind = "template"
	KindOther    Kind = "other"
)

// Message is a normalized WhatsApp message. Only Status changes after delivery,
// and only on outbound messages.
type Message struct {
	ID                string            `json:"id"`
	Key               ConversationKey   `json:"key"`
	OrderNumber       string            `json:"order_number,omitempty"`
	Phone             string            `json:"phone,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
	Direction         Direction         `json:"direction"`
	Kind              Kind              `json:"kind"`
	Text              string            `json:"text,omitempty"`
	MediaURL          string            `json:"media_url,omitempty"`
	Caption           string            `json:"caption,omitempty"`
	ButtonText        string            `json:"button_text,omitempty"`
	TemplateName      string            `json:"template_name,omitempty"`
	TemplateVariables map[string]string `json:"template_variables,omitempty"`
	Status            string            `json:"status,omitempty"`
}

// Cursor returns the page cursor pointing at this message.
func (m Message) Cursor() PageCursor {
	return PageCursor{Timestamp: m.Timestamp, ID: m.ID}
}

// MessageDoc is a whatsappMessages row as stored. OrderNumber is a number, a string,
// or absent; Timestamp is an RFC3339 string or an epoch value.
type MessageDoc struct {
	ID                interface{}       `bson:"_id"`
	OrderNumber       interface{}       `bson:"order_number,omitempty"`
	Phone             string            `bson:"phone,omitempty"`
	CreatedAt         time.Time         `bson:"created_at,omitempty"`
	Timestamp         interface{}       `bson:"timestamp,omitempty"`
	Direction         string            `bson:"direction"`
	Type              string            `bson:"type,omitempty"`
	Text              string            `bson:"text,omitempty"`
	MediaURL          string            `bson:"media_url,omitempty"`
	Caption           string            `bson:"caption,omitempty"`
	ButtonText        string            `bson:"button_text,omitempty"`
	TemplateName      string            `bson:"template_name,omitempty"`
	TemplateVariables map[string]string `bson:"template_variables,omitempty"`
	Status            string            `bson:"status,omitempty"`

	// SortAt is computed by queries, never stored.
	SortAt time.Time `bson:"sort_at,omitempty"`
}
