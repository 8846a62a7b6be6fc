package conversation

import (
	"WaConsole/entity"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrUnresolvableKey    = errors.New("message has no order number and no phone")
	ErrMalformedTimestamp = errors.New("message timestamp is malformed")
	ErrUnknownDirection   = errors.New("message direction is unknown")
	ErrMissingDocument    = errors.New("change event carries no document")
)

// epoch values above this are milliseconds
const millisThreshold = 1e12

// NormalizeEvent converts a raw change event into a Change. Deletes carry no message.
func NormalizeEvent(ev entity.ChangeEvent) (entity.Change, error) {
	change := entity.Change{
		ID:     ev.ID,
		Op:     ev.Op,
		Origin: ev.Origin,
	}
	if ev.Op == entity.OpDelete {
		return change, nil
	}
	if ev.Doc == nil {
		return change, ErrMissingDocument
	}
	msg, err := Normalize(ev.ID, ev.Doc)
	if err != nil {
		return change, err
	}
	change.Message = &msg
	return change, nil
}

// Normalize resolves the key, timestamp, direction and kind of a stored row.
func Normalize(id string, doc *entity.MessageDoc) (entity.Message, error) {
	key, ok := ResolveKey(doc.OrderNumber, doc.Phone)
	if !ok {
		return entity.Message{}, ErrUnresolvableKey
	}

	ts, err := MessageTime(doc)
	if err != nil {
		return entity.Message{}, err
	}

	direction, err := parseDirection(doc.Direction)
	if err != nil {
		return entity.Message{}, fmt.Errorf("%w: %q", err, doc.Direction)
	}

	msg := entity.Message{
		ID:                id,
		Key:               key,
		OrderNumber:       key.Order,
		Phone:             key.Phone,
		Timestamp:         ts,
		Direction:         direction,
		Kind:              parseKind(doc),
		Text:              doc.Text,
		MediaURL:          doc.MediaURL,
		Caption:           doc.Caption,
		ButtonText:        doc.ButtonText,
		TemplateName:      doc.TemplateName,
		TemplateVariables: doc.TemplateVariables,
	}
	if direction == entity.DirectionOutbound {
		msg.Status = doc.Status
	}
	return msg, nil
}

// MessageTime returns the logical send time: created_at when set, otherwise the
// timestamp field. Zero and unparsable values are rejected.
func MessageTime(doc *entity.MessageDoc) (time.Time, error) {
	if !doc.CreatedAt.IsZero() {
		return doc.CreatedAt.UTC(), nil
	}
	return ParseTimestamp(doc.Timestamp)
}

func ParseTimestamp(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, ErrMalformedTimestamp
		}
		return t.UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, ErrMalformedTimestamp
		}
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return parsed.UTC(), nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return time.Time{}, ErrMalformedTimestamp
		}
		return fromEpoch(n)
	case int32:
		return fromEpoch(float64(t))
	case int64:
		return fromEpoch(float64(t))
	case int:
		return fromEpoch(float64(t))
	case float64:
		return fromEpoch(t)
	default:
		return time.Time{}, ErrMalformedTimestamp
	}
}

func fromEpoch(n float64) (time.Time, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
		return time.Time{}, ErrMalformedTimestamp
	}
	if n >= millisThreshold {
		return time.UnixMilli(int64(n)).UTC(), nil
	}
	return time.Unix(int64(n), 0).UTC(), nil
}

// DocumentID renders a stored _id as a string. ObjectIDs render as hex.
func DocumentID(v interface{}) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case interface{ Hex() string }:
		return id.Hex()
	case fmt.Stringer:
		return id.String()
	}
	return fmt.Sprint(v)
}

func parseDirection(s string) (entity.Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inbound", "incoming", "in":
		return entity.DirectionInbound, nil
	case "outbound", "outgoing", "out":
		return entity.DirectionOutbound, nil
	}
	return "", ErrUnknownDirection
}

func parseKind(doc *entity.MessageDoc) entity.Kind {
	switch strings.ToLower(doc.Type) {
	case "text":
		return entity.KindText
	case "image", "sticker":
		return entity.KindImage
	case "audio", "voice", "ptt":
		return entity.KindAudio
	case "video":
		return entity.KindVideo
	case "button", "interactive":
		return entity.KindButton
	case "template":
		return entity.KindTemplate
	case "":
		if doc.Text != "" {
			return entity.KindText
		}
	}
	return entity.KindOther
}
