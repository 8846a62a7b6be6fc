package conversation

import (
	"WaConsole/entity"
	"fmt"
	"time"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time {
	return base.Add(time.Duration(sec) * time.Second)
}

func orderMsg(id, order string, sec int, dir entity.Direction) entity.Message {
	key := entity.ConversationKey{Order: order, Phone: "201000000000"}
	return entity.Message{
		ID:          id,
		Key:         key,
		OrderNumber: order,
		Phone:       key.Phone,
		Timestamp:   at(sec),
		Direction:   dir,
		Kind:        entity.KindText,
		Text:        "text " + id,
	}
}

func insert(m entity.Message, origin entity.ChangeOrigin) entity.Change {
	return entity.Change{ID: m.ID, Op: entity.OpInsert, Origin: origin, Message: &m}
}

func update(m entity.Message) entity.Change {
	return entity.Change{ID: m.ID, Op: entity.OpUpdate, Origin: entity.OriginLive, Message: &m}
}

func remove(id string) entity.Change {
	return entity.Change{ID: id, Op: entity.OpDelete, Origin: entity.OriginLive}
}

func ids(messages []entity.Message) []string {
	out := make([]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.ID)
	}
	return out
}

func doc(id string, order interface{}, phone string, sec int, dir string) entity.MessageDoc {
	return entity.MessageDoc{
		ID:          id,
		OrderNumber: order,
		Phone:       phone,
		CreatedAt:   at(sec),
		Direction:   dir,
		Type:        "text",
		Text:        fmt.Sprintf("row %s", id),
	}
}
