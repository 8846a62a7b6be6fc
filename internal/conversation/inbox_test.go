package conversation

import (
	"WaConsole/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func orderChange(id string, number interface{}, phone string, sec int) entity.OrderChange {
	return entity.OrderChange{
		ID: id,
		Op: entity.OpInsert,
		Doc: &entity.OrderDoc{
			ID:                 id,
			OrderNumber:        number,
			PhoneE164:          phone,
			ConfirmationSentAt: at(sec),
		},
	}
}

func TestBuildInboxSortsByActivity(t *testing.T) {
	book := NewOrderBook(10)
	book.Apply([]entity.OrderChange{
		orderChange("o1", int64(15), "+201000000000", 100),
		orderChange("o2", "16", "+201222222222", 50),
	})

	x := NewConversationIndex(nil, 0)
	x.Observe([]entity.Change{
		insert(orderMsg("m1", "16", 200, entity.DirectionInbound), entity.OriginLive),
		insert(entity.Message{
			ID:        "u1",
			Key:       entity.ConversationKey{Phone: "201333333333"},
			Timestamp: at(150),
			Direction: entity.DirectionInbound,
			Kind:      entity.KindText,
			Text:      "hello?",
		}, entity.OriginLive),
	})

	entries := BuildInbox(book.Orders(), x, InboxFilter{})
	require.Len(t, entries, 3)
	assert.Equal(t, "order:16", entries[0].Key.String())
	require.NotNil(t, entries[0].Summary)
	assert.Equal(t, "unassigned:201333333333", entries[1].Key.String())
	assert.True(t, entries[1].Unassigned)
	assert.Equal(t, "order:15", entries[2].Key.String())
	assert.Nil(t, entries[2].Summary)
	assert.Equal(t, at(100), entries[2].SortTime)
}

func TestBuildInboxFilters(t *testing.T) {
	book := NewOrderBook(10)
	book.Apply([]entity.OrderChange{
		orderChange("o1", "1015", "+201000000000", 100),
		orderChange("o2", "2020", "+201222222222", 50),
	})
	x := NewConversationIndex(nil, 0)

	byPhone := BuildInbox(book.Orders(), x, InboxFilter{Phone: "+20122"})
	require.Len(t, byPhone, 1)
	assert.Equal(t, "2020", byPhone[0].Key.Order)

	byOrder := BuildInbox(book.Orders(), x, InboxFilter{Order: "01"})
	require.Len(t, byOrder, 1)
	assert.Equal(t, "1015", byOrder[0].Key.Order)
}

func TestOrderBookWindow(t *testing.T) {
	book := NewOrderBook(2)
	changed := book.Apply([]entity.OrderChange{
		orderChange("o1", "1", "", 10),
		orderChange("o2", "2", "", 20),
		orderChange("o3", "3", "", 30),
		{ID: "bad", Op: entity.OpInsert, Doc: &entity.OrderDoc{}},
	})
	assert.True(t, changed)

	orders := book.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, "3", orders[0].OrderNumber)
	assert.Equal(t, "2", orders[1].OrderNumber)

	_, ok := book.Find(entity.ConversationKey{Order: "2"})
	assert.True(t, ok)

	assert.True(t, book.Apply([]entity.OrderChange{{ID: "o2", Op: entity.OpDelete}}))
	assert.False(t, book.Apply([]entity.OrderChange{{ID: "o2", Op: entity.OpDelete}}))
	assert.Len(t, book.Orders(), 1)
}
