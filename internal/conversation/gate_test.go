package conversation

import (
	"WaConsole/entity"
	"fmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

func TestGateIgnoresHistory(t *testing.T) {
	g, err := NewNotificationGate(nil, 0, 0)
	require.NoError(t, err)
	defer g.Close()

	fired := 0
	for i := 0; i < 30; i++ {
		m := orderMsg(fmt.Sprintf("b%d", i), "15", i, entity.DirectionInbound)
		if _, ok := g.OnEvent(insert(m, entity.OriginBackfill)); ok {
			fired++
		}
		if _, ok := g.OnEvent(insert(m, entity.OriginSnapshot)); ok {
			fired++
		}
	}
	assert.Zero(t, fired)

	n, ok := g.OnEvent(insert(orderMsg("live", "15", 100, entity.DirectionInbound), entity.OriginLive))
	require.True(t, ok)
	assert.Equal(t, "live", n.MessageID)
	assert.Equal(t, "order:15", n.Key.String())
	assert.Equal(t, "text live", n.Preview)
}

func TestGateIgnoresOutboundAndUpdates(t *testing.T) {
	g, err := NewNotificationGate(nil, 0, 0)
	require.NoError(t, err)

	_, ok := g.OnEvent(insert(orderMsg("o", "15", 1, entity.DirectionOutbound), entity.OriginLive))
	assert.False(t, ok)
	_, ok = g.OnEvent(update(orderMsg("i", "15", 1, entity.DirectionInbound)))
	assert.False(t, ok)
	_, ok = g.OnEvent(remove("i"))
	assert.False(t, ok)
}

func TestGateDuplicatesWithoutDedup(t *testing.T) {
	g, err := NewNotificationGate(nil, 0, 0)
	require.NoError(t, err)

	m := orderMsg("dup", "15", 1, entity.DirectionInbound)
	_, first := g.OnEvent(insert(m, entity.OriginLive))
	_, second := g.OnEvent(insert(m, entity.OriginLive))
	assert.True(t, first)
	assert.True(t, second)
}

func TestGateDedupWithTTL(t *testing.T) {
	g, err := NewNotificationGate(nil, time.Minute, 100)
	require.NoError(t, err)
	defer g.Close()

	m := orderMsg("dup", "15", 1, entity.DirectionInbound)
	_, first := g.OnEvent(insert(m, entity.OriginLive))
	_, second := g.OnEvent(insert(m, entity.OriginLive))
	assert.True(t, first)
	assert.False(t, second)

	_, other := g.OnEvent(insert(orderMsg("other", "15", 2, entity.DirectionInbound), entity.OriginLive))
	assert.True(t, other)
}
