package conversation

import (
	"WaConsole/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestResolveKeyFoldsEncodings(t *testing.T) {
	numeric, ok := ResolveKey(int64(1042), "+201000000000")
	require.True(t, ok)
	text, ok := ResolveKey("1042", "201000000000")
	require.True(t, ok)
	float, ok := ResolveKey(float64(1042), "")
	require.True(t, ok)

	assert.Equal(t, "order:1042", numeric.String())
	assert.True(t, numeric.Same(text))
	assert.True(t, numeric.Same(float))
	assert.Equal(t, "201000000000", numeric.Phone)
}

func TestResolveKeyUnassigned(t *testing.T) {
	a, ok := ResolveKey(nil, "+201000000000")
	require.True(t, ok)
	b, ok := ResolveKey("", " 201000000000 ")
	require.True(t, ok)

	assert.True(t, a.Unassigned())
	assert.Equal(t, "unassigned:201000000000", a.String())
	assert.True(t, a.Same(b))
}

func TestResolveKeyRejectsEmpty(t *testing.T) {
	_, ok := ResolveKey(nil, "")
	assert.False(t, ok)
	_, ok = ResolveKey(10.5, "")
	assert.False(t, ok)
}

func TestStreamQueriesPerEncoding(t *testing.T) {
	queries := StreamQueries(entity.ConversationKey{Order: "77"}, 30)
	require.Len(t, queries, 2)
	assert.Equal(t, []interface{}{"77"}, queries[0].Filters[0].Values)
	assert.Equal(t, []interface{}{int64(77)}, queries[1].Filters[0].Values)
	for _, q := range queries {
		assert.Equal(t, FieldSortAt, q.OrderBy)
		assert.True(t, q.Desc)
		assert.Equal(t, 30, q.Limit)
	}

	queries = StreamQueries(entity.ConversationKey{Order: "A-77"}, 30)
	assert.Len(t, queries, 1)
}

func TestStreamQueriesUnassigned(t *testing.T) {
	queries := StreamQueries(entity.ConversationKey{Phone: "201000000000"}, 10)
	require.Len(t, queries, 2)
	for _, q := range queries {
		require.Len(t, q.Filters, 2)
		assert.Equal(t, entity.FilterMissing, q.Filters[0].Op)
	}
	assert.Equal(t, []interface{}{"201000000000"}, queries[0].Filters[1].Values)
	assert.Equal(t, []interface{}{"+201000000000"}, queries[1].Filters[1].Values)
}

func TestPageQueryCoversAllEncodings(t *testing.T) {
	q := PageQuery(entity.ConversationKey{Order: "77", Phone: "2010"})
	require.Len(t, q.Filters, 1)
	assert.Equal(t, entity.FilterIn, q.Filters[0].Op)
	assert.ElementsMatch(t, []interface{}{"77", int64(77)}, q.Filters[0].Values)

	q = PageQuery(entity.ConversationKey{Phone: "2010"})
	require.Len(t, q.Filters, 2)
	assert.ElementsMatch(t, []interface{}{"2010", "+2010"}, q.Filters[1].Values)
}
