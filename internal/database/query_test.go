package repository

import (
	"WaConsole/entity"
	"WaConsole/internal/conversation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"testing"
	"time"
)

func extJSON(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := bson.MarshalExtJSON(v, false, false)
	require.NoError(t, err)
	return string(b)
}

func TestBuildFilter(t *testing.T) {
	tests := []struct {
		name    string
		filters []entity.Filter
		prefix  string
		want    string
	}{
		{
			name:    "eq",
			filters: []entity.Filter{{Field: "order_number", Op: entity.FilterEq, Values: []interface{}{"77"}}},
			want:    `{"order_number":"77"}`,
		},
		{
			name:    "in",
			filters: []entity.Filter{{Field: "phone", Op: entity.FilterIn, Values: []interface{}{"2010", "+2010"}}},
			want:    `{"phone":{"$in":["2010","+2010"]}}`,
		},
		{
			name:    "missing matches null and empty",
			filters: []entity.Filter{{Field: "order_number", Op: entity.FilterMissing}},
			want:    `{"order_number":{"$in":[null,""]}}`,
		},
		{
			name: "prefixed for change events",
			filters: []entity.Filter{
				{Field: "order_number", Op: entity.FilterMissing},
				{Field: "phone", Op: entity.FilterEq, Values: []interface{}{"2010"}},
			},
			prefix: fullDocumentPrefix,
			want:   `{"fullDocument.order_number":{"$in":[null,""]},"fullDocument.phone":"2010"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := buildFilter(tt.filters, tt.prefix)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, extJSON(t, filter))
		})
	}
}

func TestBuildFilterRejectsBadFilters(t *testing.T) {
	_, err := buildFilter([]entity.Filter{{Field: "phone", Op: entity.FilterEq}}, "")
	assert.Error(t, err)
	_, err = buildFilter([]entity.Filter{{Field: "phone", Op: "regex", Values: []interface{}{"x"}}}, "")
	assert.Error(t, err)
}

func TestBuildSort(t *testing.T) {
	assert.Equal(t, bson.D{{"_id", 1}}, buildSort(entity.Query{}))
	assert.Equal(t, bson.D{{"sort_at", -1}, {"_id", -1}}, buildSort(entity.Query{OrderBy: "sort_at", Desc: true}))
	assert.Equal(t, bson.D{{"confirmation_sent_at", 1}, {"_id", 1}}, buildSort(entity.Query{OrderBy: "confirmation_sent_at"}))
}

func TestDocumentKey(t *testing.T) {
	oid := primitive.NewObjectID()
	key := documentKey(oid.Hex())
	require.IsType(t, primitive.ObjectID{}, key)
	assert.Equal(t, oid, key)
	assert.Equal(t, oid.Hex(), conversation.DocumentID(key))

	assert.Equal(t, "wamid.abc", documentKey("wamid.abc"))
}

func TestOlderThan(t *testing.T) {
	oid := primitive.NewObjectID()
	at := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)

	e := olderThan("sort_at", &entity.PageCursor{Timestamp: at, ID: oid.Hex()})
	require.Equal(t, "$or", e.Key)
	branches, ok := e.Value.(bson.A)
	require.True(t, ok)
	require.Len(t, branches, 2)

	before := branches[0].(bson.D)
	require.Len(t, before, 1)
	assert.Equal(t, "sort_at", before[0].Key)
	lt := before[0].Value.(bson.D)
	assert.Equal(t, "$lt", lt[0].Key)
	assert.Equal(t, at.Truncate(time.Millisecond), lt[0].Value.(primitive.DateTime).Time().UTC())

	tie := branches[1].(bson.D)
	require.Len(t, tie, 2)
	assert.Equal(t, "sort_at", tie[0].Key)
	assert.Equal(t, "_id", tie[1].Key)
	assert.Equal(t, bson.D{{"$lt", oid}}, tie[1].Value)
}

func stageNames(t *testing.T, pipeline []bson.D) []string {
	t.Helper()
	names := make([]string, 0, len(pipeline))
	for _, stage := range pipeline {
		require.Len(t, stage, 1)
		names = append(names, stage[0].Key)
	}
	return names
}

func TestBuildPipelineSnapshot(t *testing.T) {
	q := conversation.StreamQueries(entity.ConversationKey{Order: "77"}, 30)[0]
	filter, err := buildFilter(q.Filters, "")
	require.NoError(t, err)

	pipeline := buildPipeline(filter, q, nil)
	assert.Equal(t, []string{"$match", "$addFields", "$sort", "$limit"}, stageNames(t, pipeline))
	assert.Equal(t, bson.D{{"sort_at", -1}, {"_id", -1}}, pipeline[2][0].Value)
	assert.Equal(t, int64(30), pipeline[3][0].Value)
}

func TestBuildPipelineWindowHasNoMatch(t *testing.T) {
	pipeline := buildPipeline(bson.D{}, conversation.WindowQuery(500), nil)
	assert.Equal(t, []string{"$addFields", "$sort", "$limit"}, stageNames(t, pipeline))
}

func TestBuildPipelineOrdersKeepsStoredField(t *testing.T) {
	q := entity.Query{OrderBy: "confirmation_sent_at", Desc: true, Limit: 100}
	pipeline := buildPipeline(bson.D{}, q, nil)
	assert.Equal(t, []string{"$sort", "$limit"}, stageNames(t, pipeline))
}

func TestPagePipelineForTimestampOnlyRow(t *testing.T) {
	// a row written before created_at existed
	row := entity.MessageDoc{
		ID:          "wamid.old",
		OrderNumber: "77",
		Timestamp:   "2024-05-01T10:00:00.500Z",
		Direction:   "inbound",
	}
	cursor := pageCursor(&row)
	require.NotNil(t, cursor)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 500000000, time.UTC), cursor.Timestamp)
	assert.Equal(t, "wamid.old", cursor.ID)

	q := conversation.PageQuery(entity.ConversationKey{Order: "77"})
	filter, err := buildFilter(q.Filters, "")
	require.NoError(t, err)
	pipeline := buildPipeline(filter, entity.Query{OrderBy: q.OrderBy, Desc: true, Limit: 30}, cursor)
	require.Equal(t, []string{"$match", "$addFields", "$match", "$sort", "$limit"}, stageNames(t, pipeline))

	// older rows are selected on the derived field, never on created_at alone
	derived := pipeline[1][0].Value.(bson.D)
	require.Len(t, derived, 1)
	assert.Equal(t, conversation.FieldSortAt, derived[0].Key)
	ifNull := derived[0].Value.(bson.D)
	assert.Equal(t, "$ifNull", ifNull[0].Key)
	assert.Equal(t, "$created_at", ifNull[0].Value.(bson.A)[0])

	older := pipeline[2][0].Value.(bson.D)
	require.Len(t, older, 1)
	branches := older[0].Value.(bson.A)
	assert.Equal(t, conversation.FieldSortAt, branches[0].(bson.D)[0].Key)
	assert.Equal(t, conversation.FieldSortAt, branches[1].(bson.D)[0].Key)
}

func TestPageCursorPrefersDerivedTime(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	row := entity.MessageDoc{ID: "m1", SortAt: at, Timestamp: "garbage"}
	cursor := pageCursor(&row)
	require.NotNil(t, cursor)
	assert.Equal(t, at, cursor.Timestamp)

	assert.Nil(t, pageCursor(&entity.MessageDoc{ID: "m2", Timestamp: "garbage"}))
}

func TestScopedMatch(t *testing.T) {
	match, err := scopedMatch(nil)
	require.NoError(t, err)
	assert.Nil(t, match)

	q := conversation.StreamQueries(entity.ConversationKey{Phone: "2010"}, 30)[0]
	match, err = scopedMatch(q.Filters)
	require.NoError(t, err)
	assert.JSONEq(t, `{"$or":[
		{"fullDocument.order_number":{"$in":[null,""]},"fullDocument.phone":"2010"},
		{"operationType":{"$in":["replace","delete"]}},
		{"operationType":"update","$or":[
			{"updateDescription.removedFields":{"$in":["order_number","phone"]}},
			{"updateDescription.updatedFields.order_number":{"$exists":true}},
			{"updateDescription.updatedFields.phone":{"$exists":true}}
		]}
	]}`, extJSON(t, match))
}
