package repository

import (
	"WaConsole/entity"
	"WaConsole/internal/conversation"
	"context"
	"fmt"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubscribeMessages streams whatsappMessages rows matching q: the newest q.Limit rows
// first as a snapshot batch, then live changes.
func (m *MongoDB) SubscribeMessages(ctx context.Context, q entity.Query, onBatch func([]entity.ChangeEvent), onError func(error)) (func(), error) {
	spec, err := m.newStreamSpec(messagesCollection, q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)

	go runStream(ctx, m, spec,
		func(doc *entity.MessageDoc) interface{} { return doc.ID },
		func(batch []streamChange[entity.MessageDoc]) {
			events := make([]entity.ChangeEvent, 0, len(batch))
			for _, ch := range batch {
				if ch.Doc != nil {
					fixMessageDoc(ch.Doc)
				}
				events = append(events, entity.ChangeEvent{
					ID:     ch.ID,
					Op:     ch.Op,
					Origin: ch.Origin,
					Doc:    ch.Doc,
				})
			}
			onBatch(events)
		},
		onError,
	)

	return cancel, nil
}

// FetchPage reads up to pageSize rows matching q strictly older than cursor, newest
// first. Next points at the last row returned.
func (m *MongoDB) FetchPage(ctx context.Context, q entity.Query, cursor *entity.PageCursor, pageSize int) (entity.Page, error) {
	filter, err := buildFilter(q.Filters, "")
	if err != nil {
		return entity.Page{}, err
	}
	field := q.OrderBy
	if field == "" {
		field = conversation.FieldSortAt
	}
	pageQuery := entity.Query{OrderBy: field, Desc: true, Limit: pageSize}

	connection, err := m.connect()
	if err != nil {
		return entity.Page{}, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	rows, err := collection.Aggregate(ctx, buildPipeline(filter, pageQuery, cursor))
	if err != nil {
		return entity.Page{}, fmt.Errorf("mongodb find messages page: %w", err)
	}
	defer rows.Close(ctx)

	var docs []entity.MessageDoc
	if err = rows.All(ctx, &docs); err != nil {
		return entity.Page{}, fmt.Errorf("mongodb decode messages page: %w", err)
	}

	page := entity.Page{Rows: docs}
	for i := range page.Rows {
		fixMessageDoc(&page.Rows[i])
	}
	if n := len(page.Rows); n > 0 {
		page.Next = pageCursor(&page.Rows[n-1])
	}
	return page, nil
}

// pageCursor points at row by the same sort_at the page query filtered on. Rows
// without one fall back to the parsed send time; nil when neither is usable.
func pageCursor(row *entity.MessageDoc) *entity.PageCursor {
	ts := row.SortAt
	if ts.IsZero() {
		parsed, err := conversation.MessageTime(row)
		if err != nil {
			return nil
		}
		ts = parsed
	}
	return &entity.PageCursor{
		Timestamp: ts.UTC(),
		ID:        conversation.DocumentID(row.ID),
	}
}

// fixMessageDoc turns BSON-only values into plain Go ones.
func fixMessageDoc(doc *entity.MessageDoc) {
	if dt, ok := doc.Timestamp.(primitive.DateTime); ok {
		doc.Timestamp = dt.Time()
	}
}
