package repository

import (
	"WaConsole/entity"
	"WaConsole/internal/conversation"
	"WaConsole/internal/lib/sl"
	"context"
	"errors"
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"log/slog"
)

var ErrStreamInvalidated = errors.New("change stream invalidated")

// rawChange is the part of a change stream event the console reads.
type rawChange[T any] struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID interface{} `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument *T `bson:"fullDocument"`
}

// streamChange is a decoded event or snapshot row.
type streamChange[T any] struct {
	ID     string
	Op     entity.ChangeOp
	Origin entity.ChangeOrigin
	Doc    *T
}

type streamSpec struct {
	collection string
	query      entity.Query
	filter     bson.D
	match      bson.D
}

func (m *MongoDB) newStreamSpec(collection string, q entity.Query) (streamSpec, error) {
	filter, err := buildFilter(q.Filters, "")
	if err != nil {
		return streamSpec{}, err
	}
	match, err := scopedMatch(q.Filters)
	if err != nil {
		return streamSpec{}, err
	}
	return streamSpec{collection: collection, query: q, filter: filter, match: match}, nil
}

// runStream opens the change stream first, then reads the snapshot, so no write falls
// between the two. The snapshot is delivered as the first batch even when empty; each
// later batch is what the server returned in one getMore. Runs until ctx is done or
// the stream fails.
func runStream[T any](ctx context.Context, m *MongoDB, spec streamSpec, idOf func(*T) interface{},
	onBatch func([]streamChange[T]), onError func(error)) {

	log := m.log.With(slog.String("collection", spec.collection))

	connection, err := m.connect()
	if err != nil {
		onError(err)
		return
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(spec.collection)

	pipeline := mongo.Pipeline{}
	if spec.match != nil {
		pipeline = append(pipeline, bson.D{{"$match", spec.match}})
	}
	stream, err := collection.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		if ctx.Err() == nil {
			onError(fmt.Errorf("mongodb watch %s: %w", spec.collection, err))
		}
		return
	}
	defer stream.Close(context.Background())

	cursor, err := collection.Aggregate(ctx, buildPipeline(spec.filter, spec.query, nil))
	if err != nil {
		if ctx.Err() == nil {
			onError(fmt.Errorf("mongodb snapshot %s: %w", spec.collection, err))
		}
		return
	}
	var rows []T
	if err = cursor.All(ctx, &rows); err != nil {
		if ctx.Err() == nil {
			onError(fmt.Errorf("mongodb decode snapshot %s: %w", spec.collection, err))
		}
		return
	}
	snapshot := make([]streamChange[T], 0, len(rows))
	for i := range rows {
		snapshot = append(snapshot, streamChange[T]{
			ID:     conversation.DocumentID(idOf(&rows[i])),
			Op:     entity.OpInsert,
			Origin: entity.OriginSnapshot,
			Doc:    &rows[i],
		})
	}
	onBatch(snapshot)

	var batch []streamChange[T]
	for stream.Next(ctx) {
		var raw rawChange[T]
		if err := stream.Decode(&raw); err != nil {
			log.Warn("decode change event", sl.Err(err))
		} else {
			change, ok, err := convertChange(raw)
			if err != nil {
				onError(err)
				return
			}
			if ok {
				batch = append(batch, change)
			}
		}
		if stream.RemainingBatchLength() == 0 && len(batch) > 0 {
			onBatch(batch)
			batch = nil
		}
	}
	if len(batch) > 0 {
		onBatch(batch)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		onError(fmt.Errorf("mongodb change stream %s: %w", spec.collection, err))
	}
}

func convertChange[T any](raw rawChange[T]) (streamChange[T], bool, error) {
	change := streamChange[T]{
		ID:     conversation.DocumentID(raw.DocumentKey.ID),
		Origin: entity.OriginLive,
		Doc:    raw.FullDocument,
	}
	switch raw.OperationType {
	case "insert":
		change.Op = entity.OpInsert
	case "update", "replace":
		change.Op = entity.OpUpdate
	case "delete":
		change.Op = entity.OpDelete
		change.Doc = nil
		return change, true, nil
	case "invalidate", "drop", "dropDatabase", "rename":
		return change, false, fmt.Errorf("%w: %s", ErrStreamInvalidated, raw.OperationType)
	default:
		return change, false, nil
	}
	// the document was removed before the update could be looked up
	if change.Doc == nil {
		change.Op = entity.OpDelete
	}
	return change, true, nil
}
