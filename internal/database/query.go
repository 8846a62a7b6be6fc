package repository

import (
	"WaConsole/entity"
	"WaConsole/internal/conversation"
	"fmt"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	fullDocumentPrefix = "fullDocument."

	// epoch values below this are seconds, at or above it milliseconds
	millisThreshold = 1e12
)

// buildFilter turns query filters into a find filter. prefix is prepended to every
// field, so the same filters can match change events.
func buildFilter(filters []entity.Filter, prefix string) (bson.D, error) {
	filter := bson.D{}
	for _, f := range filters {
		field := prefix + f.Field
		switch f.Op {
		case entity.FilterEq:
			if len(f.Values) != 1 {
				return nil, fmt.Errorf("filter %s: eq takes one value, got %d", f.Field, len(f.Values))
			}
			filter = append(filter, bson.E{Key: field, Value: f.Values[0]})
		case entity.FilterIn:
			filter = append(filter, bson.E{Key: field, Value: bson.D{{"$in", bson.A(f.Values)}}})
		case entity.FilterMissing:
			// $in with null also matches an absent field
			filter = append(filter, bson.E{Key: field, Value: bson.D{{"$in", bson.A{nil, ""}}}})
		default:
			return nil, fmt.Errorf("filter %s: unsupported op %q", f.Field, f.Op)
		}
	}
	return filter, nil
}

func buildSort(q entity.Query) bson.D {
	if q.OrderBy == "" {
		return bson.D{{"_id", 1}}
	}
	dir := 1
	if q.Desc {
		dir = -1
	}
	return bson.D{{q.OrderBy, dir}, {"_id", dir}}
}

// buildPipeline reads the rows matching filter in query order. Ordering by
// conversation.FieldSortAt derives the field per row first, so rows that only carry
// timestamp sort and page alongside rows with created_at.
func buildPipeline(filter bson.D, q entity.Query, cursor *entity.PageCursor) mongo.Pipeline {
	pipeline := mongo.Pipeline{}
	if len(filter) > 0 {
		pipeline = append(pipeline, bson.D{{"$match", filter}})
	}
	if q.OrderBy == conversation.FieldSortAt {
		pipeline = append(pipeline, bson.D{{"$addFields", bson.D{{conversation.FieldSortAt, sortAtExpr()}}}})
	}
	if cursor != nil && q.OrderBy != "" {
		pipeline = append(pipeline, bson.D{{"$match", bson.D{olderThan(q.OrderBy, cursor)}}})
	}
	pipeline = append(pipeline, bson.D{{"$sort", buildSort(q)}})
	if q.Limit > 0 {
		pipeline = append(pipeline, bson.D{{"$limit", int64(q.Limit)}})
	}
	return pipeline
}

// sortAtExpr is created_at when present, otherwise timestamp read as a date, an
// RFC3339 string, or epoch seconds or milliseconds. Unreadable values yield null.
func sortAtExpr() bson.D {
	const ts = "$timestamp"
	tsType := bson.D{{"$type", ts}}
	asDouble := bson.D{{"$convert", bson.D{
		{"input", ts}, {"to", "double"}, {"onError", nil}, {"onNull", nil},
	}}}
	fromString := bson.D{{"$convert", bson.D{
		{"input", ts}, {"to", "date"}, {"onError", epochExpr(asDouble)}, {"onNull", nil},
	}}}
	fromTimestamp := bson.D{{"$switch", bson.D{
		{"branches", bson.A{
			bson.D{{"case", bson.D{{"$eq", bson.A{tsType, "date"}}}}, {"then", ts}},
			bson.D{{"case", bson.D{{"$eq", bson.A{tsType, "string"}}}}, {"then", fromString}},
			bson.D{{"case", bson.D{{"$isNumber", ts}}}, {"then", epochExpr(ts)}},
		}},
		{"default", nil},
	}}}
	return bson.D{{"$ifNull", bson.A{"$created_at", fromTimestamp}}}
}

func epochExpr(n interface{}) bson.D {
	whole := bson.D{{"$trunc", bson.A{n}}}
	return bson.D{{"$cond", bson.A{
		bson.D{{"$and", bson.A{
			bson.D{{"$ne", bson.A{n, nil}}},
			bson.D{{"$gt", bson.A{n, 0}}},
		}}},
		bson.D{{"$cond", bson.A{
			bson.D{{"$lt", bson.A{n, millisThreshold}}},
			bson.D{{"$toDate", bson.D{{"$multiply", bson.A{whole, 1000}}}}},
			bson.D{{"$toDate", whole}},
		}}},
		nil,
	}}}
}

// olderThan restricts a descending page to rows strictly before the cursor.
func olderThan(field string, cursor *entity.PageCursor) bson.E {
	ts := primitive.NewDateTimeFromTime(cursor.Timestamp)
	return bson.E{Key: "$or", Value: bson.A{
		bson.D{{field, bson.D{{"$lt", ts}}}},
		bson.D{{field, ts}, {"_id", bson.D{{"$lt", documentKey(cursor.ID)}}}},
	}}
}

// documentKey maps a string id back to the stored _id type.
func documentKey(id string) interface{} {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

// scopedMatch passes change events whose document matches the filter. Outside the
// filter it passes deletes and replaces, and only those updates that touch a filtered
// field, so a subscriber still sees a message leave its scope.
func scopedMatch(filters []entity.Filter) (bson.D, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	match, err := buildFilter(filters, fullDocumentPrefix)
	if err != nil {
		return nil, err
	}

	var fields bson.A
	seen := make(map[string]bool)
	for _, f := range filters {
		if !seen[f.Field] {
			seen[f.Field] = true
			fields = append(fields, f.Field)
		}
	}
	movedUpdate := bson.A{
		bson.D{{"updateDescription.removedFields", bson.D{{"$in", fields}}}},
	}
	for _, f := range fields {
		movedUpdate = append(movedUpdate,
			bson.D{{"updateDescription.updatedFields." + f.(string), bson.D{{"$exists", true}}}})
	}

	return bson.D{{"$or", bson.A{
		match,
		bson.D{{"operationType", bson.D{{"$in", bson.A{"replace", "delete"}}}}},
		bson.D{{"operationType", "update"}, {"$or", movedUpdate}},
	}}}, nil
}
