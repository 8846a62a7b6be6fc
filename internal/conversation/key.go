package conversation

import (
	"WaConsole/entity"
	"math"
	"strconv"
	"strings"
)

const (
	fieldOrderNumber = "order_number"
	fieldPhone       = "phone"

	// FieldSortAt is the logical send time the store derives per row: created_at when
	// set, otherwise the parsed timestamp field.
	FieldSortAt = "sort_at"
)

// ResolveKey folds the raw order number and phone encodings of a row into one key.
// A row with neither resolves to the zero key and ok=false.
func ResolveKey(order interface{}, phone string) (entity.ConversationKey, bool) {
	key := entity.ConversationKey{
		Order: CanonicalOrder(order),
		Phone: CanonicalPhone(phone),
	}
	if key.IsZero() {
		return key, false
	}
	return key, true
}

// CanonicalOrder renders a numeric or string order number as a decimal string.
// Non-integral numbers and unsupported types yield "".
func CanonicalOrder(v interface{}) string {
	switch o := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(o)
	case int:
		return strconv.Itoa(o)
	case int32:
		return strconv.FormatInt(int64(o), 10)
	case int64:
		return strconv.FormatInt(o, 10)
	case float64:
		if math.IsNaN(o) || math.IsInf(o, 0) || o != math.Trunc(o) {
			return ""
		}
		return strconv.FormatInt(int64(o), 10)
	case float32:
		return CanonicalOrder(float64(o))
	default:
		return ""
	}
}

// CanonicalPhone trims whitespace and a leading "+".
func CanonicalPhone(phone string) string {
	return strings.TrimPrefix(strings.TrimSpace(phone), "+")
}

// OrderEncodings lists every raw encoding an order number may be stored under.
// Numeric equality in the store does not match strings, so both are needed.
func OrderEncodings(order string) []interface{} {
	values := []interface{}{order}
	if n, err := strconv.ParseInt(order, 10, 64); err == nil {
		values = append(values, n)
	}
	return values
}

// PhoneEncodings lists the phone with and without the leading "+".
func PhoneEncodings(phone string) []interface{} {
	p := CanonicalPhone(phone)
	return []interface{}{p, "+" + p}
}

// StreamQueries returns one live query per raw encoding of the key, each limited to
// the newest limit rows.
func StreamQueries(key entity.ConversationKey, limit int) []entity.Query {
	var queries []entity.Query
	if key.Order != "" {
		for _, v := range OrderEncodings(key.Order) {
			queries = append(queries, entity.Query{
				Filters: []entity.Filter{{Field: fieldOrderNumber, Op: entity.FilterEq, Values: []interface{}{v}}},
				OrderBy: FieldSortAt,
				Desc:    true,
				Limit:   limit,
			})
		}
		return queries
	}
	if key.Phone != "" {
		for _, v := range PhoneEncodings(key.Phone) {
			queries = append(queries, entity.Query{
				Filters: []entity.Filter{
					{Field: fieldOrderNumber, Op: entity.FilterMissing},
					{Field: fieldPhone, Op: entity.FilterEq, Values: []interface{}{v}},
				},
				OrderBy: FieldSortAt,
				Desc:    true,
				Limit:   limit,
			})
		}
	}
	return queries
}

// PageQuery covers every encoding of the key in one predicate, newest first.
func PageQuery(key entity.ConversationKey) entity.Query {
	q := entity.Query{
		OrderBy: FieldSortAt,
		Desc:    true,
	}
	if key.Order != "" {
		q.Filters = []entity.Filter{{Field: fieldOrderNumber, Op: entity.FilterIn, Values: OrderEncodings(key.Order)}}
		return q
	}
	q.Filters = []entity.Filter{
		{Field: fieldOrderNumber, Op: entity.FilterMissing},
		{Field: fieldPhone, Op: entity.FilterIn, Values: PhoneEncodings(key.Phone)},
	}
	return q
}

// WindowQuery is the global recent-activity window the index watches.
func WindowQuery(window int) entity.Query {
	return entity.Query{
		OrderBy: FieldSortAt,
		Desc:    true,
		Limit:   window,
	}
}
