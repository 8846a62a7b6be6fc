package entity

import (
	"time"
)

type FilterOp string

const (
	FilterEq      FilterOp = "eq"
	FilterIn      FilterOp = "in"
	FilterMissing FilterOp = "missing"
)

type Filter struct {
	Field  string        `json:"field"`
	Op     FilterOp      `json:"op"`
	Values []interface{} `json:"values,omitempty"`
}

// Query is a conjunction of filters plus ordering and an optional row limit.
type Query struct {
	Filters []Filter `json:"filters"`
	OrderBy string   `json:"order_by"`
	Desc    bool     `json:"desc"`
	Limit   int      `json:"limit,omitempty"`
}

// PageCursor points at the oldest row of a loaded range.
type PageCursor struct {
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id"`
}

type Page struct {
	Rows []MessageDoc `json:"-"`
	Next *PageCursor  `json:"next,omitempty"`
}

type PaginationState struct {
	Boundary        *PageCursor `json:"boundary,omitempty"`
	HasMoreOlder    bool        `json:"has_more_older"`
	IsFetchingOlder bool        `json:"is_fetching_older"`
}
