package conversation

import (
	"WaConsole/entity"
	"WaConsole/internal/lib/sl"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

const DefaultPageSize = 30

var (
	ErrFetchInFlight = errors.New("older page fetch already in flight")
	ErrExhausted     = errors.New("no older messages")
)

// PageFetcher runs one-shot page queries against the message source. Rows come back
// newest first, strictly older than the cursor when one is given.
type PageFetcher interface {
	FetchPage(ctx context.Context, q entity.Query, cursor *entity.PageCursor, pageSize int) (entity.Page, error)
}

// OlderPage is an older page ready to merge, in ascending order.
type OlderPage struct {
	Messages []entity.Message
	Boundary *entity.PageCursor
	// HasMore is a heuristic: true whenever the source returned a full page, so one
	// extra empty fetch may happen at the very start of history.
	HasMore bool
}

// SnapshotEdge describes the initial snapshot one live stream delivered.
type SnapshotEdge struct {
	Oldest *entity.PageCursor
	Full   bool
}

// PaginationCursor tracks the oldest loaded boundary of one open conversation and
// gates backward page fetches to one at a time.
type PaginationCursor struct {
	key      entity.ConversationKey
	fetcher  PageFetcher
	pageSize int
	timeout  time.Duration
	state    entity.PaginationState
	log      *slog.Logger
}

func NewPaginationCursor(key entity.ConversationKey, fetcher PageFetcher, pageSize int, timeout time.Duration, log *slog.Logger) *PaginationCursor {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &PaginationCursor{
		key:      key,
		fetcher:  fetcher,
		pageSize: pageSize,
		timeout:  timeout,
		state:    entity.PaginationState{HasMoreOlder: true},
		log:      log.With(sl.Module("conversation.cursor")),
	}
}

func (c *PaginationCursor) State() entity.PaginationState {
	return c.state
}

func (c *PaginationCursor) PageSize() int {
	return c.pageSize
}

// Seed sets the initial boundary from the snapshots of all live streams. Streams that
// returned a full snapshot may hide older rows, so the boundary is the newest of their
// oldest rows; when no stream was full, everything is loaded already.
func (c *PaginationCursor) Seed(edges []SnapshotEdge) {
	if c.state.Boundary != nil || c.state.IsFetchingOlder {
		return
	}
	var full, oldest *entity.PageCursor
	for _, e := range edges {
		if e.Oldest == nil {
			continue
		}
		if e.Full && (full == nil || cursorAfter(*e.Oldest, *full)) {
			full = e.Oldest
		}
		if oldest == nil || cursorAfter(*oldest, *e.Oldest) {
			oldest = e.Oldest
		}
	}
	if full != nil {
		c.state.Boundary = full
		c.state.HasMoreOlder = true
		return
	}
	c.state.Boundary = oldest
	c.state.HasMoreOlder = false
}

// Begin claims the fetch slot. It fails while a fetch is outstanding or once history
// is exhausted, and returns the boundary to fetch from.
func (c *PaginationCursor) Begin() (*entity.PageCursor, error) {
	if c.state.IsFetchingOlder {
		return nil, ErrFetchInFlight
	}
	if !c.state.HasMoreOlder {
		return nil, ErrExhausted
	}
	c.state.IsFetchingOlder = true
	return c.state.Boundary, nil
}

// Fetch loads the page older than boundary. It does not touch the cursor state and
// may run off the owning loop.
func (c *PaginationCursor) Fetch(ctx context.Context, boundary *entity.PageCursor) (OlderPage, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	page, err := c.fetcher.FetchPage(ctx, PageQuery(c.key), boundary, c.pageSize)
	if err != nil {
		return OlderPage{}, fmt.Errorf("fetch older page of %s: %w", c.key, err)
	}

	older := OlderPage{
		Messages: make([]entity.Message, 0, len(page.Rows)),
		Boundary: boundary,
		HasMore:  len(page.Rows) >= c.pageSize,
	}
	for i := range page.Rows {
		row := &page.Rows[i]
		id := DocumentID(row.ID)
		msg, err := Normalize(id, row)
		if err != nil {
			c.log.With(slog.String("id", id), sl.Err(err)).Warn("skipping backfilled message")
			continue
		}
		older.Messages = append(older.Messages, msg)
	}
	slices.Reverse(older.Messages)

	switch {
	case page.Next != nil:
		older.Boundary = page.Next
	case len(older.Messages) > 0:
		oldest := older.Messages[0].Cursor()
		older.Boundary = &oldest
	}
	return older, nil
}

// Complete records a finished fetch.
func (c *PaginationCursor) Complete(page OlderPage) {
	c.state.IsFetchingOlder = false
	c.state.Boundary = page.Boundary
	c.state.HasMoreOlder = page.HasMore
}

// Fail releases the fetch slot and leaves HasMoreOlder as it was so a later scroll can
// retry.
func (c *PaginationCursor) Fail() {
	c.state.IsFetchingOlder = false
}

// LoadOlder runs Begin, Fetch and Complete in one call for synchronous callers.
func (c *PaginationCursor) LoadOlder(ctx context.Context) (OlderPage, error) {
	boundary, err := c.Begin()
	if err != nil {
		return OlderPage{}, err
	}
	page, err := c.Fetch(ctx, boundary)
	if err != nil {
		c.Fail()
		return OlderPage{}, err
	}
	c.Complete(page)
	return page, nil
}

func cursorAfter(a, b entity.PageCursor) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}
