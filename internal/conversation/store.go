package conversation

import (
	"WaConsole/entity"
	"maps"
	"slices"
	"time"
)

// ApplyResult describes what a batch did to the store.
type ApplyResult struct {
	Inserted int
	Updated  int
	Removed  int
	// Changed is false when the batch left the sequence exactly as it was.
	Changed bool
	// ScrollToLatest is set when an insert landed after the previous newest message.
	ScrollToLatest bool
}

// MessageStore keeps the deduplicated, time-ordered messages of one conversation.
// It is not safe for concurrent use; the owning loop serializes access.
type MessageStore struct {
	byID    map[string]entity.Message
	ordered []entity.Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{
		byID: make(map[string]entity.Message),
	}
}

// ApplyChangeBatch applies normalized changes from any number of streams. Inserts of
// known ids act as updates, so re-delivery and overlapping streams are harmless.
func (s *MessageStore) ApplyChangeBatch(changes []entity.Change) ApplyResult {
	var res ApplyResult
	latest, hasLatest := s.latest()

	for _, ch := range changes {
		switch ch.Op {
		case entity.OpInsert, entity.OpUpdate:
			if ch.Message == nil {
				continue
			}
			msg := *ch.Message
			prev, exists := s.byID[msg.ID]
			if exists {
				res.Updated++
				if !sameMessage(prev, msg) {
					res.Changed = true
				}
			} else {
				res.Inserted++
				res.Changed = true
			}
			s.byID[msg.ID] = msg
			if ch.Op == entity.OpInsert && (!hasLatest || msg.Timestamp.After(latest)) {
				res.ScrollToLatest = true
			}
		case entity.OpDelete:
			if _, exists := s.byID[ch.ID]; exists {
				delete(s.byID, ch.ID)
				res.Removed++
				res.Changed = true
			}
		}
	}

	if res.Changed {
		s.reorder()
	}
	return res
}

// Merge unions a backfilled page into the store under the same id and order rules as
// live changes. Backfill never asks for a scroll.
func (s *MessageStore) Merge(messages []entity.Message) ApplyResult {
	changes := make([]entity.Change, 0, len(messages))
	for i := range messages {
		changes = append(changes, entity.Change{
			ID:      messages[i].ID,
			Op:      entity.OpInsert,
			Origin:  entity.OriginBackfill,
			Message: &messages[i],
		})
	}
	res := s.ApplyChangeBatch(changes)
	res.ScrollToLatest = false
	return res
}

// Messages returns a copy of the ordered sequence.
func (s *MessageStore) Messages() []entity.Message {
	return slices.Clone(s.ordered)
}

func (s *MessageStore) Len() int {
	return len(s.ordered)
}

func (s *MessageStore) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Oldest returns the first message in display order.
func (s *MessageStore) Oldest() (entity.Message, bool) {
	if len(s.ordered) == 0 {
		return entity.Message{}, false
	}
	return s.ordered[0], true
}

func (s *MessageStore) Latest() (time.Time, bool) {
	return s.latest()
}

func (s *MessageStore) Reset() {
	s.byID = make(map[string]entity.Message)
	s.ordered = nil
}

func (s *MessageStore) latest() (time.Time, bool) {
	if len(s.ordered) == 0 {
		return time.Time{}, false
	}
	return s.ordered[len(s.ordered)-1].Timestamp, true
}

func (s *MessageStore) reorder() {
	ordered := make([]entity.Message, 0, len(s.byID))
	for _, m := range s.byID {
		ordered = append(ordered, m)
	}
	slices.SortFunc(ordered, compareMessages)
	s.ordered = ordered
}

func compareMessages(a, b entity.Message) int {
	if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

func sameMessage(a, b entity.Message) bool {
	return a.ID == b.ID &&
		a.Key == b.Key &&
		a.Timestamp.Equal(b.Timestamp) &&
		a.Direction == b.Direction &&
		a.Kind == b.Kind &&
		a.Text == b.Text &&
		a.MediaURL == b.MediaURL &&
		a.Caption == b.Caption &&
		a.ButtonText == b.ButtonText &&
		a.TemplateName == b.TemplateName &&
		maps.Equal(a.TemplateVariables, b.TemplateVariables) &&
		a.Status == b.Status
}
