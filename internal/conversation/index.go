package conversation

import (
	"WaConsole/entity"
	"slices"
	"strings"
)

// ConversationIndex tracks the latest activity per conversation over the recent window
// of all messages. LastActivityAt only moves forward. At most window conversations are
// kept; the least recently active ones are evicted first. window <= 0 keeps all.
type ConversationIndex struct {
	summaries map[string]*entity.ConversationSummary
	latest    map[string]entity.Message
	render    RenderFunc
	window    int
}

func NewConversationIndex(render RenderFunc, window int) *ConversationIndex {
	return &ConversationIndex{
		summaries: make(map[string]*entity.ConversationSummary),
		latest:    make(map[string]entity.Message),
		render:    render,
		window:    window,
	}
}

// Observe folds a batch of normalized changes into the index and returns the summaries
// it touched. Deletes never move activity backwards and are ignored.
func (x *ConversationIndex) Observe(changes []entity.Change) []entity.ConversationSummary {
	touched := make(map[string]struct{})

	for _, ch := range changes {
		if ch.Op == entity.OpDelete || ch.Message == nil {
			continue
		}
		if x.observe(*ch.Message) {
			touched[ch.Message.Key.String()] = struct{}{}
		}
	}

	x.trim()

	updated := make([]entity.ConversationSummary, 0, len(touched))
	for k := range touched {
		if sum, ok := x.summaries[k]; ok {
			updated = append(updated, *sum)
		}
	}
	slices.SortFunc(updated, func(a, b entity.ConversationSummary) int {
		return strings.Compare(a.Key.String(), b.Key.String())
	})
	return updated
}

func (x *ConversationIndex) observe(msg entity.Message) bool {
	k := msg.Key.String()
	if k == "" || msg.Timestamp.IsZero() {
		return false
	}

	sum, ok := x.summaries[k]
	if !ok {
		sum = &entity.ConversationSummary{
			Key:        msg.Key,
			Unassigned: msg.Key.Unassigned(),
		}
		x.summaries[k] = sum
	}

	current, hasCurrent := x.latest[k]
	newer := !hasCurrent || compareMessages(msg, current) > 0
	sameLatest := hasCurrent && current.ID == msg.ID
	if !newer && !sameLatest {
		return false
	}

	before := *sum
	x.latest[k] = msg
	if msg.Timestamp.After(sum.LastActivityAt) {
		sum.LastActivityAt = msg.Timestamp
	}
	sum.LastMessagePreview = Preview(msg, x.render)
	sum.LastDirection = msg.Direction
	sum.LastMessageID = msg.ID
	return !ok || before != *sum
}

func (x *ConversationIndex) Summary(key entity.ConversationKey) (entity.ConversationSummary, bool) {
	sum, ok := x.summaries[key.String()]
	if !ok {
		return entity.ConversationSummary{}, false
	}
	return *sum, true
}

// Summaries returns every summary, most recent activity first.
func (x *ConversationIndex) Summaries() []entity.ConversationSummary {
	list := make([]entity.ConversationSummary, 0, len(x.summaries))
	for _, s := range x.summaries {
		list = append(list, *s)
	}
	slices.SortFunc(list, func(a, b entity.ConversationSummary) int {
		if c := b.LastActivityAt.Compare(a.LastActivityAt); c != 0 {
			return c
		}
		return strings.Compare(a.Key.String(), b.Key.String())
	})
	return list
}

func (x *ConversationIndex) Len() int {
	return len(x.summaries)
}

func (x *ConversationIndex) trim() {
	if x.window <= 0 || len(x.summaries) <= x.window {
		return
	}
	for _, s := range x.Summaries()[x.window:] {
		k := s.Key.String()
		delete(x.summaries, k)
		delete(x.latest, k)
	}
}
