package entity

type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// ChangeOrigin tells live pushes apart from the initial snapshot of a subscription
// and from pages fetched on demand.
type ChangeOrigin string

const (
	OriginLive     ChangeOrigin = "live"
	OriginSnapshot ChangeOrigin = "snapshot"
	OriginBackfill ChangeOrigin = "backfill"
)

// ChangeEvent is one raw event from a change stream. Doc is nil for deletes.
type ChangeEvent struct {
	ID     string       `json:"id"`
	Op     ChangeOp     `json:"op"`
	Origin ChangeOrigin `json:"origin"`
	Doc    *MessageDoc  `json:"-"`
}

// Change is a ChangeEvent after boundary normalization.
type Change struct {
	ID      string
	Op      ChangeOp
	Origin  ChangeOrigin
	Message *Message
}
