package inbox

import (
	"WaConsole/entity"
	"WaConsole/internal/conversation"
	"context"
)

type Core interface {
	Inbox(ctx context.Context, filter conversation.InboxFilter) ([]entity.InboxEntry, error)
}
