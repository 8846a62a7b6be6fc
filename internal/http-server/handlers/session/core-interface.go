package session

import (
	"WaConsole/impl/core"
	"context"
)

type Core interface {
	Thread(ctx context.Context, clientID string) (core.ThreadView, error)
}
