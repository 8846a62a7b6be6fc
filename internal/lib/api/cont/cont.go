package cont

import (
	"context"
)

type ctxKey string

const userKey ctxKey = "user"

func PutUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, userKey, username)
}

func GetUser(ctx context.Context) string {
	user, ok := ctx.Value(userKey).(string)
	if !ok {
		return ""
	}
	return user
}
