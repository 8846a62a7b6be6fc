package send

import "context"

type Core interface {
	SendMessage(ctx context.Context, phone, body, orderNumber string) error
	SendTemplate(ctx context.Context, phone, name string, variables map[string]string, orderNumber string) error
}
