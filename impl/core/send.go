package core

import (
	"WaConsole/internal/conversation"
	"WaConsole/internal/lib/sl"
	"WaConsole/internal/metrics"
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrNoSender     = errors.New("gateway sender not configured")
	ErrInvalidPhone = errors.New("phone is required")
)

// SendMessage forwards an operator reply to the gateway. The message is not added to
// any thread here; it shows up once the change stream delivers it.
func (c *Core) SendMessage(ctx context.Context, phone, body, orderNumber string) error {
	if c.sender == nil {
		return ErrNoSender
	}
	to := conversation.CanonicalPhone(phone)
	if to == "" {
		return ErrInvalidPhone
	}

	log := c.log.With(
		slog.String("phone", to),
		slog.String("order_number", orderNumber),
	)
	if err := c.sender.SendText(ctx, to, body, orderNumber); err != nil {
		metrics.Sends.WithLabelValues("text", "error").Inc()
		log.Error("send text", sl.Err(err))
		return fmt.Errorf("send text to %s: %w", to, err)
	}
	metrics.Sends.WithLabelValues("text", "ok").Inc()
	log.Info("text sent")
	return nil
}

// SendTemplate forwards a template message to the gateway.
func (c *Core) SendTemplate(ctx context.Context, phone, name string, variables map[string]string, orderNumber string) error {
	if c.sender == nil {
		return ErrNoSender
	}
	to := conversation.CanonicalPhone(phone)
	if to == "" {
		return ErrInvalidPhone
	}
	if variables == nil {
		variables = map[string]string{}
	}

	log := c.log.With(
		slog.String("phone", to),
		slog.String("template", name),
		slog.String("order_number", orderNumber),
	)
	if err := c.sender.SendTemplate(ctx, to, name, variables, orderNumber); err != nil {
		metrics.Sends.WithLabelValues("template", "error").Inc()
		log.Error("send template", sl.Err(err))
		return fmt.Errorf("send template %s to %s: %w", name, to, err)
	}
	metrics.Sends.WithLabelValues("template", "ok").Inc()
	log.Info("template sent")
	return nil
}

// RenderTemplate resolves a template for preview.
func (c *Core) RenderTemplate(name string, variables map[string]string) string {
	if c.render == nil {
		return "Template: " + name
	}
	return c.render(name, variables)
}
