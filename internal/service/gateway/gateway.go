package gateway

import (
	"WaConsole/internal/config"
	"WaConsole/internal/lib/sl"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	sendTextPath     = "/api/sendTextMessage"
	sendTemplatePath = "/api/send-template"
	maxErrorBody     = 4096
)

// Service posts outbound messages to the remote WhatsApp gateway.
type Service struct {
	apiKey  string
	baseUrl string
	client  *http.Client
	log     *slog.Logger
}

func NewGatewayService(conf *config.Config, logger *slog.Logger) *Service {
	timeout := conf.Gateway.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		apiKey:  conf.Gateway.ApiKey,
		baseUrl: strings.TrimRight(conf.Gateway.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     logger.With(sl.Module("gateway service")),
	}
}

type sendTextRequest struct {
	Phone       string `json:"phone"`
	Message     string `json:"message"`
	OrderNumber string `json:"order_number,omitempty"`
}

type sendTemplateRequest struct {
	Phone        string            `json:"phone"`
	TemplateName string            `json:"templateName"`
	Variables    map[string]string `json:"variables"`
	OrderNumber  string            `json:"order_number,omitempty"`
}

func (s *Service) SendText(ctx context.Context, phone, body, orderNumber string) error {
	return s.post(ctx, sendTextPath, sendTextRequest{
		Phone:       phone,
		Message:     body,
		OrderNumber: orderNumber,
	})
}

func (s *Service) SendTemplate(ctx context.Context, phone, name string, variables map[string]string, orderNumber string) error {
	return s.post(ctx, sendTemplatePath, sendTemplateRequest{
		Phone:        phone,
		TemplateName: name,
		Variables:    variables,
		OrderNumber:  orderNumber,
	})
}

func (s *Service) post(ctx context.Context, path string, body interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseUrl+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.With(
			slog.String("path", path),
			sl.Err(err),
		).Error("send HTTP")
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		s.log.With(
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("response", string(text)),
		).Error("non-2xx response")
		return fmt.Errorf("gateway responded with %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}

	s.log.With(
		slog.String("path", path),
	).Debug("gateway accepted message")
	return nil
}
