package api

import (
	"WaConsole/entity"
	"WaConsole/impl/core"
	"WaConsole/internal/config"
	"WaConsole/internal/conversation"
	"WaConsole/internal/lib/logger"
	"context"
	"encoding/json"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeHandler struct {
	filter  conversation.InboxFilter
	sendErr error
	phone   string
	tpl     string
}

func (f *fakeHandler) Inbox(_ context.Context, filter conversation.InboxFilter) ([]entity.InboxEntry, error) {
	f.filter = filter
	return []entity.InboxEntry{{Key: entity.ConversationKey{Order: "15"}}}, nil
}

func (f *fakeHandler) Thread(_ context.Context, clientID string) (core.ThreadView, error) {
	if clientID != "known" {
		return core.ThreadView{}, core.ErrNoConversation
	}
	return core.ThreadView{Key: entity.ConversationKey{Order: "15"}}, nil
}

func (f *fakeHandler) SendMessage(_ context.Context, phone, _, _ string) error {
	f.phone = phone
	return f.sendErr
}

func (f *fakeHandler) SendTemplate(_ context.Context, phone, name string, _ map[string]string, _ string) error {
	f.phone = phone
	f.tpl = name
	return f.sendErr
}

func (f *fakeHandler) RenderTemplate(name string, _ map[string]string) string {
	return "rendered " + name
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
}

func serve(t *testing.T, router http.Handler, method, path, body string, auth bool) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.SetBasicAuth("operator", "pw")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func newRouter(handler Handler) http.Handler {
	conf := &config.Config{}
	conf.Listen.User = "operator"
	conf.Listen.Password = "pw"
	return NewRouter(conf, logger.Discard(), handler, nil)
}

func TestAuthRequired(t *testing.T) {
	router := newRouter(&fakeHandler{})
	rec, env := serve(t, router, http.MethodGet, "/api/v1/inbox", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
}

func TestInbox(t *testing.T) {
	handler := &fakeHandler{}
	rec, env := serve(t, newRouter(handler), http.MethodGet, "/api/v1/inbox?phone=%2B2010&order=15", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, conversation.InboxFilter{Phone: "+2010", Order: "15"}, handler.filter)

	var entries []entity.InboxEntry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "15", entries[0].Key.Order)
}

func TestSessionThread(t *testing.T) {
	router := newRouter(&fakeHandler{})
	rec, _ := serve(t, router, http.MethodGet, "/api/v1/sessions/known", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := serve(t, router, http.MethodGet, "/api/v1/sessions/unknown", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}

func TestSendMessageValidation(t *testing.T) {
	handler := &fakeHandler{}
	rec, env := serve(t, newRouter(handler), http.MethodPost, "/api/v1/send-message", `{"phone":"+2010"}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Empty(t, handler.phone)
}

func TestSendMessage(t *testing.T) {
	handler := &fakeHandler{}
	rec, env := serve(t, newRouter(handler), http.MethodPost, "/api/v1/send-message", `{"phone":"+2010","message":"hi","order_number":"15"}`, true)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "+2010", handler.phone)
}

func TestSendFailureAsksForRetry(t *testing.T) {
	handler := &fakeHandler{sendErr: errors.New("gateway down")}
	rec, env := serve(t, newRouter(handler), http.MethodPost, "/api/v1/send-template", `{"phone":"2010","template_name":"order_confirmation"}`, true)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, env.Message, "try again")
	assert.Equal(t, "order_confirmation", handler.tpl)
}

func TestTemplates(t *testing.T) {
	router := newRouter(&fakeHandler{})
	rec, env := serve(t, router, http.MethodPost, "/api/v1/templates/render", `{"name":"order_shipping_en"}`, true)
	require.Equal(t, http.StatusOK, rec.Code)
	var rendered map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &rendered))
	assert.Equal(t, "rendered order_shipping_en", rendered["text"])

	rec, env = serve(t, router, http.MethodGet, "/api/v1/templates/", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.NotEmpty(t, list)
}

func TestNotFound(t *testing.T) {
	rec, env := serve(t, newRouter(&fakeHandler{}), http.MethodGet, "/nowhere", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, env.Success)
}
