package inbox

import (
	"WaConsole/entity"
	"WaConsole/internal/conversation"
	"WaConsole/internal/lib/api/response"
	"WaConsole/internal/lib/sl"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
	"strings"
)

// List returns the inbox, optionally narrowed by phone and order substrings.
func List(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.inbox")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		filter := conversation.InboxFilter{
			Phone: strings.TrimSpace(r.URL.Query().Get("phone")),
			Order: strings.TrimSpace(r.URL.Query().Get("order")),
		}

		entries, err := handler.Inbox(r.Context(), filter)
		if err != nil {
			logger.Error("build inbox", sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Inbox not available"))
			return
		}
		if entries == nil {
			entries = []entity.InboxEntry{}
		}

		logger.With(
			slog.String("phone", filter.Phone),
			slog.String("order", filter.Order),
			slog.Int("size", len(entries)),
		).Debug("inbox listed")

		render.JSON(w, r, response.Ok(entries))
	}
}
