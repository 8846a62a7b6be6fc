package session

import (
	"WaConsole/impl/core"
	"WaConsole/internal/lib/api/response"
	"WaConsole/internal/lib/sl"
	"errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
)

// Thread returns the conversation currently open on a websocket session.
func Thread(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.session")

		id := chi.URLParam(r, "id")
		logger := log.With(
			mod,
			slog.String("session", id),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		view, err := handler.Thread(r.Context(), id)
		if errors.Is(err, core.ErrNoConversation) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("No conversation open for this session"))
			return
		}
		if err != nil {
			logger.Error("get thread", sl.Err(err))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("Thread not available"))
			return
		}

		render.JSON(w, r, response.Ok(view))
	}
}
