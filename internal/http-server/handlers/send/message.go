package send

import (
	"WaConsole/internal/lib/api/response"
	"WaConsole/internal/lib/sl"
	"WaConsole/internal/lib/validate"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
)

const retryMessage = "Message was not sent, please try again"

type MessageRequest struct {
	Phone       string `json:"phone" validate:"required"`
	Message     string `json:"message" validate:"required"`
	OrderNumber string `json:"order_number,omitempty"`
}

func (m *MessageRequest) Bind(_ *http.Request) error {
	return validate.Struct(m)
}

// Message sends an operator's text reply. The reply reaches the thread through the
// change stream, not from this response.
func Message(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.send")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req MessageRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Debug("invalid send-message request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request: "+err.Error()))
			return
		}

		if err := handler.SendMessage(r.Context(), req.Phone, req.Message, req.OrderNumber); err != nil {
			logger.Error("send message", sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Error(retryMessage))
			return
		}

		render.JSON(w, r, response.Ok("Message sent"))
	}
}
