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

type TemplateRequest struct {
	Phone        string            `json:"phone" validate:"required"`
	TemplateName string            `json:"template_name" validate:"required"`
	Variables    map[string]string `json:"variables"`
	OrderNumber  string            `json:"order_number,omitempty"`
}

func (t *TemplateRequest) Bind(_ *http.Request) error {
	return validate.Struct(t)
}

func Template(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mod := sl.Module("http.handlers.send")

		logger := log.With(
			mod,
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req TemplateRequest
		if err := render.Bind(r, &req); err != nil {
			logger.Debug("invalid send-template request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request: "+err.Error()))
			return
		}

		err := handler.SendTemplate(r.Context(), req.Phone, req.TemplateName, req.Variables, req.OrderNumber)
		if err != nil {
			logger.With(slog.String("template", req.TemplateName)).Error("send template", sl.Err(err))
			render.Status(r, http.StatusBadGateway)
			render.JSON(w, r, response.Error(retryMessage))
			return
		}

		render.JSON(w, r, response.Ok("Template sent"))
	}
}
