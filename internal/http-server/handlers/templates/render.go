package templates

import (
	"WaConsole/internal/lib/api/response"
	"WaConsole/internal/lib/sl"
	"WaConsole/internal/lib/validate"
	catalog "WaConsole/internal/service/templates"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
)

type RenderRequest struct {
	Name      string            `json:"name" validate:"required"`
	Variables map[string]string `json:"variables"`
}

func (rr *RenderRequest) Bind(_ *http.Request) error {
	return validate.Struct(rr)
}

type RenderResponse struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// Render previews a template with the given variables.
func Render(log *slog.Logger, handler Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RenderRequest
		if err := render.Bind(r, &req); err != nil {
			log.With(sl.Module("http.handlers.templates")).Debug("invalid render request", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("Invalid request: "+err.Error()))
			return
		}
		render.JSON(w, r, response.Ok(RenderResponse{
			Name: req.Name,
			Text: handler.RenderTemplate(req.Name, req.Variables),
		}))
	}
}

// List returns the template catalog.
func List(_ *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := catalog.Names()
		list := make([]catalog.Template, 0, len(names))
		for _, name := range names {
			if t, ok := catalog.Lookup(name); ok {
				list = append(list, t)
			}
		}
		render.JSON(w, r, response.Ok(list))
	}
}
