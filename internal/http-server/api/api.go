package api

import (
	"WaConsole/internal/config"
	"WaConsole/internal/http-server/handlers/errors"
	"WaConsole/internal/http-server/handlers/inbox"
	"WaConsole/internal/http-server/handlers/send"
	"WaConsole/internal/http-server/handlers/session"
	"WaConsole/internal/http-server/handlers/templates"
	"WaConsole/internal/http-server/middleware/authenticate"
	"WaConsole/internal/http-server/middleware/timeout"
	"WaConsole/internal/lib/api/cont"
	"WaConsole/internal/lib/sl"
	"WaConsole/internal/metrics"
	"WaConsole/internal/ws"
	"context"
	"fmt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"log/slog"
	"net"
	"net/http"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	inbox.Core
	session.Core
	send.Core
	templates.Core
}

// NewRouter builds the console routes. hub may be nil when websockets are not served.
func NewRouter(conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(metrics.Middleware)

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(authenticate.New(log, conf.Listen.User, conf.Listen.Password))

		if hub != nil {
			r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
				ws.ServeWs(hub, cont.GetUser(req.Context()), w, req)
			})
		}

		r.Route("/api/v1", func(v1 chi.Router) {
			v1.Use(timeout.Timeout(20))
			v1.Use(render.SetContentType(render.ContentTypeJSON))

			v1.Get("/inbox", inbox.List(log, handler))
			v1.Get("/sessions/{id}", session.Thread(log, handler))
			v1.Post("/send-message", send.Message(log, handler))
			v1.Post("/send-template", send.Template(log, handler))
			v1.Route("/templates", func(t chi.Router) {
				t.Get("/", templates.List(log))
				t.Post("/render", templates.Render(log, handler))
			})
		})
	})

	return router
}

// New serves the console API until ctx is cancelled.
func New(ctx context.Context, conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:  NewRouter(conf, log, handler, hub),
		ErrorLog: httpLog,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.BindIP, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = server.httpServer.Shutdown(context.Background())
	}()

	server.log.Info("starting api server", slog.String("address", serverAddress))

	err = server.httpServer.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
