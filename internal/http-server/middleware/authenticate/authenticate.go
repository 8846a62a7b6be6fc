package authenticate

import (
	"WaConsole/internal/lib/api/cont"
	"WaConsole/internal/lib/api/response"
	"WaConsole/internal/lib/sl"
	"crypto/subtle"
	"fmt"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"log/slog"
	"net/http"
	"time"
)

// New checks HTTP basic credentials against user and password and logs every
// request. An empty user disables the check.
func New(log *slog.Logger, user, password string) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.authenticate")
	if user == "" {
		log.With(mod).Warn("authenticate middleware disabled: no user configured")
	} else {
		log.With(mod).Info("authenticate middleware initialized")
	}

	return func(next http.Handler) http.Handler {

		fn := func(w http.ResponseWriter, r *http.Request) {
			id := middleware.GetReqID(r.Context())
			remote := r.RemoteAddr
			// if the request is coming from a proxy, use the X-Forwarded-For header
			xRemote := r.Header.Get("X-Forwarded-For")
			if xRemote != "" {
				remote = xRemote
			}
			logger := log.With(
				mod,
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", remote),
				slog.String("request_id", id),
			)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			t1 := time.Now()
			loggerPtr := &logger
			defer func() {
				(*loggerPtr).With(
					slog.Int("status", ww.Status()),
					slog.Int("size", ww.BytesWritten()),
					slog.Float64("duration", time.Since(t1).Seconds()),
				).Info("incoming request")
			}()

			username := "operator"
			if user != "" {
				u, p, ok := r.BasicAuth()
				if !ok {
					*loggerPtr = (*loggerPtr).With(sl.Err(fmt.Errorf("basic credentials not found")))
					authFailed(ww, r, "Authorization header not found")
					return
				}
				*loggerPtr = (*loggerPtr).With(slog.Bool("credentials_checked", true))
				if !equal(u, user) || !equal(p, password) {
					*loggerPtr = (*loggerPtr).With(sl.Err(fmt.Errorf("invalid credentials for %q", u)))
					authFailed(ww, r, "Unauthorized: invalid credentials")
					return
				}
				username = u
			}
			*loggerPtr = (*loggerPtr).With(
				slog.String("user", username),
			)
			ctx := cont.PutUser(r.Context(), username)

			ww.Header().Set("X-Request-ID", id)
			ww.Header().Set("X-User", username)
			next.ServeHTTP(ww, r.WithContext(ctx))
		}

		return http.HandlerFunc(fn)
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func authFailed(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="waconsole"`)
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, response.Error(message))
}
