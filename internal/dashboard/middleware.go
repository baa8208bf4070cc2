package dashboard

import (
	"fmt"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// middleware wraps the router with panic recovery, request logging and CORS.
func (s *Server) middleware(r *mux.Router) http.Handler {
	r.Use(s.observe)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)

	var h http.Handler = cors(r)
	h = hlog.AccessHandler(accessLog)(h)
	h = hlog.RequestIDHandler("req_id", "X-Request-Id")(h)
	h = hlog.RemoteAddrHandler("remote")(h)
	h = hlog.NewHandler(log.Logger)(h)
	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(true),
	)(h)
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	level := zerolog.DebugLevel
	if status >= http.StatusInternalServerError {
		level = zerolog.WarnLevel
	}
	hlog.FromRequest(r).WithLevel(level).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("HTTP request")
}

// observe records request metrics labelled by route template.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.deps.Metrics.ObserveHTTP(route, r.Method, m.Code, m.Duration.Seconds())
	})
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	log.Error().Str("panic", fmt.Sprint(v...)).Msg("Recovered from panic in HTTP handler")
}
