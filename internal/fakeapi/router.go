// Package fakeapi is an in-memory stand-in for the Memoria backend, used for
// local development and integration tests.
package fakeapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// NewRouter wires HTTP routes to the store. A nil replier echoes.
func NewRouter(store *Store, replier Replier, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if replier == nil {
		replier = EchoReplier{}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	users := &authHandler{store: store}
	avatars := &avatarHandler{store: store, logger: logger}
	conversations := &conversationHandler{store: store, replier: replier, logger: logger}

	r.Route("/api", func(api chi.Router) {
		users.RegisterRoutes(api)

		api.Group(func(protected chi.Router) {
			protected.Use(RequireBearer(store))
			avatars.RegisterRoutes(protected)
			conversations.RegisterRoutes(protected)
		})
	})

	return r
}

// requestLogger logs one line per request with the client's X-Request-ID.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.Duration("elapsed", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
