package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"institution-chat/internal/auth"
	"institution-chat/internal/chat"
	"institution-chat/internal/metrics"
	"institution-chat/internal/realtime"
)

const defaultReadTimeout = 5 * time.Second

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type API struct {
	Chat    *chat.Service
	Hub     *realtime.Hub
	Health  Pinger
	Log     *zap.Logger
	Routers *chi.Mux

	readTimeout time.Duration
	upgrader    websocket.Upgrader
}

func NewAPI(svc *chat.Service, hub *realtime.Hub, health Pinger, readTimeout time.Duration, log *zap.Logger) *API {
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &API{
		Chat:        svc,
		Hub:         hub,
		Health:      health,
		Log:         log,
		Routers:     chi.NewRouter(),
		readTimeout: readTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (a *API) Router() http.Handler {
	a.Routers.Use(middleware.RequestID)
	a.Routers.Use(middleware.RealIP)
	a.Routers.Use(a.requestLogger)
	a.Routers.Use(middleware.Recoverer)

	// Public
	a.Routers.Get("/healthz", a.Healthz)
	a.Routers.Handle("/metrics", metrics.Handler())
	a.Routers.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Secured
	a.Routers.Group(func(r chi.Router) {
		r.Use(auth.JWTAuthMiddleware)

		r.Post("/conversations", a.CreateConversation)
		r.Get("/conversations", a.ListConversations)
		r.Post("/conversations/replies", a.PostReply)
		r.Get("/conversations/{id}/replies", a.ListReplies)
		r.Post("/users/search", a.SearchUsers)
		r.Get("/ws", a.ServeWS)
	})

	return a.Routers
}

// readContext bounds a read request so a slow store surfaces as 504.
func (a *API) readContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), a.readTimeout)
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		}
		if status >= http.StatusInternalServerError {
			a.Log.Error("request failed", fields...)
			return
		}
		a.Log.Debug("request", fields...)
	})
}
