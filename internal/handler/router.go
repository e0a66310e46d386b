/*
Package handler provides the HTTP handlers and routing setup of the presence gateway.

This file defines the main Router, applying middleware for logging, CORS and IP-based
rate limiting before delegating requests to the API and WebSocket handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/limiter"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/logx"
	"github.com/Aequiternus/rtcs.io-storage/internal/pkg/resp"
)

const (
	GuestRate  = 0.2
	GuestBurst = 5
	ConnRate   = 1
	ConnBurst  = 10
)

// Limiters are the per-IP rate limiters used by the router. Stop them on shutdown.
type Limiters struct {
	Guest *limiter.IPRateLimiter
	Conn  *limiter.IPRateLimiter
}

// NewLimiters creates the default rate limiters.
func NewLimiters() *Limiters {
	return &Limiters{
		Guest: limiter.NewIPRateLimiter(rate.Limit(GuestRate), GuestBurst),
		Conn:  limiter.NewIPRateLimiter(rate.Limit(ConnRate), ConnBurst),
	}
}

// Stop ends the cleanup goroutines of all limiters.
func (l *Limiters) Stop() {
	l.Guest.Stop()
	l.Conn.Stop()
}

// Router sets up the main HTTP routing table (chi.Router) for the application.
// It configures CORS, applies global and per-route middleware, and mounts the API,
// metrics and WebSocket endpoints.
func Router(deps *AppDeps, limiters *Limiters) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	var wsUpgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status":  "ok",
			"service": "rtcs",
		}
		resp.RespondSuccess(w, r, data)
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.With(limiters.Guest.Middleware).Post("/guest", HandleGuest(deps))
		api.Post("/session", HandleSession(deps))

		api.Get("/rooms/{room}", HandleGetRoom(deps))
		api.Get("/users", HandleGetUsers(deps))
	})

	r.With(limiters.Conn.Middleware).Get("/ws", HandleWebSocket(deps, wsUpgrader))

	return r
}
