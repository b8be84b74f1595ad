package http

import (
	"log/slog"
	"net/http"
)

type RouterConfig struct {
	Auth          *AuthHandler
	Events        *EventHandler
	Notifications *NotificationHandler
	Health        *HealthHandler
	Authenticator Authenticator
	Metrics       http.Handler
	Logger        *slog.Logger
	Middleware    []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	protect := RequireAuth(cfg.Authenticator, cfg.Logger)
	private := func(h http.HandlerFunc) http.Handler {
		return protect(h)
	}
	fallback := newResponder(cfg.Logger)

	if cfg.Auth != nil {
		mux.HandleFunc("POST /api/auth/verify", cfg.Auth.Verify)
		mux.Handle("GET /api/auth/profile", private(cfg.Auth.Profile))
	}

	if cfg.Events != nil {
		mux.HandleFunc("GET /api/events", cfg.Events.List)
		mux.Handle("POST /api/events", private(cfg.Events.Create))
		mux.Handle("GET /api/events/my/organized", private(cfg.Events.MyOrganized))
		mux.Handle("GET /api/events/my/participating", private(cfg.Events.MyParticipating))
		mux.HandleFunc("GET /api/events/{id}", cfg.Events.Get)
		mux.HandleFunc("GET /api/events/{id}/calendar.ics", cfg.Events.Calendar)
		mux.Handle("PUT /api/events/{id}", private(cfg.Events.Update))
		mux.Handle("DELETE /api/events/{id}", private(cfg.Events.Delete))
		mux.Handle("POST /api/events/{id}/attend", private(cfg.Events.Attend))
		mux.Handle("DELETE /api/events/{id}/attend", private(cfg.Events.CancelAttendance))
	}

	if cfg.Notifications != nil {
		mux.Handle("GET /api/notifications", private(cfg.Notifications.List))
		mux.Handle("POST /api/notifications", private(cfg.Notifications.Create))
		mux.Handle("DELETE /api/notifications", private(cfg.Notifications.DeleteAll))
		mux.Handle("PUT /api/notifications/read-all", private(cfg.Notifications.MarkAllRead))
		mux.Handle("PUT /api/notifications/{id}/read", private(cfg.Notifications.MarkRead))
		mux.Handle("DELETE /api/notifications/{id}", private(cfg.Notifications.Delete))
	}

	if cfg.Health != nil {
		mux.HandleFunc("GET /healthz", cfg.Health.Check)
	}
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fallback.writeError(r.Context(), w, http.StatusNotFound, msgRouteNotFound)
	})

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}
