package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"visitorpass/internal/delivery/http/controllers"
	"visitorpass/internal/delivery/http/middleware"
	"visitorpass/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Controllers groups every controller the router mounts.
type Controllers struct {
	Auth         *controllers.AuthController
	User         *controllers.UserController
	Visitor      *controllers.VisitorController
	Pass         *controllers.PassController
	Guard        *controllers.GuardController
	Notification *controllers.NotificationController
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// NewRouter initializes the HTTP router with all application routes
func NewRouter(c Controllers, verifier domain.TokenVerifier, gatherer prometheus.Gatherer, checks map[string]HealthCheck, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(verifier, logger)
	guardOnly := func(h http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.RequireRole(domain.RoleGuard)(h))
	}

	// Auth
	mux.HandleFunc("POST /api/auth/register", c.Auth.SignUp)
	mux.HandleFunc("POST /api/auth/login", c.Auth.Login)
	mux.HandleFunc("POST /api/auth/refresh-token", c.Auth.Refresh)
	mux.HandleFunc("POST /api/auth/logout", c.Auth.Logout)

	// Users
	mux.HandleFunc("GET /api/users/profile", auth(c.User.GetProfile))
	mux.HandleFunc("GET /api/users/recent-visitors", auth(c.User.RecentVisitors))

	// Visitors
	mux.HandleFunc("POST /api/visitors", auth(c.Visitor.Create))
	mux.HandleFunc("GET /api/visitors", auth(c.Visitor.List))
	mux.HandleFunc("GET /api/visitors/{visitorID}", auth(c.Visitor.Get))
	mux.HandleFunc("PATCH /api/visitors/{visitorID}/status", auth(c.Visitor.UpdateStatus))
	mux.HandleFunc("PUT /api/visitors/{visitorID}/approve", auth(c.Visitor.Approve))
	mux.HandleFunc("PUT /api/visitors/{visitorID}/reject", auth(c.Visitor.Reject))
	mux.HandleFunc("PUT /api/visitors/{visitorID}/expire", auth(c.Visitor.Expire))
	mux.HandleFunc("DELETE /api/visitors/{visitorID}", auth(c.Visitor.Delete))
	mux.HandleFunc("POST /api/visitors/{visitorID}/passes", auth(c.Visitor.IssuePass))

	// Passes
	mux.HandleFunc("GET /api/passes", auth(c.Pass.List))
	mux.HandleFunc("GET /api/passes/{passID}", auth(c.Pass.Get))
	mux.HandleFunc("DELETE /api/passes/{passID}", auth(c.Pass.Delete))
	mux.HandleFunc("GET /api/passes/qr/{token}", auth(c.Pass.Verify))

	// Guard desk
	mux.HandleFunc("POST /api/guard/visitors", guardOnly(c.Guard.CreateVisitor))
	mux.HandleFunc("GET /api/guard/visitors/pending", guardOnly(c.Guard.PendingCreatedByMe))
	mux.HandleFunc("GET /api/guard/visitors/today/pending", guardOnly(c.Guard.TodaysPending))
	mux.HandleFunc("GET /api/guard/visitors/today/approved", guardOnly(c.Guard.TodaysApproved))
	mux.HandleFunc("GET /api/guard/hosts/{hostID}/visitors", guardOnly(c.Guard.ApprovedByHost))
	mux.HandleFunc("GET /api/guard/stats/today", guardOnly(c.Guard.Stats))
	mux.HandleFunc("POST /api/guard/scan/{passID}", guardOnly(c.Guard.Scan))
	mux.HandleFunc("GET /api/guard/scan/history", guardOnly(c.Guard.ScanHistory))

	// Notifications
	mux.HandleFunc("GET /api/notifications", auth(c.Notification.List))
	mux.HandleFunc("PUT /api/notifications/{notificationID}/read", auth(c.Notification.MarkRead))

	// Ops
	mux.HandleFunc("GET /healthz", healthz(checks))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// healthz answers 200 when every check passes and 503 otherwise, listing each check's result.
func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{"status": "ok"}
		status := http.StatusOK
		for name, check := range checks {
			ok := check(r.Context())
			body[name] = ok
			if !ok {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
