package gateway

import (
	"net/http"

	"github.com/ishflow/ishflow-backend/internal/gateway/middleware"
	dispatch_http "github.com/ishflow/ishflow-backend/internal/modules/dispatch/interfaces/http"
	notification_http "github.com/ishflow/ishflow-backend/internal/modules/notification/interfaces/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds all the handlers and middleware needed for routing
type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleware
	NotificationHandler *notification_http.NotificationHandler
	DispatchHandler     *dispatch_http.DispatchHandler
}

// SetupRoutes creates and configures all application routes
func SetupRoutes(config RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	// Health Check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus Metrics Endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Notification Feed Routes
	mux.Handle("GET /notifications", config.AuthMiddleware.RequireAuth(http.HandlerFunc(config.NotificationHandler.ListNotifications)))
	mux.Handle("POST /notifications", config.AuthMiddleware.RequireAuth(http.HandlerFunc(config.NotificationHandler.Create)))
	mux.Handle("PATCH /notifications/{id}/read", config.AuthMiddleware.RequireAuth(http.HandlerFunc(config.NotificationHandler.MarkAsRead)))
	mux.Handle("PATCH /notifications/read-all", config.AuthMiddleware.RequireAuth(http.HandlerFunc(config.NotificationHandler.MarkAllAsRead)))
	mux.Handle("GET /notifications/unread-count", config.AuthMiddleware.RequireAuth(http.HandlerFunc(config.NotificationHandler.UnreadCount)))
	mux.Handle("GET /ws", config.AuthMiddleware.RequireAuth(http.HandlerFunc(config.NotificationHandler.Subscribe)))

	// Outbound Dispatch Routes (CORS handled inside the handler, the
	// endpoint is called cross-origin by the booking frontend)
	mux.HandleFunc("POST /api/notify", config.DispatchHandler.Dispatch)
	mux.HandleFunc("OPTIONS /api/notify", config.DispatchHandler.Dispatch)

	return mux
}
