package notification

import (
	"github.com/jmoiron/sqlx"
	redisclient "github.com/redis/go-redis/v9"

	"github.com/ishflow/ishflow-backend/internal/modules/notification/application"
	"github.com/ishflow/ishflow-backend/internal/modules/notification/infrastructure/persistence/postgres"
	notifredis "github.com/ishflow/ishflow-backend/internal/modules/notification/infrastructure/redis"
	"github.com/ishflow/ishflow-backend/internal/modules/notification/infrastructure/websocket"
	notification_http "github.com/ishflow/ishflow-backend/internal/modules/notification/interfaces/http"
)

type Module struct {
	service *application.NotificationService
	handler *notification_http.NotificationHandler
	hub     *websocket.Hub
	bridge  *notifredis.HubBridge
}

func NewModule(db *sqlx.DB, rdb *redisclient.Client) *Module {
	repo := postgres.NewPgNotificationRepository(db)
	hub := websocket.NewHub()
	go hub.Run()

	publisher := notifredis.NewPublisher(rdb)
	bridge := notifredis.NewHubBridge(rdb, hub)

	service := application.NewNotificationService(repo, publisher)
	handler := notification_http.NewNotificationHandler(service, hub)

	return &Module{
		service: service,
		handler: handler,
		hub:     hub,
		bridge:  bridge,
	}
}

func (m *Module) HTTPHandler() *notification_http.NotificationHandler {
	return m.handler
}

func (m *Module) Service() *application.NotificationService {
	return m.service
}

func (m *Module) Hub() *websocket.Hub {
	return m.hub
}

// Bridge returns the redis-to-hub relay; the caller owns its goroutine.
func (m *Module) Bridge() *notifredis.HubBridge {
	return m.bridge
}
