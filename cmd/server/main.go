package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/ishflow/ishflow-backend/internal/gateway"
	"github.com/ishflow/ishflow-backend/internal/gateway/middleware"
	"github.com/ishflow/ishflow-backend/internal/modules/dispatch"
	"github.com/ishflow/ishflow-backend/internal/modules/notification"
	"github.com/ishflow/ishflow-backend/internal/shared/infrastructure/config"
	"github.com/ishflow/ishflow-backend/internal/shared/infrastructure/database"
	"github.com/ishflow/ishflow-backend/pkg/migration"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	cfg := config.Load()

	log.Println("Connecting to DB...")
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer db.Close()
	log.Println("Database connected successfully")

	migrator := migration.NewRunner(&migration.Config{
		MigrationsPath: "migrations",
		DatabaseURL:    cfg.Database.URL(),
	})
	if err := migrator.Up(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	notificationModule := notification.NewModule(db, rdb)
	dispatchModule := dispatch.NewModule(cfg.Telegram)

	// Relay notification inserts from redis into the local websocket hub
	// for as long as the process lives.
	bridgeCtx, stopBridge := context.WithCancel(context.Background())
	defer stopBridge()
	go notificationModule.Bridge().Run(bridgeCtx)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	mux := gateway.SetupRoutes(gateway.RouterConfig{
		AuthMiddleware:      authMiddleware,
		NotificationHandler: notificationModule.HTTPHandler(),
		DispatchHandler:     dispatchModule.HTTPHandler(),
	})

	var handler http.Handler = mux
	handler = middleware.PrometheusMiddleware(handler)
	handler = middleware.CORSMiddleware(handler, cfg.Server.AllowedOrigins)

	server := gateway.NewServer(cfg.Server.Port, handler)
	if err := server.Start(); err != nil {
		notificationModule.Hub().Stop()
		log.Fatalf("Server stopped: %v", err)
	}
	notificationModule.Hub().Stop()
}
