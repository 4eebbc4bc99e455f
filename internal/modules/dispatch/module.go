package dispatch

import (
	"github.com/ishflow/ishflow-backend/internal/modules/dispatch/infrastructure/telegram"
	dispatch_http "github.com/ishflow/ishflow-backend/internal/modules/dispatch/interfaces/http"
	"github.com/ishflow/ishflow-backend/internal/shared/infrastructure/config"
)

type Module struct {
	handler *dispatch_http.DispatchHandler
}

func NewModule(cfg config.TelegramConfig) *Module {
	client := telegram.NewClient(cfg.BotToken, cfg.APIBaseURL, nil)
	handler := dispatch_http.NewDispatchHandler(client, cfg.BotToken)

	return &Module{handler: handler}
}

func (m *Module) HTTPHandler() *dispatch_http.DispatchHandler {
	return m.handler
}
