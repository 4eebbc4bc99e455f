package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ishflow/ishflow-backend/internal/modules/dispatch/application"
	"github.com/ishflow/ishflow-backend/internal/modules/dispatch/domain"
)

// Sender is the outbound messaging call; satisfied by the telegram client.
type Sender interface {
	SendMessage(ctx context.Context, chatID, text string) (json.RawMessage, error)
}

// DispatchHandler relays a typed notification request to the messaging
// bot. Stateless; every failure, expected or not, becomes a structured
// JSON response.
type DispatchHandler struct {
	sender   Sender
	botToken string
	validate *validator.Validate
}

func NewDispatchHandler(sender Sender, botToken string) *DispatchHandler {
	return &DispatchHandler{
		sender:   sender,
		botToken: botToken,
		validate: validator.New(),
	}
}

// Dispatch handles POST and the OPTIONS preflight. Control flow:
// preflight short-circuits before configuration is inspected; a missing
// bot token is a 500 (deployment fault); a missing or unknown field is a
// 400; otherwise render the template and forward it, relaying whatever
// the bot API answered inside a success envelope.
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Dispatch: panic: %v", rec)
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("%v", rec))
		}
	}()

	if h.botToken == "" {
		writeError(w, http.StatusInternalServerError, "bot token is not configured")
		return
	}

	var req domain.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var fields validator.ValidationErrors
		if errors.As(err, &fields) && len(fields) > 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("missing required field: %s", fields[0].Field()))
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	text, err := application.Render(req.Kind, req.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.sender.SendMessage(r.Context(), req.ChatID, text)
	if err != nil {
		log.Printf("Dispatch: send failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"result":  result,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
