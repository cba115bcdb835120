package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// WebhookHandler decodes one transport update per request and always
// answers 200: the chat platform retries non-2xx responses, and an
// application-level failure must not trigger redelivery.
func (g *Gateway) WebhookHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			g.logger.Warn("Failed to decode webhook update", zap.Error(err))
		} else {
			g.Handle(r.Context(), update)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	})
}

// Run consumes the long-polling update channel, handling each update on its
// own goroutine so one slow user never blocks the rest.
func (g *Gateway) Run(updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		go g.Handle(context.Background(), update)
	}
}
