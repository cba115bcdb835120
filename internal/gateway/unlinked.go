package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskpilot/chatbot/internal/directory"
	"github.com/taskpilot/chatbot/internal/models"
	"go.uber.org/zap"
)

// handleUnlinked serves chats with no bound account: linking-token
// submissions, onboarding commands, and a nudge for everything else.
func (g *Gateway) handleUnlinked(ctx context.Context, msg *models.InboundMessage, sync models.SyncResult, start time.Time) {
	text := msg.Text

	switch {
	case linkTokenPattern.MatchString(text):
		g.handleLinkToken(ctx, msg, start)

	case text == "/start" || text == "/help" || strings.HasPrefix(text, "/start "):
		reply := fmt.Sprintf(`Hi %s! I'm your automation assistant.

I can run automations for you — check the weather, summarize your calendar, send emails and more — right from this chat.

To get started:
1. Create an account at %s
2. Generate a linking code in your account settings
3. Paste the code here

(interaction #%d)`, msg.Actor.FirstName, g.signupURL, sync.InteractionCount)
		g.emitter.Send(msg.ChatID, reply)
		g.record(models.UnlinkedActor, msg.ChatID, "onboarding", text,
			map[string]any{"interaction_count": sync.InteractionCount}, true, start)

	default:
		g.emitter.Send(msg.ChatID, pleaseLinkReply)
		g.record(models.UnlinkedActor, msg.ChatID, "unlinked_message", "", nil, true, start)
	}
}

// handleLinkToken submits a token that matched the 64-hex shape. The
// directory owns expiry and single-use enforcement; no further validation
// happens here.
func (g *Gateway) handleLinkToken(ctx context.Context, msg *models.InboundMessage, start time.Time) {
	err := g.dir.LinkAccount(ctx, msg.Text, msg.ChatID, msg.Actor)

	switch {
	case err == nil:
		g.emitter.Send(msg.ChatID, linkWelcomeReply)
		g.record(models.UnlinkedActor, msg.ChatID, "link_account", "success",
			map[string]any{"actor": msg.Actor.DisplayName()}, true, start)

	case errors.Is(err, directory.ErrTokenExpired):
		g.emitter.Send(msg.ChatID, linkExpiredReply)
		g.record(models.UnlinkedActor, msg.ChatID, "link_account", "expired", nil, false, start)

	case errors.Is(err, directory.ErrTokenInvalid):
		g.emitter.Send(msg.ChatID, linkInvalidReply)
		g.record(models.UnlinkedActor, msg.ChatID, "link_account", "invalid", nil, false, start)

	default:
		g.logger.Error("Failed to link account",
			zap.Error(err),
			zap.Int64("chat_id", msg.ChatID))
		g.emitter.Send(msg.ChatID, linkErrorReply)
		g.record(models.UnlinkedActor, msg.ChatID, "link_account", "error", nil, false, start)
	}
}
