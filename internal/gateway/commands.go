package gateway

import (
	"fmt"
	"strings"
	"time"

	"github.com/taskpilot/chatbot/internal/emitter"
	"github.com/taskpilot/chatbot/internal/models"
)

// handleCommand serves slash commands for linked users. Commands never go
// through the classifier.
func (g *Gateway) handleCommand(msg *models.InboundMessage, user models.UserContext, start time.Time) {
	command := strings.Fields(msg.Text)[0]
	command = strings.TrimPrefix(command, "/")
	// Group chats append the bot's username to commands.
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	command = strings.ToLower(command)

	switch command {
	case "start", "help":
		g.emitter.Send(msg.ChatID, g.helpText(user))
	case "usage":
		g.emitter.Send(msg.ChatID, usageText(user))
	case "workflows":
		g.emitter.SendMarkdown(msg.ChatID, workflowsText(user))
	default:
		g.emitter.Send(msg.ChatID, "Unknown command. Use /help to see what I can do.")
	}

	g.record(user.AccountID, msg.ChatID, "command", command, nil, true, start)
}

func (g *Gateway) helpText(user models.UserContext) string {
	text := `Just tell me what you need in plain language and I'll run the right automation — for example "what's the weather in Tokyo" or "summarize my calendar".

Commands:
/help - Show this message
/workflows - List the automations on your plan
/usage - Check your quota`
	if user.TrialActive {
		text += "\n\nYour trial is active, so everything on your plan is unlocked — enjoy!"
	}
	return text
}

func usageText(user models.UserContext) string {
	text := fmt.Sprintf("You've used %d of %d automation credits on the %s plan.",
		user.QuotaUsed, user.QuotaLimit, user.Tier)
	if user.TrialActive {
		text += " Your trial is currently active."
	}
	return text
}

func workflowsText(user models.UserContext) string {
	if len(user.Permissions) == 0 {
		return emitter.EscapeMarkdown("Your plan doesn't include any automations yet. Upgrade to unlock them.")
	}

	response := "*Automations on your plan:*\n"
	for _, name := range user.Permissions {
		response += emitter.EscapeMarkdown("- "+name) + "\n"
	}
	return response
}
