package gateway

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/taskpilot/chatbot/internal/audit"
	"github.com/taskpilot/chatbot/internal/classifier"
	"github.com/taskpilot/chatbot/internal/directory"
	"github.com/taskpilot/chatbot/internal/dispatcher"
	"github.com/taskpilot/chatbot/internal/emitter"
	"github.com/taskpilot/chatbot/internal/guard"
	"github.com/taskpilot/chatbot/internal/models"
	"github.com/taskpilot/chatbot/internal/session"
	"go.uber.org/zap"
)

// Linking tokens are exactly 64 lowercase hex characters, matched against
// the whole trimmed message body.
var linkTokenPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Gateway drives one inbound update through sync, session resolution,
// classification, gating, dispatch and reply. Every dependency is injected;
// there is no package-level state.
type Gateway struct {
	dir        directory.Directory
	sessions   *session.Resolver
	classifier classifier.Classifier
	guard      *guard.Guard
	dispatcher dispatcher.Dispatcher
	emitter    emitter.Sender
	audit      *audit.Sink
	signupURL  string
	logger     *zap.Logger
}

func New(
	dir directory.Directory,
	sessions *session.Resolver,
	clf classifier.Classifier,
	grd *guard.Guard,
	disp dispatcher.Dispatcher,
	em emitter.Sender,
	sink *audit.Sink,
	signupURL string,
	logger *zap.Logger,
) *Gateway {
	return &Gateway{
		dir:        dir,
		sessions:   sessions,
		classifier: clf,
		guard:      grd,
		dispatcher: disp,
		emitter:    em,
		audit:      sink,
		signupURL:  signupURL,
		logger:     logger,
	}
}

// Handle processes one transport update and always returns: any internal
// failure is contained here so the transport call can be acknowledged. The
// chat sender must never retry an update because of our own errors.
func (g *Gateway) Handle(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Recovered from panic in update handler",
				zap.Any("panic", r),
				zap.Int("update_id", update.UpdateID))
			g.audit.Record(models.AuditRecord{
				ActorKey:   models.UnlinkedActor,
				ActionType: "pipeline_panic",
				Success:    false,
			})
		}
	}()

	msg := fromUpdate(update)
	if msg == nil {
		return
	}

	// Transports may redeliver updates; a dedup failure degrades to
	// at-least-once processing rather than dropping the message.
	if seen, err := g.dir.SeenUpdate(ctx, msg.UpdateID); err != nil {
		g.logger.Warn("Update dedup check failed",
			zap.Error(err),
			zap.Int("update_id", msg.UpdateID))
	} else if seen {
		g.logger.Debug("Skipping redelivered update", zap.Int("update_id", msg.UpdateID))
		return
	}

	start := time.Now()

	sync, err := g.dir.RecordInteraction(ctx, msg.ChatID, msg.Actor, msg.Text)
	if err != nil {
		g.logger.Error("Failed to record interaction",
			zap.Error(err),
			zap.Int64("external_id", msg.Actor.ExternalID))
		sync = models.SyncResult{Status: models.SyncUnlinked}
	}

	// Attachment-only updates are recorded but draw no reply.
	if msg.Text == "" {
		return
	}

	if sync.Status == models.SyncUnlinked {
		g.handleUnlinked(ctx, msg, sync, start)
		return
	}

	user, err := g.sessions.Resolve(ctx, msg.Actor.ExternalID)
	if err != nil {
		g.emitter.Send(msg.ChatID, accountErrorReply)
		g.record(sync.AccountID, msg.ChatID, "session_resolve", "", nil, false, start)
		return
	}

	if strings.HasPrefix(msg.Text, "/") {
		g.handleCommand(msg, user, start)
		return
	}

	g.handleIntent(ctx, msg, user, start)
}

func (g *Gateway) handleIntent(ctx context.Context, msg *models.InboundMessage, user models.UserContext, start time.Time) {
	decision := g.classifier.Classify(ctx, msg.Text, msg.Attachment, user)

	switch decision.Action {
	case models.ActionRoute:
		g.routeIntent(ctx, msg, user, decision, start)

	case models.ActionClarify:
		question := decision.ClarifyingQuestion
		if question == "" {
			question = classifier.FallbackMessage
		}
		g.emitter.Send(msg.ChatID, question)
		g.record(user.AccountID, msg.ChatID, "clarify", "", nil, true, start)

	case models.ActionLink:
		// The account is already linked; the classifier thinks the user is
		// asking about linking anyway.
		g.emitter.Send(msg.ChatID, alreadyLinkedReply)
		g.record(user.AccountID, msg.ChatID, "link_info", "", nil, true, start)

	case models.ActionDeny:
		reply := decision.UserMessage
		if reply == "" {
			reply = deniedReply
		}
		g.emitter.Send(msg.ChatID, reply)
		g.record(user.AccountID, msg.ChatID, "intent_denied", "", nil, true, start)

	default: // models.ActionDirect
		reply := decision.UserMessage
		if reply == "" {
			reply = classifier.FallbackMessage
		}
		g.emitter.Send(msg.ChatID, reply)
		g.record(user.AccountID, msg.ChatID, "direct_reply", "", nil, true, start)
	}
}

func (g *Gateway) routeIntent(ctx context.Context, msg *models.InboundMessage, user models.UserContext, decision models.IntentDecision, start time.Time) {
	verdict := g.guard.Evaluate(decision, user)
	if !verdict.Allowed {
		g.emitter.Send(msg.ChatID, verdict.UserMessage)
		g.record(user.AccountID, msg.ChatID, "guard_denied", string(verdict.Reason),
			map[string]any{"workflow": decision.WorkflowName}, false, start)
		return
	}

	g.emitter.Typing(msg.ChatID)

	result, err := g.dispatcher.Dispatch(ctx, decision.WorkflowName, decision.Parameters, user, msg.ChatID, msg.Text, decision.EstimatedCost)
	if err != nil {
		g.logger.Error("Dispatch failed",
			zap.Error(err),
			zap.String("workflow", decision.WorkflowName),
			zap.String("account_id", user.AccountID))
		if errors.Is(err, dispatcher.ErrTokenMint) {
			g.emitter.Send(msg.ChatID, authErrorReply)
		} else {
			g.emitter.Send(msg.ChatID, dispatchErrorReply)
		}
		g.record(user.AccountID, msg.ChatID, "dispatch", decision.WorkflowName, nil, false, start)
		return
	}

	g.emitter.Send(msg.ChatID, result.Message)
	g.record(user.AccountID, msg.ChatID, "dispatch", decision.WorkflowName,
		map[string]any{"cost": decision.EstimatedCost}, true, start)
}

func (g *Gateway) record(actorKey string, chatID int64, actionType, detail string, extra map[string]any, success bool, start time.Time) {
	g.audit.Record(models.AuditRecord{
		ActorKey:     actorKey,
		ChatID:       chatID,
		ActionType:   actionType,
		ActionDetail: detail,
		Context:      extra,
		Success:      success,
		DurationMs:   time.Since(start).Milliseconds(),
	})
}

// fromUpdate converts a transport update into the pipeline's inbound form.
// Returns nil for updates with nothing to process (service messages, edits,
// callback queries).
func fromUpdate(update tgbotapi.Update) *models.InboundMessage {
	m := update.Message
	if m == nil || m.From == nil || m.Chat == nil {
		return nil
	}

	text := m.Text
	if m.Caption != "" {
		text = m.Caption
	}

	msg := &models.InboundMessage{
		UpdateID: update.UpdateID,
		ChatID:   m.Chat.ID,
		Text:     strings.TrimSpace(text),
		Actor: models.Actor{
			ExternalID: m.From.ID,
			Username:   m.From.UserName,
			FirstName:  m.From.FirstName,
			LastName:   m.From.LastName,
			Locale:     m.From.LanguageCode,
		},
	}

	if m.Document != nil {
		msg.Attachment = &models.Attachment{
			Kind:      models.DocumentAttachment,
			Reference: m.Document.FileID,
			FileName:  m.Document.FileName,
		}
	} else if len(m.Photo) > 0 {
		msg.Attachment = &models.Attachment{
			Kind:      models.PhotoAttachment,
			Reference: m.Photo[len(m.Photo)-1].FileID,
		}
	}

	if msg.Text == "" && msg.Attachment == nil {
		return nil
	}
	return msg
}
