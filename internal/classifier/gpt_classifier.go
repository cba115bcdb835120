package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/taskpilot/chatbot/internal/models"
	"go.uber.org/zap"
)

type GPTClassifier struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	timeout     time.Duration
	catalog     []models.Workflow
	logger      *zap.Logger
}

func NewGPTClassifier(apiKey string, model string, maxTokens int, temperature float64, timeout time.Duration, catalog []models.Workflow, logger *zap.Logger) *GPTClassifier {
	return NewGPTClassifierWithClient(openai.NewClient(apiKey), model, maxTokens, temperature, timeout, catalog, logger)
}

// NewGPTClassifierWithClient allows substituting a preconfigured client, e.g.
// one pointed at a stub server in tests.
func NewGPTClassifierWithClient(client *openai.Client, model string, maxTokens int, temperature float64, timeout time.Duration, catalog []models.Workflow, logger *zap.Logger) *GPTClassifier {
	return &GPTClassifier{
		client:      client,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
		catalog:     catalog,
		logger:      logger,
	}
}

func (c *GPTClassifier) systemPrompt(user models.UserContext) string {
	var b strings.Builder
	b.WriteString("You are the intent router for an automation assistant. ")
	b.WriteString("Decide what the user wants and answer with a single JSON object, nothing else.\n\n")
	b.WriteString("Available automations:\n")
	for _, wf := range c.catalog {
		fmt.Fprintf(&b, "- %s: %s\n", wf.Name, wf.Description)
	}
	b.WriteString(`
Response schema:
{
  "action": "route" | "direct" | "clarify" | "link" | "deny",
  "workflow_name": "<catalog name, only when action is route>",
  "parameters": { "<param>": "<value extracted from the message>" },
  "user_message": "<reply text, when action is direct or deny>",
  "clarifying_question": "<question, when action is clarify>",
  "estimated_cost": <integer 1-5, relative execution cost>
}

Rules:
- Use "route" only when the message clearly maps to one catalog automation.
- Use "clarify" when an automation fits but a required detail is missing.
- Use "direct" for greetings, questions about capabilities, and small talk.
- Use "deny" for requests outside the catalog that cannot be helped.
- Never invent workflow names outside the catalog.
`)
	fmt.Fprintf(&b, "\nThe user is on the %s plan.", user.Tier)
	return b.String()
}

func (c *GPTClassifier) Classify(ctx context.Context, text string, attachment *models.Attachment, user models.UserContext) models.IntentDecision {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	content := text
	if attachment != nil {
		// Only the file name and kind cross the wire, never the bytes.
		note := fmt.Sprintf("[attached %s]", attachment.Kind)
		if attachment.FileName != "" {
			note = fmt.Sprintf("[attached %s: %s]", attachment.Kind, attachment.FileName)
		}
		content = text + "\n\n" + note
	}

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: c.systemPrompt(user),
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: content,
				},
			},
			MaxTokens:   c.maxTokens,
			Temperature: float32(c.temperature),
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		c.logger.Error("Failed to get completion", zap.Error(err))
		return SafeDefault()
	}
	if len(resp.Choices) == 0 {
		c.logger.Error("Completion returned no choices")
		return SafeDefault()
	}

	var decision models.IntentDecision
	raw := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		c.logger.Error("Failed to parse completion response",
			zap.Error(err),
			zap.String("response", raw))
		return SafeDefault()
	}

	if err := Validate(decision, c.catalog); err != nil {
		c.logger.Warn("Rejected non-conforming decision",
			zap.Error(err),
			zap.String("response", raw))
		return SafeDefault()
	}

	return decision
}
