package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/taskpilot/chatbot/internal/directory"
	"github.com/taskpilot/chatbot/internal/models"
	"go.uber.org/zap"
)

const defaultSuccessMessage = "Done! Your automation completed."

// ErrTokenMint wraps any failure to sign the dispatch credential. The
// gateway reports these as authentication errors; the backend is never
// called without a valid token.
var ErrTokenMint = errors.New("dispatch token mint failed")

// Result is the user-facing outcome of one dispatch attempt.
type Result struct {
	Success bool
	Message string
}

// Dispatcher forwards an authorized intent to the automation backend.
type Dispatcher interface {
	Dispatch(ctx context.Context, workflowName string, params map[string]any, user models.UserContext, chatID int64, originalText string, cost int) (Result, error)
}

// Backend dispatches over HTTP to the automation backend's per-workflow
// endpoints. One attempt per request: automations may have side effects, so
// a POST is never retried.
type Backend struct {
	baseURL   string
	namespace string
	signer    *TokenSigner
	client    *http.Client
	dir       directory.Directory
	logger    *zap.Logger
}

func NewBackend(baseURL, namespace string, signer *TokenSigner, timeout time.Duration, dir directory.Directory, logger *zap.Logger) *Backend {
	return &Backend{
		baseURL:   strings.TrimRight(baseURL, "/"),
		namespace: namespace,
		signer:    signer,
		client:    &http.Client{Timeout: timeout},
		dir:       dir,
		logger:    logger,
	}
}

type backendResponse struct {
	Message string `json:"message"`
}

func (b *Backend) Dispatch(ctx context.Context, workflowName string, params map[string]any, user models.UserContext, chatID int64, originalText string, cost int) (Result, error) {
	token, err := b.signer.Mint(user)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrTokenMint, err)
	}

	// Reserved keys win over classifier-extracted parameters.
	body := make(map[string]any, len(params)+3)
	for k, v := range params {
		body[k] = v
	}
	body["chat_id"] = chatID
	body["original_text"] = originalText
	body["user"] = map[string]any{
		"account_id": user.AccountID,
		"profile_id": user.ProfileID,
		"tier":       string(user.Tier),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("encode dispatch payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s", b.baseURL, b.namespace, workflowName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("build dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := b.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("dispatch %s: %w", workflowName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("dispatch %s: backend returned status %d", workflowName, resp.StatusCode)
	}

	var parsed backendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		b.logger.Warn("Backend response was not valid JSON",
			zap.Error(err),
			zap.String("workflow", workflowName))
	}
	message := parsed.Message
	if message == "" {
		message = defaultSuccessMessage
	}

	// Quota accounting is advisory and stays off the reply's critical path.
	go b.chargeQuota(user.AccountID, cost)

	return Result{Success: true, Message: message}, nil
}

func (b *Backend) chargeQuota(accountID string, cost int) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.dir.IncrementQuota(ctx, accountID, cost); err != nil {
		b.logger.Error("Failed to increment quota",
			zap.Error(err),
			zap.String("account_id", accountID),
			zap.Int("cost", cost))
	}
}
