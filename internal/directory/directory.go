package directory

import (
	"context"
	"errors"

	"github.com/taskpilot/chatbot/internal/models"
)

var (
	// ErrAccountNotFound means the chat identity has no linked account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrTokenInvalid means the linking token was never issued.
	ErrTokenInvalid = errors.New("linking token invalid")
	// ErrTokenExpired means the linking token expired or was already used.
	ErrTokenExpired = errors.New("linking token expired")
)

// Directory is the account/identity store the pipeline reads and writes.
// All cross-request state lives behind this interface.
type Directory interface {
	// RecordInteraction upserts the chat identity, bumps its interaction
	// counter and reports whether an account is linked.
	RecordInteraction(ctx context.Context, chatID int64, actor models.Actor, text string) (models.SyncResult, error)

	// LinkAccount consumes a single-use linking token and binds the chat
	// identity to the token's account.
	LinkAccount(ctx context.Context, token string, chatID int64, actor models.Actor) error

	// ResolveAccount returns the account record linked to the chat actor,
	// or ErrAccountNotFound.
	ResolveAccount(ctx context.Context, externalID int64) (*models.AccountRecord, error)

	// IncrementQuota adds amount to the account's quota counter. Advisory;
	// concurrent increments may race.
	IncrementQuota(ctx context.Context, accountID string, amount int) error

	// AppendAudit writes one audit record.
	AppendAudit(ctx context.Context, rec models.AuditRecord) error

	// SeenUpdate marks the transport update id as processed and reports
	// whether it had been seen before.
	SeenUpdate(ctx context.Context, updateID int) (bool, error)

	Close() error
}
