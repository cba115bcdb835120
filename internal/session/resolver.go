package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskpilot/chatbot/internal/directory"
	"github.com/taskpilot/chatbot/internal/models"
	"go.uber.org/zap"
)

// ErrNotFound is returned when the chat actor has no resolvable account.
// Callers must treat it as "cannot proceed", not as a crash.
var ErrNotFound = errors.New("session: account not found")

type tierDefaults struct {
	quotaLimit  int
	permissions []string
}

// Accounts created before a tier migration may carry no quota limit or
// permission grants. These fill the gaps per tier.
var defaultsByTier = map[models.Tier]tierDefaults{
	models.TierFree:    {quotaLimit: 10, permissions: []string{"weather_check"}},
	models.TierStarter: {quotaLimit: 50, permissions: []string{"weather_check", "calendar_summary", "send_email"}},
	models.TierPro:     {quotaLimit: 200, permissions: []string{"weather_check", "calendar_summary", "send_email", "generate_report"}},
}

// Resolver builds the per-request UserContext from the directory record.
type Resolver struct {
	dir    directory.Directory
	logger *zap.Logger
}

func NewResolver(dir directory.Directory, logger *zap.Logger) *Resolver {
	return &Resolver{dir: dir, logger: logger}
}

// Resolve returns a fully populated UserContext for the chat actor, or
// ErrNotFound when the account cannot be loaded.
func (r *Resolver) Resolve(ctx context.Context, externalID int64) (models.UserContext, error) {
	record, err := r.dir.ResolveAccount(ctx, externalID)
	if errors.Is(err, directory.ErrAccountNotFound) {
		return models.UserContext{}, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to resolve account",
			zap.Error(err),
			zap.Int64("external_id", externalID))
		return models.UserContext{}, fmt.Errorf("session: resolve account: %w", err)
	}

	user := models.UserContext{
		AccountID:   record.AccountID,
		ProfileID:   record.ProfileID,
		Tier:        record.Tier,
		Permissions: append([]string(nil), record.Permissions...),
		QuotaUsed:   record.QuotaUsed,
		QuotaLimit:  record.QuotaLimit,
		TrialActive: record.TrialActive,
	}

	if defaults, ok := defaultsByTier[user.Tier]; ok {
		if user.QuotaLimit == 0 {
			user.QuotaLimit = defaults.quotaLimit
		}
		if len(user.Permissions) == 0 {
			user.Permissions = append([]string(nil), defaults.permissions...)
		}
	}

	return user, nil
}
