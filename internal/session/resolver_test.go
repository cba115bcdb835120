package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskpilot/chatbot/internal/directory"
	"github.com/taskpilot/chatbot/internal/models"
	"go.uber.org/zap"
)

func linkedDirectory(t *testing.T, record models.AccountRecord, externalID int64) *directory.MemoryDirectory {
	t.Helper()
	dir := directory.NewMemoryDirectory()
	dir.AddAccount(record)
	token := strings.Repeat("ab", 32)
	dir.CreateLinkToken(token, record.AccountID, time.Minute)
	require.NoError(t, dir.LinkAccount(context.Background(), token, 42, models.Actor{ExternalID: externalID}))
	return dir
}

func TestResolveReturnsPopulatedContext(t *testing.T) {
	dir := linkedDirectory(t, models.AccountRecord{
		AccountID:   "acc-1",
		ProfileID:   "prof-1",
		Tier:        models.TierPro,
		Permissions: []string{"weather_check", "generate_report"},
		QuotaUsed:   5,
		QuotaLimit:  200,
		TrialActive: true,
	}, 7)

	r := NewResolver(dir, zap.NewNop())
	user, err := r.Resolve(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, "acc-1", user.AccountID)
	assert.Equal(t, "prof-1", user.ProfileID)
	assert.Equal(t, models.TierPro, user.Tier)
	assert.Equal(t, []string{"weather_check", "generate_report"}, user.Permissions)
	assert.Equal(t, 5, user.QuotaUsed)
	assert.Equal(t, 200, user.QuotaLimit)
	assert.True(t, user.TrialActive)
}

func TestResolveAppliesTierDefaults(t *testing.T) {
	// Pre-migration accounts carry neither a quota limit nor grants.
	dir := linkedDirectory(t, models.AccountRecord{
		AccountID: "acc-2",
		ProfileID: "prof-2",
		Tier:      models.TierFree,
	}, 8)

	r := NewResolver(dir, zap.NewNop())
	user, err := r.Resolve(context.Background(), 8)
	require.NoError(t, err)

	assert.Equal(t, 10, user.QuotaLimit)
	assert.Equal(t, []string{"weather_check"}, user.Permissions)
}

func TestResolveMissIsExplicit(t *testing.T) {
	dir := directory.NewMemoryDirectory()

	r := NewResolver(dir, zap.NewNop())
	_, err := r.Resolve(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
