package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/taskpilot/chatbot/internal/models"
)

var testCatalog = []models.Workflow{
	{Name: "weather_check", Description: "weather lookup", MinTier: models.TierFree},
	{Name: "send_email", Description: "send email", MinTier: models.TierStarter},
	{Name: "generate_report", Description: "report generation", MinTier: models.TierPro},
}

func starterUser() models.UserContext {
	return models.UserContext{
		AccountID:   "acc-1",
		ProfileID:   "prof-1",
		Tier:        models.TierStarter,
		Permissions: []string{"weather_check", "send_email"},
		QuotaUsed:   2,
		QuotaLimit:  20,
	}
}

func TestEvaluateAllowsGrantedWorkflowWithinQuota(t *testing.T) {
	g := New(testCatalog)

	verdict := g.Evaluate(models.IntentDecision{
		Action:        models.ActionRoute,
		WorkflowName:  "weather_check",
		EstimatedCost: 1,
	}, starterUser())

	assert.True(t, verdict.Allowed)
	assert.Empty(t, verdict.Reason)
}

func TestEvaluateDeniesUngrantedWorkflow(t *testing.T) {
	g := New(testCatalog)

	verdict := g.Evaluate(models.IntentDecision{
		Action:        models.ActionRoute,
		WorkflowName:  "generate_report",
		EstimatedCost: 1,
	}, starterUser())

	assert.False(t, verdict.Allowed)
	assert.Equal(t, models.DenyInsufficientTier, verdict.Reason)
	assert.Contains(t, verdict.UserMessage, "generate_report")
	assert.Contains(t, verdict.UserMessage, string(models.TierPro))
}

func TestEvaluateTierCheckWinsOverQuota(t *testing.T) {
	g := New(testCatalog)

	// Quota is also exhausted, but the tier denial must come first so an
	// ungranted capability doesn't leak quota information.
	user := starterUser()
	user.QuotaUsed = user.QuotaLimit

	for cost := 1; cost <= 5; cost++ {
		verdict := g.Evaluate(models.IntentDecision{
			Action:        models.ActionRoute,
			WorkflowName:  "generate_report",
			EstimatedCost: cost,
		}, user)

		assert.False(t, verdict.Allowed)
		assert.Equal(t, models.DenyInsufficientTier, verdict.Reason)
	}
}

func TestEvaluateDeniesWhenQuotaExceeded(t *testing.T) {
	g := New(testCatalog)

	user := starterUser()
	user.QuotaUsed = 20

	verdict := g.Evaluate(models.IntentDecision{
		Action:        models.ActionRoute,
		WorkflowName:  "weather_check",
		EstimatedCost: 1,
	}, user)

	assert.False(t, verdict.Allowed)
	assert.Equal(t, models.DenyQuotaExceeded, verdict.Reason)
	assert.Contains(t, verdict.UserMessage, "20")
}

func TestEvaluateDeniesWhenCostWouldOverflowQuota(t *testing.T) {
	g := New(testCatalog)

	user := starterUser()
	user.QuotaUsed = 18

	verdict := g.Evaluate(models.IntentDecision{
		Action:        models.ActionRoute,
		WorkflowName:  "weather_check",
		EstimatedCost: 3,
	}, user)

	assert.False(t, verdict.Allowed)
	assert.Equal(t, models.DenyQuotaExceeded, verdict.Reason)
}

func TestEvaluateAllowsExactQuotaFit(t *testing.T) {
	g := New(testCatalog)

	user := starterUser()
	user.QuotaUsed = 19

	verdict := g.Evaluate(models.IntentDecision{
		Action:        models.ActionRoute,
		WorkflowName:  "weather_check",
		EstimatedCost: 1,
	}, user)

	assert.True(t, verdict.Allowed)
}
