package guard

import (
	"fmt"

	"github.com/taskpilot/chatbot/internal/models"
)

// Guard decides whether a classified intent may proceed for a given user.
// Evaluate is pure; the catalog is fixed at construction.
type Guard struct {
	catalog map[string]models.Workflow
}

func New(workflows []models.Workflow) *Guard {
	catalog := make(map[string]models.Workflow, len(workflows))
	for _, wf := range workflows {
		catalog[wf.Name] = wf
	}
	return &Guard{catalog: catalog}
}

// Evaluate applies the tier check before the quota check: an ungranted
// capability must not leak quota information.
func (g *Guard) Evaluate(decision models.IntentDecision, user models.UserContext) models.PermissionVerdict {
	if decision.Action == models.ActionRoute && !user.Can(decision.WorkflowName) {
		return models.PermissionVerdict{
			Allowed:     false,
			Reason:      models.DenyInsufficientTier,
			UserMessage: g.upgradeMessage(decision.WorkflowName, user),
		}
	}

	if user.QuotaUsed+decision.EstimatedCost > user.QuotaLimit {
		return models.PermissionVerdict{
			Allowed: false,
			Reason:  models.DenyQuotaExceeded,
			UserMessage: fmt.Sprintf(
				"You've used %d of your %d monthly automation credits, and this would need %d more. Your quota resets at the start of the next billing period.",
				user.QuotaUsed, user.QuotaLimit, decision.EstimatedCost),
		}
	}

	return models.PermissionVerdict{Allowed: true}
}

func (g *Guard) upgradeMessage(workflowName string, user models.UserContext) string {
	wf, ok := g.catalog[workflowName]
	if !ok {
		return fmt.Sprintf("The %s automation isn't available on your %s plan.", workflowName, user.Tier)
	}
	return fmt.Sprintf("The %s automation requires the %s plan or above — you're currently on %s. Upgrade your plan to unlock it.",
		wf.Name, wf.MinTier, user.Tier)
}
