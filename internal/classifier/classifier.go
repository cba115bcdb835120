package classifier

import (
	"context"
	"fmt"

	"github.com/taskpilot/chatbot/internal/models"
)

// FallbackMessage is sent when the classifier cannot produce a usable
// decision. Provider errors never reach the user verbatim.
const FallbackMessage = "Sorry, I couldn't work out what you'd like me to do. Could you rephrase that?"

// Classifier turns one user message into a bounded intent decision. The
// returned decision is always validated; implementations must fall back to
// SafeDefault rather than surface malformed output.
type Classifier interface {
	Classify(ctx context.Context, text string, attachment *models.Attachment, user models.UserContext) models.IntentDecision
}

// SafeDefault is the decision substituted whenever classification fails or
// the model output does not conform to the schema.
func SafeDefault() models.IntentDecision {
	return models.IntentDecision{
		Action:        models.ActionDirect,
		UserMessage:   FallbackMessage,
		EstimatedCost: 1,
	}
}

// Validate checks a parsed decision against the schema contract: action must
// be a known variant, cost must be in 1..5, and a routed workflow must exist
// in the catalog. Model output failing any of these is untrusted and must be
// replaced, not repaired.
func Validate(d models.IntentDecision, catalog []models.Workflow) error {
	switch d.Action {
	case models.ActionRoute, models.ActionDirect, models.ActionClarify, models.ActionLink, models.ActionDeny:
	default:
		return fmt.Errorf("unknown action %q", d.Action)
	}

	if d.EstimatedCost < 1 || d.EstimatedCost > 5 {
		return fmt.Errorf("estimated cost %d out of range", d.EstimatedCost)
	}

	if d.Action == models.ActionRoute {
		found := false
		for _, wf := range catalog {
			if wf.Name == d.WorkflowName {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("workflow %q not in catalog", d.WorkflowName)
		}
	}

	return nil
}
