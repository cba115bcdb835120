package models

type Tier string

const (
	TierFree    Tier = "free"
	TierStarter Tier = "starter"
	TierPro     Tier = "pro"
)

// AccountRecord is the raw directory row for a linked account. Fields the
// directory leaves empty get tier defaults applied by the session resolver.
type AccountRecord struct {
	AccountID   string
	ProfileID   string
	Tier        Tier
	Permissions []string
	QuotaUsed   int
	QuotaLimit  int
	TrialActive bool
}

// UserContext is the per-request view of an account. It is built fresh for
// every inbound message and never cached or mutated afterwards.
type UserContext struct {
	AccountID   string   `json:"account_id"`
	ProfileID   string   `json:"profile_id"`
	Tier        Tier     `json:"tier"`
	Permissions []string `json:"permissions"`
	QuotaUsed   int      `json:"quota_used"`
	QuotaLimit  int      `json:"quota_limit"`
	TrialActive bool     `json:"trial_active"`
}

// Can reports whether the account is granted the named workflow.
func (c UserContext) Can(workflow string) bool {
	for _, p := range c.Permissions {
		if p == workflow {
			return true
		}
	}
	return false
}

// Workflow is one entry of the automation catalog the classifier may route to.
type Workflow struct {
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description" mapstructure:"description"`
	MinTier     Tier   `json:"min_tier" mapstructure:"min_tier"`
}
