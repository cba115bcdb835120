package models

type IntentAction string

const (
	ActionRoute   IntentAction = "route"
	ActionDirect  IntentAction = "direct"
	ActionClarify IntentAction = "clarify"
	ActionLink    IntentAction = "link"
	ActionDeny    IntentAction = "deny"
)

// IntentDecision is the classifier's verdict on one message. It is parsed
// from model output and must pass validation before anything downstream
// trusts it.
type IntentDecision struct {
	Action             IntentAction   `json:"action"`
	WorkflowName       string         `json:"workflow_name,omitempty"`
	Parameters         map[string]any `json:"parameters,omitempty"`
	UserMessage        string         `json:"user_message,omitempty"`
	ClarifyingQuestion string         `json:"clarifying_question,omitempty"`
	EstimatedCost      int            `json:"estimated_cost"`
}

type DenyReason string

const (
	DenyInsufficientTier DenyReason = "insufficient_tier"
	DenyQuotaExceeded    DenyReason = "quota_exceeded"
)

// PermissionVerdict is the guard's answer for one decision. Derived per
// request, never persisted.
type PermissionVerdict struct {
	Allowed     bool
	UserMessage string
	Reason      DenyReason
}
