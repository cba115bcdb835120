package models

import "time"

// UnlinkedActor is the audit actor key used when no account is bound to the
// chat identity yet.
const UnlinkedActor = "unlinked"

// AuditRecord is one append-only interaction record. Writes are best-effort;
// the pipeline never blocks on them.
type AuditRecord struct {
	ID           string         `json:"id"`
	ActorKey     string         `json:"actor_key"`
	ChatID       int64          `json:"chat_id"`
	ActionType   string         `json:"action_type"`
	ActionDetail string         `json:"action_detail,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
	Success      bool           `json:"success"`
	DurationMs   int64          `json:"duration_ms"`
	CreatedAt    time.Time      `json:"created_at"`
}
