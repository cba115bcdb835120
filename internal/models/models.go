package models

// Actor identifies the chat-side sender of an inbound message.
type Actor struct {
	ExternalID int64  `json:"external_id"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name,omitempty"`
	Locale     string `json:"locale,omitempty"`
}

// DisplayName returns the best human-readable name we have for the actor.
func (a Actor) DisplayName() string {
	if a.Username != "" {
		return "@" + a.Username
	}
	if a.LastName != "" {
		return a.FirstName + " " + a.LastName
	}
	return a.FirstName
}

type AttachmentKind string

const (
	DocumentAttachment AttachmentKind = "document"
	PhotoAttachment    AttachmentKind = "photo"
)

// Attachment carries only a reference to transport-held file data. The raw
// bytes never enter the pipeline.
type Attachment struct {
	Kind      AttachmentKind `json:"kind"`
	Reference string         `json:"reference"`
	FileName  string         `json:"file_name,omitempty"`
}

// InboundMessage is the transport-neutral form of one chat update. Built once
// at the transport boundary, read-only afterwards.
type InboundMessage struct {
	UpdateID   int         `json:"update_id"`
	ChatID     int64       `json:"chat_id"`
	Actor      Actor       `json:"actor"`
	Text       string      `json:"text"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

type SyncStatus string

const (
	SyncLinked   SyncStatus = "linked"
	SyncUnlinked SyncStatus = "unlinked"
)

// SyncResult is what the directory reports after recording an inbound
// interaction. Status decides which branch of the gateway runs.
type SyncResult struct {
	Status           SyncStatus `json:"status"`
	AccountID        string     `json:"account_id,omitempty"`
	InteractionCount int        `json:"interaction_count"`
	Action           string     `json:"action"`
}
