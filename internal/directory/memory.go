package directory

import (
	"context"
	"sync"
	"time"

	"github.com/taskpilot/chatbot/internal/models"
)

type chatLink struct {
	accountID        string
	interactionCount int
	lastMessage      string
}

type linkToken struct {
	accountID string
	expiresAt time.Time
	used      bool
}

// MemoryDirectory is an in-process Directory for local runs and tests.
type MemoryDirectory struct {
	mu       sync.RWMutex
	links    map[int64]*chatLink
	accounts map[string]*models.AccountRecord
	tokens   map[string]*linkToken
	updates  map[int]struct{}
	audits   []models.AuditRecord
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		links:    make(map[int64]*chatLink),
		accounts: make(map[string]*models.AccountRecord),
		tokens:   make(map[string]*linkToken),
		updates:  make(map[int]struct{}),
	}
}

// AddAccount registers an account record. Test and local-run helper.
func (d *MemoryDirectory) AddAccount(record models.AccountRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	copied := record
	d.accounts[record.AccountID] = &copied
}

// CreateLinkToken issues a single-use linking token for the account.
func (d *MemoryDirectory) CreateLinkToken(token, accountID string, ttl time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokens[token] = &linkToken{accountID: accountID, expiresAt: time.Now().Add(ttl)}
}

// AuditRecords returns a snapshot of everything written so far.
func (d *MemoryDirectory) AuditRecords() []models.AuditRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.AuditRecord, len(d.audits))
	copy(out, d.audits)
	return out
}

func (d *MemoryDirectory) RecordInteraction(ctx context.Context, chatID int64, actor models.Actor, text string) (models.SyncResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	link, exists := d.links[actor.ExternalID]
	action := "updated"
	if !exists {
		link = &chatLink{}
		d.links[actor.ExternalID] = link
		action = "created"
	}
	link.interactionCount++
	link.lastMessage = text

	result := models.SyncResult{
		Status:           models.SyncUnlinked,
		InteractionCount: link.interactionCount,
		Action:           action,
	}
	if link.accountID != "" {
		result.Status = models.SyncLinked
		result.AccountID = link.accountID
	}
	return result, nil
}

func (d *MemoryDirectory) LinkAccount(ctx context.Context, token string, chatID int64, actor models.Actor) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, exists := d.tokens[token]
	if !exists {
		return ErrTokenInvalid
	}
	if t.used || time.Now().After(t.expiresAt) {
		return ErrTokenExpired
	}
	t.used = true

	link, exists := d.links[actor.ExternalID]
	if !exists {
		link = &chatLink{}
		d.links[actor.ExternalID] = link
	}
	link.accountID = t.accountID
	return nil
}

func (d *MemoryDirectory) ResolveAccount(ctx context.Context, externalID int64) (*models.AccountRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	link, exists := d.links[externalID]
	if !exists || link.accountID == "" {
		return nil, ErrAccountNotFound
	}
	record, exists := d.accounts[link.accountID]
	if !exists {
		return nil, ErrAccountNotFound
	}
	copied := *record
	copied.Permissions = append([]string(nil), record.Permissions...)
	return &copied, nil
}

func (d *MemoryDirectory) IncrementQuota(ctx context.Context, accountID string, amount int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	record, exists := d.accounts[accountID]
	if !exists {
		return ErrAccountNotFound
	}
	record.QuotaUsed += amount
	return nil
}

func (d *MemoryDirectory) AppendAudit(ctx context.Context, rec models.AuditRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.audits = append(d.audits, rec)
	return nil
}

func (d *MemoryDirectory) SeenUpdate(ctx context.Context, updateID int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, seen := d.updates[updateID]; seen {
		return true, nil
	}
	d.updates[updateID] = struct{}{}
	return false, nil
}

func (d *MemoryDirectory) Close() error {
	return nil
}
