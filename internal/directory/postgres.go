package directory

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/taskpilot/chatbot/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresDirectory struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresDirectory(config DatabaseConfig, logger *zap.Logger) (*PostgresDirectory, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	d := &PostgresDirectory{db: db, logger: logger}

	if err := d.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return d, nil
}

func (d *PostgresDirectory) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := d.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	return nil
}

func (d *PostgresDirectory) RecordInteraction(ctx context.Context, chatID int64, actor models.Actor, text string) (models.SyncResult, error) {
	query := `
		INSERT INTO chat_links (chat_user_id, chat_id, username, first_name, last_name, language_code, last_message, interaction_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		ON CONFLICT (chat_user_id) DO UPDATE SET
			chat_id = EXCLUDED.chat_id,
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			language_code = EXCLUDED.language_code,
			last_message = EXCLUDED.last_message,
			interaction_count = chat_links.interaction_count + 1,
			updated_at = now()
		RETURNING account_id, interaction_count, (xmax = 0) AS inserted`

	var (
		accountID sql.NullString
		count     int
		inserted  bool
	)
	err := d.db.QueryRowContext(ctx, query,
		actor.ExternalID, chatID, actor.Username, actor.FirstName, actor.LastName, actor.Locale, text,
	).Scan(&accountID, &count, &inserted)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("error recording interaction: %w", err)
	}

	result := models.SyncResult{
		Status:           models.SyncUnlinked,
		InteractionCount: count,
		Action:           "updated",
	}
	if inserted {
		result.Action = "created"
	}
	if accountID.Valid && accountID.String != "" {
		result.Status = models.SyncLinked
		result.AccountID = accountID.String
	}
	return result, nil
}

func (d *PostgresDirectory) LinkAccount(ctx context.Context, token string, chatID int64, actor models.Actor) error {
	// Consuming the token and binding the chat must commit together: a
	// burned single-use token with no link would strand the user.
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting link transaction: %w", err)
	}
	defer tx.Rollback()

	var accountID string
	err = tx.QueryRowContext(ctx, `
		UPDATE link_tokens
		SET used_at = now()
		WHERE token = $1 AND used_at IS NULL AND expires_at > now()
		RETURNING account_id`, token).Scan(&accountID)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish "never issued" from "expired or already used".
		var exists bool
		if checkErr := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM link_tokens WHERE token = $1)`, token).Scan(&exists); checkErr == nil && exists {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("error consuming linking token: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chat_links (chat_user_id, chat_id, username, first_name, last_name, account_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (chat_user_id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			updated_at = now()`,
		actor.ExternalID, chatID, actor.Username, actor.FirstName, actor.LastName, accountID)
	if err != nil {
		return fmt.Errorf("error binding account to chat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing link: %w", err)
	}
	return nil
}

func (d *PostgresDirectory) ResolveAccount(ctx context.Context, externalID int64) (*models.AccountRecord, error) {
	query := `
		SELECT a.account_id, a.profile_id, a.tier, a.permissions, a.quota_used, a.quota_limit, a.trial_active
		FROM chat_links l
		JOIN accounts a ON a.account_id = l.account_id
		WHERE l.chat_user_id = $1`

	record := &models.AccountRecord{}
	var perms pq.StringArray
	err := d.db.QueryRowContext(ctx, query, externalID).Scan(
		&record.AccountID,
		&record.ProfileID,
		&record.Tier,
		&perms,
		&record.QuotaUsed,
		&record.QuotaLimit,
		&record.TrialActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error resolving account: %w", err)
	}
	record.Permissions = []string(perms)
	return record, nil
}

func (d *PostgresDirectory) IncrementQuota(ctx context.Context, accountID string, amount int) error {
	result, err := d.db.ExecContext(ctx,
		`UPDATE accounts SET quota_used = quota_used + $2 WHERE account_id = $1`,
		accountID, amount)
	if err != nil {
		return fmt.Errorf("error incrementing quota: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (d *PostgresDirectory) AppendAudit(ctx context.Context, rec models.AuditRecord) error {
	contextJSON, err := json.Marshal(rec.Context)
	if err != nil {
		return fmt.Errorf("error encoding audit context: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor_key, chat_id, action_type, action_detail, context, success, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.ActorKey, rec.ChatID, rec.ActionType, rec.ActionDetail, contextJSON, rec.Success, rec.DurationMs, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("error writing audit record: %w", err)
	}
	return nil
}

func (d *PostgresDirectory) SeenUpdate(ctx context.Context, updateID int) (bool, error) {
	result, err := d.db.ExecContext(ctx,
		`INSERT INTO processed_updates (update_id) VALUES ($1) ON CONFLICT (update_id) DO NOTHING`,
		updateID)
	if err != nil {
		return false, fmt.Errorf("error recording update id: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected: %w", err)
	}
	return rows == 0, nil
}

func (d *PostgresDirectory) Close() error {
	return d.db.Close()
}
