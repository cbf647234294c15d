// Package audit records who changed what, in which workshop, and lets
// callers page through that history within their tenant scope.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nerrad567/taller-core/internal/infrastructure/database"
	"github.com/nerrad567/taller-core/internal/tenant"
)

// Audit actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionLogin  = "login"
)

// timestampLayout is fixed-width so text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// AuditLog represents a single audit trail entry.
type AuditLog struct { //nolint:revive // audit.AuditLog is clearer than audit.Log in calling code
	ID         string         `json:"id"`
	WorkshopID *int64         `json:"workshop_id,omitempty"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Source     string         `json:"source"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter controls which audit logs to return.
type Filter struct {
	Action     string // optional: filter by action (create, update, delete, login)
	EntityType string // optional: filter by entity type (customer, job, user, etc.)
	EntityID   string // optional: filter by specific entity ID
	Limit      int    // default 50, max 200
	Offset     int    // pagination offset
}

// ListResult contains the paginated audit log results.
type ListResult struct {
	Logs   []AuditLog `json:"logs"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// Repository defines the interface for audit log operations.
type Repository interface {
	Create(ctx context.Context, log *AuditLog) error
	List(ctx context.Context, scope tenant.Scope, filter Filter) (*ListResult, error)
}

// SQLRepository reads and writes audit logs.
type SQLRepository struct {
	db *database.DB
}

// NewRepository creates a new audit log repository.
func NewRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// row mirrors the audit_logs table.
type row struct {
	ID         string         `db:"id"`
	WorkshopID sql.NullInt64  `db:"workshop_id"`
	Action     string         `db:"action"`
	EntityType string         `db:"entity_type"`
	EntityID   sql.NullString `db:"entity_id"`
	UserID     sql.NullString `db:"user_id"`
	Source     string         `db:"source"`
	Details    sql.NullString `db:"details"`
	CreatedAt  string         `db:"created_at"`
}

// Create inserts a new audit log entry. The ID and CreatedAt are generated if empty.
func (r *SQLRepository) Create(ctx context.Context, log *AuditLog) error {
	if log.ID == "" {
		log.ID = "aud-" + uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	var detailsJSON *string
	if log.Details != nil {
		b, err := json.Marshal(log.Details)
		if err != nil {
			return fmt.Errorf("marshalling audit details: %w", err)
		}
		s := string(b)
		detailsJSON = &s
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO audit_logs (id, workshop_id, action, entity_type, entity_id, user_id, source, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		log.ID, log.WorkshopID, log.Action, log.EntityType,
		nullableString(log.EntityID), nullableString(log.UserID),
		log.Source, detailsJSON,
		log.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}

	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns audit logs in scope matching the filter, most recent first.
func (r *SQLRepository) List(ctx context.Context, scope tenant.Scope, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for audit log queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	q := new(tenant.Query).Scope(scope, "workshop_id")
	if filter.Action != "" {
		q.Add("action = ?", filter.Action)
	}
	if filter.EntityType != "" {
		q.Add("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		q.Add("entity_id = ?", filter.EntityID)
	}
	where, args := q.Where()

	// WHERE clause is built from parameterised conditions (? placeholders); no user input in SQL string.
	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM audit_logs "+where), args...); err != nil {
		return nil, fmt.Errorf("counting audit logs: %w", err)
	}

	query := "SELECT id, workshop_id, action, entity_type, entity_id, user_id, source, details, created_at FROM audit_logs " + //nolint:gosec // WHERE built from parameterised conditions, not user input
		where + " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	var rows []row
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}

	logs := make([]AuditLog, 0, len(rows))
	for _, rw := range rows {
		log, err := rw.toLog()
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}

	return &ListResult{
		Logs:   logs,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func (rw row) toLog() (AuditLog, error) {
	log := AuditLog{
		ID:         rw.ID,
		Action:     rw.Action,
		EntityType: rw.EntityType,
		EntityID:   rw.EntityID.String,
		UserID:     rw.UserID.String,
		Source:     rw.Source,
	}
	if rw.WorkshopID.Valid {
		ws := rw.WorkshopID.Int64
		log.WorkshopID = &ws
	}
	if rw.Details.Valid && rw.Details.String != "" {
		var details map[string]any
		if json.Unmarshal([]byte(rw.Details.String), &details) == nil {
			log.Details = details
		}
	}

	t, err := time.Parse(time.RFC3339, rw.CreatedAt)
	if err != nil {
		return AuditLog{}, fmt.Errorf("parsing audit log timestamp %q: %w", rw.CreatedAt, err)
	}
	log.CreatedAt = t
	return log, nil
}
