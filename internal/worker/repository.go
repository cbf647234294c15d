package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/taller-core/internal/infrastructure/database"
	"github.com/nerrad567/taller-core/internal/tenant"
)

// Repository defines the interface for worker persistence.
type Repository interface {
	List(ctx context.Context, scope tenant.Scope, page tenant.Page) ([]Worker, error)
	Get(ctx context.Context, scope tenant.Scope, id int64) (*Worker, error)
	Create(ctx context.Context, w *Worker) error
	Update(ctx context.Context, scope tenant.Scope, id int64, patch Patch) (*Worker, error)
	Delete(ctx context.Context, scope tenant.Scope, id int64) error
}

// SQLRepository implements Repository with sqlx.
type SQLRepository struct {
	db *database.DB
}

// NewRepository creates a new SQL-backed worker repository.
func NewRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const columns = "id, workshop_id, first_name, last_name, phone, position, nickname, created_at, updated_at"

// List returns workers in scope ordered by ID.
func (r *SQLRepository) List(ctx context.Context, scope tenant.Scope, page tenant.Page) ([]Worker, error) {
	page = page.Normalize()
	where, args := new(tenant.Query).Scope(scope, "workshop_id").Where()
	args = append(args, page.Limit, page.Skip)

	workers := []Worker{}
	query := "SELECT " + columns + " FROM workers " + where + " ORDER BY id LIMIT ? OFFSET ?" //nolint:gosec // WHERE built from parameterised conditions
	if err := r.db.SelectContext(ctx, &workers, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing workers: %w", err)
	}
	return workers, nil
}

// Get returns one worker in scope.
func (r *SQLRepository) Get(ctx context.Context, scope tenant.Scope, id int64) (*Worker, error) {
	where, args := new(tenant.Query).Add("id = ?", id).Scope(scope, "workshop_id").Where()

	var w Worker
	err := r.db.GetContext(ctx, &w, r.db.Rebind("SELECT "+columns+" FROM workers "+where), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading worker %d: %w", id, err)
	}
	return &w, nil
}

// Create inserts w. The caller has already stamped w.WorkshopID.
func (r *SQLRepository) Create(ctx context.Context, w *Worker) error {
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, r.db.Rebind(
		`INSERT INTO workers (workshop_id, first_name, last_name, phone, position, nickname, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		w.WorkshopID, w.FirstName, w.LastName, w.Phone, w.Position, w.Nickname, now, now,
	).Scan(&w.ID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return tenant.ErrUnknownWorkshop
		}
		return fmt.Errorf("inserting worker: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of patch to a worker in scope.
func (r *SQLRepository) Update(ctx context.Context, scope tenant.Scope, id int64, patch Patch) (*Worker, error) {
	var sets []string
	var args []any
	for _, f := range []struct {
		column string
		value  *string
	}{
		{"first_name", patch.FirstName},
		{"last_name", patch.LastName},
		{"phone", patch.Phone},
		{"position", patch.Position},
		{"nickname", patch.Nickname},
	} {
		if f.value != nil {
			sets = append(sets, f.column+" = ?")
			args = append(args, *f.value)
		}
	}
	if len(sets) == 0 {
		return r.Get(ctx, scope, id)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC())

	where, whereArgs := new(tenant.Query).Add("id = ?", id).Scope(scope, "workshop_id").Where()
	args = append(args, whereArgs...)

	query := "UPDATE workers SET " + strings.Join(sets, ", ") + " " + where //nolint:gosec // column list is fixed above
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("updating worker %d: %w", id, err)
	}
	if err := database.RequireRows(result, ErrWorkerNotFound); err != nil {
		return nil, err
	}
	return r.Get(ctx, scope, id)
}

// Delete removes a worker in scope. Their job assignments go with them.
func (r *SQLRepository) Delete(ctx context.Context, scope tenant.Scope, id int64) error {
	where, args := new(tenant.Query).Add("id = ?", id).Scope(scope, "workshop_id").Where()
	result, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM workers "+where), args...)
	if err != nil {
		return fmt.Errorf("deleting worker %d: %w", id, err)
	}
	if err := database.RequireRows(result, ErrWorkerNotFound); err != nil {
		return err
	}
	return nil
}
