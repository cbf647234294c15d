package workshop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nerrad567/taller-core/internal/infrastructure/database"
	"github.com/nerrad567/taller-core/internal/tenant"
)

// Repository defines the interface for workshop persistence operations.
type Repository interface {
	Create(ctx context.Context, w *Workshop) error
	CreateForOwner(ctx context.Context, userID int64, w *Workshop) error
	Get(ctx context.Context, id int64) (*Workshop, error)
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, page tenant.Page) ([]Workshop, error)
	Update(ctx context.Context, id int64, patch Patch) (*Workshop, error)
	Delete(ctx context.Context, id int64) error
}

// SQLRepository implements Repository with sqlx.
type SQLRepository struct {
	db *database.DB
}

// NewRepository creates a new SQL-backed workshop repository.
func NewRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const columns = "id, name, address, opening_hours, closing_hours, created_at, updated_at"

// Create inserts a workshop owned by nobody. Used by admins.
func (r *SQLRepository) Create(ctx context.Context, w *Workshop) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return insert(ctx, tx, w)
	})
}

// CreateForOwner inserts a workshop and moves userID onto it, in one
// transaction. The user must still be on the unassigned workshop;
// otherwise ErrAlreadyAssigned is returned and nothing is written.
func (r *SQLRepository) CreateForOwner(ctx context.Context, userID int64, w *Workshop) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var current int64
		err := tx.GetContext(ctx, &current, tx.Rebind("SELECT workshop_id FROM users WHERE id = ?"), userID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrOwnerNotFound
		}
		if err != nil {
			return fmt.Errorf("loading owner: %w", err)
		}
		if tenant.IsAssigned(current) {
			return ErrAlreadyAssigned
		}

		if err := insert(ctx, tx, w); err != nil {
			return err
		}

		// Guarded on the placeholder so a concurrent create loses cleanly.
		result, err := tx.ExecContext(ctx, tx.Rebind(
			"UPDATE users SET workshop_id = ?, updated_at = ? WHERE id = ? AND workshop_id = ?"),
			w.ID, time.Now().UTC(), userID, tenant.UnassignedWorkshopID,
		)
		if err != nil {
			return fmt.Errorf("assigning workshop: %w", err)
		}
		return database.RequireRows(result, ErrAlreadyAssigned)
	})
}

func insert(ctx context.Context, tx *sqlx.Tx, w *Workshop) error {
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now

	err := tx.QueryRowxContext(ctx, tx.Rebind(
		`INSERT INTO workshops (name, address, opening_hours, closing_hours, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		w.Name, w.Address, w.OpeningHours, w.ClosingHours, now, now,
	).Scan(&w.ID)
	if err != nil {
		return fmt.Errorf("inserting workshop: %w", err)
	}
	return nil
}

// Get returns a workshop by ID.
func (r *SQLRepository) Get(ctx context.Context, id int64) (*Workshop, error) {
	var w Workshop
	err := r.db.GetContext(ctx, &w, r.db.Rebind("SELECT "+columns+" FROM workshops WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkshopNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading workshop %d: %w", id, err)
	}
	return &w, nil
}

// Exists reports whether a real (non-placeholder) workshop has this ID.
func (r *SQLRepository) Exists(ctx context.Context, id int64) (bool, error) {
	if !tenant.IsAssigned(id) {
		return false, nil
	}
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind("SELECT COUNT(*) FROM workshops WHERE id = ?"), id); err != nil {
		return false, fmt.Errorf("checking workshop %d: %w", id, err)
	}
	return n > 0, nil
}

// List returns real workshops ordered by ID. The placeholder is omitted.
func (r *SQLRepository) List(ctx context.Context, page tenant.Page) ([]Workshop, error) {
	page = page.Normalize()
	workshops := []Workshop{}
	err := r.db.SelectContext(ctx, &workshops, r.db.Rebind(
		"SELECT "+columns+" FROM workshops WHERE id <> ? ORDER BY id LIMIT ? OFFSET ?"),
		tenant.UnassignedWorkshopID, page.Limit, page.Skip,
	)
	if err != nil {
		return nil, fmt.Errorf("listing workshops: %w", err)
	}
	return workshops, nil
}

// Update applies the non-nil fields of patch.
func (r *SQLRepository) Update(ctx context.Context, id int64, patch Patch) (*Workshop, error) {
	if id == tenant.UnassignedWorkshopID {
		return nil, ErrReservedWorkshop
	}

	var sets []string
	var args []any
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Address != nil {
		sets = append(sets, "address = ?")
		args = append(args, *patch.Address)
	}
	if patch.OpeningHours != nil {
		sets = append(sets, "opening_hours = ?")
		args = append(args, *patch.OpeningHours)
	}
	if patch.ClosingHours != nil {
		sets = append(sets, "closing_hours = ?")
		args = append(args, *patch.ClosingHours)
	}
	if len(sets) == 0 {
		return r.Get(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	query := "UPDATE workshops SET " + strings.Join(sets, ", ") + " WHERE id = ?" //nolint:gosec // column list is fixed above
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("updating workshop %d: %w", id, err)
	}
	if err := database.RequireRows(result, ErrWorkshopNotFound); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Delete removes a workshop. Workshops that still own users or tenant
// records cannot be deleted.
func (r *SQLRepository) Delete(ctx context.Context, id int64) error {
	if id == tenant.UnassignedWorkshopID {
		return ErrReservedWorkshop
	}
	result, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM workshops WHERE id = ?"), id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrWorkshopInUse
		}
		return fmt.Errorf("deleting workshop %d: %w", id, err)
	}
	if err := database.RequireRows(result, ErrWorkshopNotFound); err != nil {
		return err
	}
	return nil
}
