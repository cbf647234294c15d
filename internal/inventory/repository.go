package inventory

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

// Repository defines the interface for inventory persistence.
type Repository interface {
	List(ctx context.Context, scope tenant.Scope, filter Filter, page tenant.Page) ([]Item, error)
	Get(ctx context.Context, workshopID, partID int64) (*Item, error)
	Create(ctx context.Context, it *Item) error
	Update(ctx context.Context, workshopID, partID int64, patch Patch) (*Item, error)
	Delete(ctx context.Context, workshopID, partID int64) error
}

// SQLRepository implements Repository with sqlx.
type SQLRepository struct {
	db *database.DB
}

// NewRepository creates a new SQL-backed inventory repository.
func NewRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const itemSelect = `SELECT i.workshop_id, i.part_id, i.quantity, i.purchase_price, i.sale_price, i.updated_at,
	p.name AS part_name, p.brand AS part_brand
	FROM part_inventory i
	JOIN parts p ON p.id = i.part_id`

// List returns stock rows in scope ordered by workshop and part name.
func (r *SQLRepository) List(ctx context.Context, scope tenant.Scope, filter Filter, page tenant.Page) ([]Item, error) {
	page = page.Normalize()
	q := new(tenant.Query).Scope(scope, "i.workshop_id")
	if filter.LowStock > 0 {
		q.Add("i.quantity < ?", filter.LowStock)
	}
	where, args := q.Where()
	args = append(args, page.Limit, page.Skip)

	items := []Item{}
	query := itemSelect + " " + where + " ORDER BY i.workshop_id, p.name, i.part_id LIMIT ? OFFSET ?" //nolint:gosec // WHERE built from parameterised conditions
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	return items, nil
}

// Get returns the stock row for a part in a workshop.
func (r *SQLRepository) Get(ctx context.Context, workshopID, partID int64) (*Item, error) {
	return r.get(ctx, r.db, workshopID, partID)
}

func (r *SQLRepository) get(ctx context.Context, q sqlx.QueryerContext, workshopID, partID int64) (*Item, error) {
	var it Item
	err := sqlx.GetContext(ctx, q, &it, r.db.Rebind(itemSelect+" WHERE i.workshop_id = ? AND i.part_id = ?"), workshopID, partID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading inventory item %d/%d: %w", workshopID, partID, err)
	}
	return &it, nil
}

// Create starts stocking a part. The caller has already stamped
// it.WorkshopID.
func (r *SQLRepository) Create(ctx context.Context, it *Item) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		var n int
		if err := tx.GetContext(ctx, &n, tx.Rebind("SELECT COUNT(*) FROM parts WHERE id = ?"), it.PartID); err != nil {
			return fmt.Errorf("checking part %d: %w", it.PartID, err)
		}
		if n == 0 {
			return ErrUnknownPart
		}

		_, err := tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO part_inventory (workshop_id, part_id, quantity, purchase_price, sale_price, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`),
			it.WorkshopID, it.PartID, it.Quantity, it.PurchasePrice, it.SalePrice, time.Now().UTC(),
		)
		switch {
		case database.IsUniqueViolation(err):
			return ErrAlreadyStocked
		case database.IsForeignKeyViolation(err):
			return tenant.ErrUnknownWorkshop
		case err != nil:
			return fmt.Errorf("inserting inventory item: %w", err)
		}

		stored, err := r.get(ctx, tx, it.WorkshopID, it.PartID)
		if err != nil {
			return err
		}
		*it = *stored
		return nil
	})
}

// Update applies the non-nil fields of patch.
func (r *SQLRepository) Update(ctx context.Context, workshopID, partID int64, patch Patch) (*Item, error) {
	var sets []string
	var args []any
	if patch.Quantity != nil {
		sets = append(sets, "quantity = ?")
		args = append(args, *patch.Quantity)
	}
	if patch.PurchasePrice != nil {
		sets = append(sets, "purchase_price = ?")
		args = append(args, *patch.PurchasePrice)
	}
	if patch.SalePrice != nil {
		sets = append(sets, "sale_price = ?")
		args = append(args, *patch.SalePrice)
	}
	if len(sets) == 0 {
		return r.Get(ctx, workshopID, partID)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), workshopID, partID)

	query := "UPDATE part_inventory SET " + strings.Join(sets, ", ") + " WHERE workshop_id = ? AND part_id = ?" //nolint:gosec // column list is fixed above
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("updating inventory item %d/%d: %w", workshopID, partID, err)
	}
	if err := database.RequireRows(result, ErrItemNotFound); err != nil {
		return nil, err
	}
	return r.Get(ctx, workshopID, partID)
}

// Delete stops stocking a part.
func (r *SQLRepository) Delete(ctx context.Context, workshopID, partID int64) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(
		"DELETE FROM part_inventory WHERE workshop_id = ? AND part_id = ?"), workshopID, partID)
	if err != nil {
		return fmt.Errorf("deleting inventory item %d/%d: %w", workshopID, partID, err)
	}
	if err := database.RequireRows(result, ErrItemNotFound); err != nil {
		return err
	}
	return nil
}

// Consume takes quantity units of a part from a workshop's stock inside
// tx. It fails with ErrItemNotFound when the part is not stocked and with
// ErrInsufficientStock when fewer units are on hand.
func Consume(ctx context.Context, tx *sqlx.Tx, workshopID, partID int64, quantity int) error {
	result, err := tx.ExecContext(ctx, tx.Rebind(
		`UPDATE part_inventory SET quantity = quantity - ?, updated_at = ?
		 WHERE workshop_id = ? AND part_id = ? AND quantity >= ?`),
		quantity, time.Now().UTC(), workshopID, partID, quantity,
	)
	if err != nil {
		return fmt.Errorf("consuming stock: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var n int
	if err := tx.GetContext(ctx, &n, tx.Rebind(
		"SELECT COUNT(*) FROM part_inventory WHERE workshop_id = ? AND part_id = ?"), workshopID, partID); err != nil {
		return fmt.Errorf("checking stock: %w", err)
	}
	if n == 0 {
		return ErrItemNotFound
	}
	return ErrInsufficientStock
}

// Restock returns quantity units of a part to a workshop's stock inside
// tx. A part that is no longer stocked is silently dropped.
func Restock(ctx context.Context, tx *sqlx.Tx, workshopID, partID int64, quantity int) error {
	_, err := tx.ExecContext(ctx, tx.Rebind(
		`UPDATE part_inventory SET quantity = quantity + ?, updated_at = ?
		 WHERE workshop_id = ? AND part_id = ?`),
		quantity, time.Now().UTC(), workshopID, partID,
	)
	if err != nil {
		return fmt.Errorf("restocking: %w", err)
	}
	return nil
}
