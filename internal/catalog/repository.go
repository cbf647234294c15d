package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/nerrad567/taller-core/internal/infrastructure/database"
	"github.com/nerrad567/taller-core/internal/tenant"
)

// Repository defines the interface for catalog persistence.
type Repository interface {
	ListCars(ctx context.Context, filter CarFilter, page tenant.Page) ([]Car, error)
	GetCar(ctx context.Context, id int64) (*Car, error)
	CreateCar(ctx context.Context, car *Car) error
	UpdateCar(ctx context.Context, id int64, patch CarPatch) (*Car, error)
	DeleteCar(ctx context.Context, id int64) error

	ListParts(ctx context.Context, filter PartFilter, page tenant.Page) ([]Part, error)
	GetPart(ctx context.Context, id int64) (*Part, error)
	CreatePart(ctx context.Context, part *Part) error
	UpdatePart(ctx context.Context, id int64, patch PartPatch) (*Part, error)
	DeletePart(ctx context.Context, id int64) error

	ListPartCars(ctx context.Context, partID int64) ([]Car, error)
	LinkPartCar(ctx context.Context, partID, carID int64) error
	UnlinkPartCar(ctx context.Context, partID, carID int64) error
}

// SQLRepository implements Repository with sqlx.
type SQLRepository struct {
	db *database.DB
}

// NewRepository creates a new SQL-backed catalog repository.
func NewRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const (
	carColumns  = "id, brand, model, year"
	partColumns = "id, name, brand, description, category"
)

// ListCars returns car models matching filter, ordered by brand, model, year.
func (r *SQLRepository) ListCars(ctx context.Context, filter CarFilter, page tenant.Page) ([]Car, error) {
	page = page.Normalize()
	q := new(tenant.Query)
	if filter.Brand != "" {
		q.Add("LOWER(brand) = ?", strings.ToLower(filter.Brand))
	}
	if filter.Model != "" {
		q.Add("LOWER(model) = ?", strings.ToLower(filter.Model))
	}
	if filter.Year != 0 {
		q.Add("year = ?", filter.Year)
	}
	where, args := q.Where()
	args = append(args, page.Limit, page.Skip)

	cars := []Car{}
	query := "SELECT " + carColumns + " FROM cars " + where + " ORDER BY brand, model, year LIMIT ? OFFSET ?" //nolint:gosec // WHERE built from parameterised conditions
	if err := r.db.SelectContext(ctx, &cars, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing cars: %w", err)
	}
	return cars, nil
}

// GetCar returns a car model by ID.
func (r *SQLRepository) GetCar(ctx context.Context, id int64) (*Car, error) {
	return r.getCar(ctx, r.db, id)
}

func (r *SQLRepository) getCar(ctx context.Context, q sqlx.QueryerContext, id int64) (*Car, error) {
	var c Car
	err := sqlx.GetContext(ctx, q, &c, r.db.Rebind("SELECT "+carColumns+" FROM cars WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCarNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading car %d: %w", id, err)
	}
	return &c, nil
}

// CreateCar inserts a car model.
func (r *SQLRepository) CreateCar(ctx context.Context, car *Car) error {
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(
		"INSERT INTO cars (brand, model, year) VALUES (?, ?, ?) RETURNING id"),
		car.Brand, car.Model, car.Year,
	).Scan(&car.ID)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrCarExists
		}
		return fmt.Errorf("inserting car: %w", err)
	}
	return nil
}

// UpdateCar applies the non-nil fields of patch.
func (r *SQLRepository) UpdateCar(ctx context.Context, id int64, patch CarPatch) (*Car, error) {
	var sets []string
	var args []any
	if patch.Brand != nil {
		sets = append(sets, "brand = ?")
		args = append(args, *patch.Brand)
	}
	if patch.Model != nil {
		sets = append(sets, "model = ?")
		args = append(args, *patch.Model)
	}
	if patch.Year != nil {
		sets = append(sets, "year = ?")
		args = append(args, *patch.Year)
	}
	if len(sets) == 0 {
		return r.GetCar(ctx, id)
	}
	args = append(args, id)

	query := "UPDATE cars SET " + strings.Join(sets, ", ") + " WHERE id = ?" //nolint:gosec // column list is fixed above
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrCarExists
		}
		return nil, fmt.Errorf("updating car %d: %w", id, err)
	}
	if err := database.RequireRows(result, ErrCarNotFound); err != nil {
		return nil, err
	}
	return r.GetCar(ctx, id)
}

// DeleteCar removes a car model that no vehicle uses.
func (r *SQLRepository) DeleteCar(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM cars WHERE id = ?"), id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrCarInUse
		}
		return fmt.Errorf("deleting car %d: %w", id, err)
	}
	if err := database.RequireRows(result, ErrCarNotFound); err != nil {
		return err
	}
	return nil
}

// ListParts returns parts matching filter ordered by name.
func (r *SQLRepository) ListParts(ctx context.Context, filter PartFilter, page tenant.Page) ([]Part, error) {
	page = page.Normalize()
	q := new(tenant.Query)
	if filter.Category != "" {
		q.Add("category = ?", filter.Category)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		q.Add("(LOWER(name) LIKE ? OR LOWER(brand) LIKE ?)", like, like)
	}
	if filter.CarID != 0 {
		q.Add("id IN (SELECT part_id FROM part_cars WHERE car_id = ?)", filter.CarID)
	}
	where, args := q.Where()
	args = append(args, page.Limit, page.Skip)

	parts := []Part{}
	query := "SELECT " + partColumns + " FROM parts " + where + " ORDER BY name, id LIMIT ? OFFSET ?" //nolint:gosec // WHERE built from parameterised conditions
	if err := r.db.SelectContext(ctx, &parts, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing parts: %w", err)
	}
	return parts, nil
}

// GetPart returns a part by ID.
func (r *SQLRepository) GetPart(ctx context.Context, id int64) (*Part, error) {
	return r.getPart(ctx, r.db, id)
}

func (r *SQLRepository) getPart(ctx context.Context, q sqlx.QueryerContext, id int64) (*Part, error) {
	var p Part
	err := sqlx.GetContext(ctx, q, &p, r.db.Rebind("SELECT "+partColumns+" FROM parts WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading part %d: %w", id, err)
	}
	return &p, nil
}

// CreatePart inserts a part.
func (r *SQLRepository) CreatePart(ctx context.Context, part *Part) error {
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(
		"INSERT INTO parts (name, brand, description, category) VALUES (?, ?, ?, ?) RETURNING id"),
		part.Name, part.Brand, part.Description, part.Category,
	).Scan(&part.ID)
	if err != nil {
		return fmt.Errorf("inserting part: %w", err)
	}
	return nil
}

// UpdatePart applies the non-nil fields of patch.
func (r *SQLRepository) UpdatePart(ctx context.Context, id int64, patch PartPatch) (*Part, error) {
	var sets []string
	var args []any
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Brand != nil {
		sets = append(sets, "brand = ?")
		args = append(args, *patch.Brand)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *patch.Category)
	}
	if len(sets) == 0 {
		return r.GetPart(ctx, id)
	}
	args = append(args, id)

	query := "UPDATE parts SET " + strings.Join(sets, ", ") + " WHERE id = ?" //nolint:gosec // column list is fixed above
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("updating part %d: %w", id, err)
	}
	if err := database.RequireRows(result, ErrPartNotFound); err != nil {
		return nil, err
	}
	return r.GetPart(ctx, id)
}

// DeletePart removes a part that is neither stocked nor used on a job.
// Compatibility links go with it.
func (r *SQLRepository) DeletePart(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM parts WHERE id = ?"), id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrPartInUse
		}
		return fmt.Errorf("deleting part %d: %w", id, err)
	}
	if err := database.RequireRows(result, ErrPartNotFound); err != nil {
		return err
	}
	return nil
}

// ListPartCars returns the car models a part fits.
func (r *SQLRepository) ListPartCars(ctx context.Context, partID int64) ([]Car, error) {
	if _, err := r.GetPart(ctx, partID); err != nil {
		return nil, err
	}
	cars := []Car{}
	err := r.db.SelectContext(ctx, &cars, r.db.Rebind(
		`SELECT c.id, c.brand, c.model, c.year FROM cars c
		 JOIN part_cars pc ON pc.car_id = c.id
		 WHERE pc.part_id = ? ORDER BY c.brand, c.model, c.year`), partID)
	if err != nil {
		return nil, fmt.Errorf("listing cars for part %d: %w", partID, err)
	}
	return cars, nil
}

// LinkPartCar records that a part fits a car model. Linking twice is a no-op.
func (r *SQLRepository) LinkPartCar(ctx context.Context, partID, carID int64) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := r.getPart(ctx, tx, partID); err != nil {
			return err
		}
		if _, err := r.getCar(ctx, tx, carID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(
			"INSERT INTO part_cars (part_id, car_id) VALUES (?, ?) ON CONFLICT (part_id, car_id) DO NOTHING"),
			partID, carID)
		if err != nil {
			return fmt.Errorf("linking part %d to car %d: %w", partID, carID, err)
		}
		return nil
	})
}

// UnlinkPartCar removes a compatibility link.
func (r *SQLRepository) UnlinkPartCar(ctx context.Context, partID, carID int64) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(
		"DELETE FROM part_cars WHERE part_id = ? AND car_id = ?"), partID, carID)
	if err != nil {
		return fmt.Errorf("unlinking part %d from car %d: %w", partID, carID, err)
	}
	if err := database.RequireRows(result, ErrCarNotFound); err != nil {
		return err
	}
	return nil
}
