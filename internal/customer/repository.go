package customer

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

// Repository defines the interface for customer and vehicle persistence.
// Every method that takes a tenant.Scope treats rows outside it as missing.
type Repository interface {
	List(ctx context.Context, scope tenant.Scope, page tenant.Page) ([]Customer, error)
	Get(ctx context.Context, scope tenant.Scope, id int64) (*Customer, error)
	Create(ctx context.Context, c *Customer) error
	Update(ctx context.Context, scope tenant.Scope, id int64, patch Patch) (*Customer, error)
	Delete(ctx context.Context, scope tenant.Scope, id int64) error

	ListVehicles(ctx context.Context, scope tenant.Scope, customerID int64) ([]Vehicle, error)
	GetVehicle(ctx context.Context, scope tenant.Scope, id int64) (*Vehicle, error)
	AddVehicle(ctx context.Context, scope tenant.Scope, customerID int64, v *Vehicle) error
	UpdateVehicle(ctx context.Context, scope tenant.Scope, id int64, patch VehiclePatch) (*Vehicle, error)
	DeleteVehicle(ctx context.Context, scope tenant.Scope, id int64) error
}

// SQLRepository implements Repository with sqlx.
type SQLRepository struct {
	db *database.DB
}

// NewRepository creates a new SQL-backed customer repository.
func NewRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const customerColumns = "id, workshop_id, first_name, last_name, phone, email, created_at, updated_at"

const vehicleSelect = `SELECT v.id, v.customer_id, v.car_id, v.license_plate, v.color, v.created_at,
	c.workshop_id, k.brand, k.model, k.year
	FROM customer_cars v
	JOIN customers c ON c.id = v.customer_id
	JOIN cars k ON k.id = v.car_id`

// List returns the customers in scope ordered by ID.
func (r *SQLRepository) List(ctx context.Context, scope tenant.Scope, page tenant.Page) ([]Customer, error) {
	page = page.Normalize()
	where, args := new(tenant.Query).Scope(scope, "workshop_id").Where()
	args = append(args, page.Limit, page.Skip)

	customers := []Customer{}
	query := "SELECT " + customerColumns + " FROM customers " + where + " ORDER BY id LIMIT ? OFFSET ?" //nolint:gosec // WHERE built from parameterised conditions
	if err := r.db.SelectContext(ctx, &customers, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return customers, nil
}

// Get returns one customer in scope.
func (r *SQLRepository) Get(ctx context.Context, scope tenant.Scope, id int64) (*Customer, error) {
	return r.get(ctx, r.db, scope, id)
}

func (r *SQLRepository) get(ctx context.Context, q sqlx.QueryerContext, scope tenant.Scope, id int64) (*Customer, error) {
	where, args := new(tenant.Query).Add("id = ?", id).Scope(scope, "workshop_id").Where()

	var c Customer
	err := sqlx.GetContext(ctx, q, &c, r.db.Rebind("SELECT "+customerColumns+" FROM customers "+where), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading customer %d: %w", id, err)
	}
	return &c, nil
}

// Create inserts c. The caller has already stamped c.WorkshopID.
func (r *SQLRepository) Create(ctx context.Context, c *Customer) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	err := r.db.QueryRowxContext(ctx, r.db.Rebind(
		`INSERT INTO customers (workshop_id, first_name, last_name, phone, email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		c.WorkshopID, c.FirstName, c.LastName, c.Phone, c.Email, now, now,
	).Scan(&c.ID)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return tenant.ErrUnknownWorkshop
		}
		return fmt.Errorf("inserting customer: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of patch to a customer in scope.
func (r *SQLRepository) Update(ctx context.Context, scope tenant.Scope, id int64, patch Patch) (*Customer, error) {
	var sets []string
	var args []any
	if patch.FirstName != nil {
		sets = append(sets, "first_name = ?")
		args = append(args, *patch.FirstName)
	}
	if patch.LastName != nil {
		sets = append(sets, "last_name = ?")
		args = append(args, *patch.LastName)
	}
	if patch.Phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, *patch.Phone)
	}
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *patch.Email)
	}
	if len(sets) == 0 {
		return r.Get(ctx, scope, id)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC())

	where, whereArgs := new(tenant.Query).Add("id = ?", id).Scope(scope, "workshop_id").Where()
	args = append(args, whereArgs...)

	query := "UPDATE customers SET " + strings.Join(sets, ", ") + " " + where //nolint:gosec // column list is fixed above
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("updating customer %d: %w", id, err)
	}
	if err := database.RequireRows(result, ErrCustomerNotFound); err != nil {
		return nil, err
	}
	return r.Get(ctx, scope, id)
}

// Delete removes a customer in scope together with their vehicles.
func (r *SQLRepository) Delete(ctx context.Context, scope tenant.Scope, id int64) error {
	where, args := new(tenant.Query).Add("id = ?", id).Scope(scope, "workshop_id").Where()
	result, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM customers "+where), args...)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return ErrCustomerInUse
		}
		return fmt.Errorf("deleting customer %d: %w", id, err)
	}
	if err := database.RequireRows(result, ErrCustomerNotFound); err != nil {
		return err
	}
	return nil
}

// ListVehicles returns the vehicles of a customer in scope.
func (r *SQLRepository) ListVehicles(ctx context.Context, scope tenant.Scope, customerID int64) ([]Vehicle, error) {
	if _, err := r.Get(ctx, scope, customerID); err != nil {
		return nil, err
	}

	vehicles := []Vehicle{}
	err := r.db.SelectContext(ctx, &vehicles, r.db.Rebind(vehicleSelect+" WHERE v.customer_id = ? ORDER BY v.id"), customerID)
	if err != nil {
		return nil, fmt.Errorf("listing vehicles of customer %d: %w", customerID, err)
	}
	return vehicles, nil
}

// GetVehicle returns one vehicle whose owner is in scope.
func (r *SQLRepository) GetVehicle(ctx context.Context, scope tenant.Scope, id int64) (*Vehicle, error) {
	return r.getVehicle(ctx, r.db, scope, id)
}

func (r *SQLRepository) getVehicle(ctx context.Context, q sqlx.QueryerContext, scope tenant.Scope, id int64) (*Vehicle, error) {
	where, args := new(tenant.Query).Add("v.id = ?", id).Scope(scope, "c.workshop_id").Where()

	var v Vehicle
	err := sqlx.GetContext(ctx, q, &v, r.db.Rebind(vehicleSelect+" "+where), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading vehicle %d: %w", id, err)
	}
	return &v, nil
}

// AddVehicle registers a vehicle for a customer in scope and fills in
// the catalog fields.
func (r *SQLRepository) AddVehicle(ctx context.Context, scope tenant.Scope, customerID int64, v *Vehicle) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := r.get(ctx, tx, scope, customerID); err != nil {
			return err
		}

		var id int64
		err := tx.QueryRowxContext(ctx, tx.Rebind(
			`INSERT INTO customer_cars (customer_id, car_id, license_plate, color, created_at)
			 VALUES (?, ?, ?, ?, ?) RETURNING id`),
			customerID, v.CarID, v.LicensePlate, v.Color, time.Now().UTC(),
		).Scan(&id)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return ErrUnknownCar
			}
			return fmt.Errorf("inserting vehicle: %w", err)
		}

		stored, err := r.getVehicle(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		*v = *stored
		return nil
	})
}

// UpdateVehicle applies the non-nil fields of patch to a vehicle in scope.
func (r *SQLRepository) UpdateVehicle(ctx context.Context, scope tenant.Scope, id int64, patch VehiclePatch) (*Vehicle, error) {
	var updated *Vehicle
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := r.getVehicle(ctx, tx, scope, id); err != nil {
			return err
		}

		var sets []string
		var args []any
		if patch.CarID != nil {
			sets = append(sets, "car_id = ?")
			args = append(args, *patch.CarID)
		}
		if patch.LicensePlate != nil {
			sets = append(sets, "license_plate = ?")
			args = append(args, *patch.LicensePlate)
		}
		if patch.Color != nil {
			sets = append(sets, "color = ?")
			args = append(args, *patch.Color)
		}
		if len(sets) > 0 {
			args = append(args, id)
			query := "UPDATE customer_cars SET " + strings.Join(sets, ", ") + " WHERE id = ?" //nolint:gosec // column list is fixed above
			if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
				if database.IsForeignKeyViolation(err) {
					return ErrUnknownCar
				}
				return fmt.Errorf("updating vehicle %d: %w", id, err)
			}
		}

		v, err := r.getVehicle(ctx, tx, scope, id)
		updated = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteVehicle removes a vehicle in scope. Vehicles with jobs are kept.
func (r *SQLRepository) DeleteVehicle(ctx context.Context, scope tenant.Scope, id int64) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := r.getVehicle(ctx, tx, scope, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM customer_cars WHERE id = ?"), id); err != nil {
			if database.IsForeignKeyViolation(err) {
				return ErrVehicleInUse
			}
			return fmt.Errorf("deleting vehicle %d: %w", id, err)
		}
		return nil
	})
}
