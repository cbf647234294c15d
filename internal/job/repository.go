package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nerrad567/taller-core/internal/infrastructure/database"
	"github.com/nerrad567/taller-core/internal/inventory"
	"github.com/nerrad567/taller-core/internal/tenant"
)

// Repository defines the interface for job persistence.
type Repository interface {
	List(ctx context.Context, scope tenant.Scope, filter Filter, page tenant.Page) ([]Job, error)
	Get(ctx context.Context, scope tenant.Scope, id int64) (*Job, error)
	Create(ctx context.Context, j *Job) error
	Update(ctx context.Context, scope tenant.Scope, id int64, patch Patch) (*Job, error)
	Delete(ctx context.Context, scope tenant.Scope, id int64) error

	AddPart(ctx context.Context, scope tenant.Scope, jobID, partID int64, quantity int) error
	RemovePart(ctx context.Context, scope tenant.Scope, jobID, partID int64) error
	AssignWorker(ctx context.Context, scope tenant.Scope, jobID, workerID int64, role string) error
	UnassignWorker(ctx context.Context, scope tenant.Scope, jobID, workerID int64) error
}

// SQLRepository implements Repository with sqlx.
type SQLRepository struct {
	db  *database.DB
	now func() time.Time
}

// NewRepository creates a new SQL-backed job repository.
func NewRepository(db *database.DB) *SQLRepository {
	return &SQLRepository{db: db, now: time.Now}
}

const jobSelect = `SELECT j.id, j.workshop_id, j.customer_car_id, j.invoice, j.service_description,
	j.start_date, j.end_date, j.status, j.created_at, j.updated_at,
	v.customer_id, v.license_plate, k.brand, k.model, k.year
	FROM jobs j
	JOIN customer_cars v ON v.id = j.customer_car_id
	JOIN cars k ON k.id = v.car_id`

// List returns jobs in scope, newest first.
func (r *SQLRepository) List(ctx context.Context, scope tenant.Scope, filter Filter, page tenant.Page) ([]Job, error) {
	page = page.Normalize()
	q := new(tenant.Query).Scope(scope, "j.workshop_id")
	if filter.Status != "" {
		q.Add("j.status = ?", string(filter.Status))
	}
	if filter.CustomerCarID != 0 {
		q.Add("j.customer_car_id = ?", filter.CustomerCarID)
	}
	where, args := q.Where()
	args = append(args, page.Limit, page.Skip)

	jobs := []Job{}
	query := jobSelect + " " + where + " ORDER BY j.start_date DESC, j.id DESC LIMIT ? OFFSET ?" //nolint:gosec // WHERE built from parameterised conditions
	if err := r.db.SelectContext(ctx, &jobs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

// Get returns a job in scope with its parts and workers.
func (r *SQLRepository) Get(ctx context.Context, scope tenant.Scope, id int64) (*Job, error) {
	j, err := r.load(ctx, r.db, scope, id)
	if err != nil {
		return nil, err
	}

	j.Parts = []PartUsage{}
	err = r.db.SelectContext(ctx, &j.Parts, r.db.Rebind(
		`SELECT jp.part_id, p.name, p.brand, jp.quantity_used FROM job_parts jp
		 JOIN parts p ON p.id = jp.part_id WHERE jp.job_id = ? ORDER BY p.name`), id)
	if err != nil {
		return nil, fmt.Errorf("loading parts of job %d: %w", id, err)
	}

	j.Workers = []Assignment{}
	err = r.db.SelectContext(ctx, &j.Workers, r.db.Rebind(
		`SELECT jw.worker_id, w.first_name, w.last_name, jw.job_role FROM job_workers jw
		 JOIN workers w ON w.id = jw.worker_id WHERE jw.job_id = ? ORDER BY w.id`), id)
	if err != nil {
		return nil, fmt.Errorf("loading workers of job %d: %w", id, err)
	}
	return j, nil
}

// load reads the job row without parts or workers.
func (r *SQLRepository) load(ctx context.Context, q sqlx.QueryerContext, scope tenant.Scope, id int64) (*Job, error) {
	where, args := new(tenant.Query).Add("j.id = ?", id).Scope(scope, "j.workshop_id").Where()

	var j Job
	err := sqlx.GetContext(ctx, q, &j, r.db.Rebind(jobSelect+" "+where), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading job %d: %w", id, err)
	}
	return &j, nil
}

// checkVehicle fails with ErrVehicleNotFound unless the vehicle belongs to
// a customer of workshopID.
func checkVehicle(ctx context.Context, tx *sqlx.Tx, vehicleID, workshopID int64) error {
	var n int
	err := tx.GetContext(ctx, &n, tx.Rebind(
		`SELECT COUNT(*) FROM customer_cars v JOIN customers c ON c.id = v.customer_id
		 WHERE v.id = ? AND c.workshop_id = ?`), vehicleID, workshopID)
	if err != nil {
		return fmt.Errorf("checking vehicle %d: %w", vehicleID, err)
	}
	if n == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

// Create inserts j after checking its vehicle belongs to j.WorkshopID.
// The vehicle fields of j are filled from the stored row.
func (r *SQLRepository) Create(ctx context.Context, j *Job) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := checkVehicle(ctx, tx, j.CustomerCarID, j.WorkshopID); err != nil {
			return err
		}

		now := r.now().UTC()
		var id int64
		err := tx.QueryRowxContext(ctx, tx.Rebind(
			`INSERT INTO jobs (workshop_id, customer_car_id, invoice, service_description, start_date, end_date, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			j.WorkshopID, j.CustomerCarID, j.Invoice, j.ServiceDescription,
			j.StartDate, j.EndDate, string(j.Status), now, now,
		).Scan(&id)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return tenant.ErrUnknownWorkshop
			}
			return fmt.Errorf("inserting job: %w", err)
		}

		stored, err := r.load(ctx, tx, tenant.Global(), id)
		if err != nil {
			return err
		}
		*j = *stored
		return nil
	})
}

// Update applies patch to a job in scope. A new vehicle must belong to the
// job's workshop.
func (r *SQLRepository) Update(ctx context.Context, scope tenant.Scope, id int64, patch Patch) (*Job, error) {
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		j, err := r.load(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if patch.CustomerCarID != nil && *patch.CustomerCarID != j.CustomerCarID {
			if err := checkVehicle(ctx, tx, *patch.CustomerCarID, j.WorkshopID); err != nil {
				return err
			}
		}
		now := r.now().UTC()
		if err := Apply(j, patch, now); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(
			`UPDATE jobs SET customer_car_id = ?, invoice = ?, service_description = ?,
			 start_date = ?, end_date = ?, status = ?, updated_at = ? WHERE id = ?`),
			j.CustomerCarID, j.Invoice, j.ServiceDescription,
			j.StartDate, j.EndDate, string(j.Status), now, id,
		)
		if err != nil {
			return fmt.Errorf("updating job %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, scope, id)
}

// Delete removes a job in scope and returns its parts to stock.
func (r *SQLRepository) Delete(ctx context.Context, scope tenant.Scope, id int64) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		j, err := r.load(ctx, tx, scope, id)
		if err != nil {
			return err
		}

		var used []PartUsage
		if err := tx.SelectContext(ctx, &used, tx.Rebind(
			"SELECT part_id, quantity_used FROM job_parts WHERE job_id = ?"), id); err != nil {
			return fmt.Errorf("loading parts of job %d: %w", id, err)
		}
		for _, u := range used {
			if err := inventory.Restock(ctx, tx, j.WorkshopID, u.PartID, u.QuantityUsed); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM jobs WHERE id = ?"), id); err != nil {
			return fmt.Errorf("deleting job %d: %w", id, err)
		}
		return nil
	})
}

// AddPart takes quantity units of a part from the workshop's stock and
// records them on the job. Adding a part already on the job increases
// its quantity.
func (r *SQLRepository) AddPart(ctx context.Context, scope tenant.Scope, jobID, partID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidJob)
	}
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		j, err := r.load(ctx, tx, scope, jobID)
		if err != nil {
			return err
		}

		if err := inventory.Consume(ctx, tx, j.WorkshopID, partID, quantity); err != nil {
			if errors.Is(err, inventory.ErrItemNotFound) {
				return ErrPartNotStocked
			}
			return err
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO job_parts (job_id, part_id, quantity_used) VALUES (?, ?, ?)
			 ON CONFLICT (job_id, part_id) DO UPDATE SET quantity_used = job_parts.quantity_used + excluded.quantity_used`),
			jobID, partID, quantity,
		)
		if err != nil {
			return fmt.Errorf("recording part %d on job %d: %w", partID, jobID, err)
		}
		return touch(ctx, tx, jobID, r.now())
	})
}

// RemovePart takes a part off the job and returns it to stock.
func (r *SQLRepository) RemovePart(ctx context.Context, scope tenant.Scope, jobID, partID int64) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		j, err := r.load(ctx, tx, scope, jobID)
		if err != nil {
			return err
		}

		var used int
		err = tx.GetContext(ctx, &used, tx.Rebind(
			"SELECT quantity_used FROM job_parts WHERE job_id = ? AND part_id = ?"), jobID, partID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPartNotOnJob
		}
		if err != nil {
			return fmt.Errorf("loading part %d on job %d: %w", partID, jobID, err)
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(
			"DELETE FROM job_parts WHERE job_id = ? AND part_id = ?"), jobID, partID); err != nil {
			return fmt.Errorf("removing part %d from job %d: %w", partID, jobID, err)
		}
		if err := inventory.Restock(ctx, tx, j.WorkshopID, partID, used); err != nil {
			return err
		}
		return touch(ctx, tx, jobID, r.now())
	})
}

// AssignWorker puts a worker of the job's workshop on the job, or changes
// their role if already assigned.
func (r *SQLRepository) AssignWorker(ctx context.Context, scope tenant.Scope, jobID, workerID int64, role string) error {
	role, err := ValidateRole(role)
	if err != nil {
		return err
	}
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		j, err := r.load(ctx, tx, scope, jobID)
		if err != nil {
			return err
		}

		var n int
		if err := tx.GetContext(ctx, &n, tx.Rebind(
			"SELECT COUNT(*) FROM workers WHERE id = ? AND workshop_id = ?"), workerID, j.WorkshopID); err != nil {
			return fmt.Errorf("checking worker %d: %w", workerID, err)
		}
		if n == 0 {
			return ErrWorkerNotFound
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(
			`INSERT INTO job_workers (job_id, worker_id, job_role) VALUES (?, ?, ?)
			 ON CONFLICT (job_id, worker_id) DO UPDATE SET job_role = excluded.job_role`),
			jobID, workerID, role,
		)
		if err != nil {
			return fmt.Errorf("assigning worker %d to job %d: %w", workerID, jobID, err)
		}
		return touch(ctx, tx, jobID, r.now())
	})
}

// UnassignWorker takes a worker off a job in scope.
func (r *SQLRepository) UnassignWorker(ctx context.Context, scope tenant.Scope, jobID, workerID int64) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := r.load(ctx, tx, scope, jobID); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, tx.Rebind(
			"DELETE FROM job_workers WHERE job_id = ? AND worker_id = ?"), jobID, workerID)
		if err != nil {
			return fmt.Errorf("unassigning worker %d from job %d: %w", workerID, jobID, err)
		}
		if err := database.RequireRows(result, ErrWorkerNotOnJob); err != nil {
			return err
		}
		return touch(ctx, tx, jobID, r.now())
	})
}

func touch(ctx context.Context, tx *sqlx.Tx, jobID int64, now time.Time) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind("UPDATE jobs SET updated_at = ? WHERE id = ?"), now.UTC(), jobID); err != nil {
		return fmt.Errorf("touching job %d: %w", jobID, err)
	}
	return nil
}
