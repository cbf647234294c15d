package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/taller-core/internal/infrastructure/database"
	"github.com/nerrad567/taller-core/internal/infrastructure/database/dbtest"
	"github.com/nerrad567/taller-core/internal/inventory"
	"github.com/nerrad567/taller-core/internal/tenant"
)

// Fixture: workshop 2 (north) and 3 (south), one customer and vehicle
// each, part 1 stocked 5 units in north only, worker 1 in north and
// worker 2 in south.
const (
	north        int64 = 2
	south        int64 = 3
	northVehicle int64 = 1
	southVehicle int64 = 2
	oilFilter    int64 = 1
	northWorker  int64 = 1
	southWorker  int64 = 2
)

func setup(t *testing.T) (*SQLRepository, *database.DB) {
	t.Helper()
	db := dbtest.Open(t)
	for _, stmt := range []string{
		"INSERT INTO workshops (name) VALUES ('North')",
		"INSERT INTO workshops (name) VALUES ('South')",
		"INSERT INTO cars (brand, model, year) VALUES ('Opel', 'Corsa', 2015)",
		`INSERT INTO customers (workshop_id, first_name, last_name, phone, created_at, updated_at)
		 VALUES (2, 'Ana', 'Perez', '1', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		`INSERT INTO customers (workshop_id, first_name, last_name, phone, created_at, updated_at)
		 VALUES (3, 'Luis', 'Gomez', '2', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		"INSERT INTO customer_cars (customer_id, car_id, license_plate, created_at) VALUES (1, 1, '1111AAA', CURRENT_TIMESTAMP)",
		"INSERT INTO customer_cars (customer_id, car_id, license_plate, created_at) VALUES (2, 1, '2222BBB', CURRENT_TIMESTAMP)",
		"INSERT INTO parts (name, brand) VALUES ('Oil filter', 'Bosch')",
		`INSERT INTO part_inventory (workshop_id, part_id, quantity, purchase_price, sale_price, updated_at)
		 VALUES (2, 1, 5, 400, 900, CURRENT_TIMESTAMP)`,
		`INSERT INTO workers (workshop_id, first_name, last_name, position, created_at, updated_at)
		 VALUES (2, 'Paco', 'Gil', 'mechanic', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		`INSERT INTO workers (workshop_id, first_name, last_name, position, created_at, updated_at)
		 VALUES (3, 'Eva', 'Ruiz', 'painter', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
	} {
		dbtest.Exec(t, db, stmt)
	}
	return NewRepository(db), db
}

func newJob(t *testing.T, repo *SQLRepository, workshopID, vehicleID int64) *Job {
	t.Helper()
	j := &Job{WorkshopID: workshopID, CustomerCarID: vehicleID, Invoice: "INV-1", StartDate: "2026-03-01", Status: StatusPending}
	if err := repo.Create(context.Background(), j); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return j
}

func stockOf(t *testing.T, db *database.DB, workshopID, partID int64) int {
	t.Helper()
	it, err := inventory.NewRepository(db).Get(context.Background(), workshopID, partID)
	if err != nil {
		t.Fatalf("inventory Get() error = %v", err)
	}
	return it.Quantity
}

func TestCreate_VehicleMustBelongToWorkshop(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()

	j := newJob(t, repo, north, northVehicle)
	if j.LicensePlate != "1111AAA" || j.Brand != "Opel" || j.CustomerID != 1 {
		t.Errorf("Create() vehicle fields = %+v", j)
	}

	other := &Job{WorkshopID: north, CustomerCarID: southVehicle, Invoice: "INV-2", StartDate: "2026-03-01", Status: StatusPending}
	if err := repo.Create(ctx, other); !errors.Is(err, ErrVehicleNotFound) {
		t.Errorf("Create(foreign vehicle) error = %v, want ErrVehicleNotFound", err)
	}
}

func TestTenantIsolation(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()
	theirs := newJob(t, repo, south, southVehicle)
	newJob(t, repo, north, northVehicle)

	scope := tenant.Workshop(north)
	if _, err := repo.Get(ctx, scope, theirs.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Get(cross-tenant) error = %v, want ErrJobNotFound", err)
	}
	status := StatusCompleted
	if _, err := repo.Update(ctx, scope, theirs.ID, Patch{Status: &status}); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Update(cross-tenant) error = %v, want ErrJobNotFound", err)
	}
	if err := repo.Delete(ctx, scope, theirs.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Delete(cross-tenant) error = %v, want ErrJobNotFound", err)
	}
	if err := repo.AddPart(ctx, scope, theirs.ID, oilFilter, 1); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("AddPart(cross-tenant) error = %v, want ErrJobNotFound", err)
	}

	list, err := repo.List(ctx, scope, Filter{}, tenant.Page{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].WorkshopID != north {
		t.Errorf("List(north) = %+v", list)
	}
	all, _ := repo.List(ctx, tenant.Global(), Filter{}, tenant.Page{})
	if len(all) != 2 {
		t.Errorf("List(global) = %d jobs, want 2", len(all))
	}
}

func TestUpdate(t *testing.T) {
	repo, _ := setup(t)
	repo.now = func() time.Time { return time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()
	scope := tenant.Workshop(north)
	j := newJob(t, repo, north, northVehicle)

	desc := "Oil change"
	got, err := repo.Update(ctx, scope, j.ID, Patch{ServiceDescription: &desc})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.ServiceDescription != desc || got.Invoice != "INV-1" || got.Status != StatusPending {
		t.Errorf("Update() = %+v", got)
	}

	done := StatusCompleted
	got, err = repo.Update(ctx, scope, j.ID, Patch{Status: &done})
	if err != nil {
		t.Fatalf("Update(completed) error = %v", err)
	}
	if got.EndDate != "2026-03-05" {
		t.Errorf("EndDate = %q, want completion date stamped", got.EndDate)
	}

	early := "2026-02-01"
	if _, err := repo.Update(ctx, scope, j.ID, Patch{EndDate: &early}); !errors.Is(err, ErrInvalidJob) {
		t.Errorf("Update(end before start) error = %v, want ErrInvalidJob", err)
	}

	foreign := southVehicle
	if _, err := repo.Update(ctx, scope, j.ID, Patch{CustomerCarID: &foreign}); !errors.Is(err, ErrVehicleNotFound) {
		t.Errorf("Update(foreign vehicle) error = %v, want ErrVehicleNotFound", err)
	}
}

func TestParts_ConsumeAndRestoreStock(t *testing.T) {
	repo, db := setup(t)
	ctx := context.Background()
	scope := tenant.Workshop(north)
	j := newJob(t, repo, north, northVehicle)

	if err := repo.AddPart(ctx, scope, j.ID, oilFilter, 2); err != nil {
		t.Fatalf("AddPart() error = %v", err)
	}
	if err := repo.AddPart(ctx, scope, j.ID, oilFilter, 1); err != nil {
		t.Fatalf("AddPart(again) error = %v", err)
	}
	if got := stockOf(t, db, north, oilFilter); got != 2 {
		t.Errorf("stock after adding 3 = %d, want 2", got)
	}

	if err := repo.AddPart(ctx, scope, j.ID, oilFilter, 5); !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Errorf("AddPart(too many) error = %v, want ErrInsufficientStock", err)
	}
	if got := stockOf(t, db, north, oilFilter); got != 2 {
		t.Errorf("stock after failed add = %d, want unchanged 2", got)
	}

	got, err := repo.Get(ctx, scope, j.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Parts) != 1 || got.Parts[0].QuantityUsed != 3 || got.Parts[0].Name != "Oil filter" {
		t.Errorf("Parts = %+v", got.Parts)
	}

	if err := repo.RemovePart(ctx, scope, j.ID, oilFilter); err != nil {
		t.Fatalf("RemovePart() error = %v", err)
	}
	if got := stockOf(t, db, north, oilFilter); got != 5 {
		t.Errorf("stock after removal = %d, want 5", got)
	}
	if err := repo.RemovePart(ctx, scope, j.ID, oilFilter); !errors.Is(err, ErrPartNotOnJob) {
		t.Errorf("RemovePart(again) error = %v, want ErrPartNotOnJob", err)
	}
}

func TestParts_NotStocked(t *testing.T) {
	repo, _ := setup(t)
	j := newJob(t, repo, south, southVehicle)

	// South has no oil filters.
	if err := repo.AddPart(context.Background(), tenant.Workshop(south), j.ID, oilFilter, 1); !errors.Is(err, ErrPartNotStocked) {
		t.Errorf("AddPart() error = %v, want ErrPartNotStocked", err)
	}
	if err := repo.AddPart(context.Background(), tenant.Workshop(south), j.ID, oilFilter, 0); !errors.Is(err, ErrInvalidJob) {
		t.Errorf("AddPart(zero) error = %v, want ErrInvalidJob", err)
	}
}

func TestDelete_RestoresStock(t *testing.T) {
	repo, db := setup(t)
	ctx := context.Background()
	scope := tenant.Workshop(north)
	j := newJob(t, repo, north, northVehicle)

	if err := repo.AddPart(ctx, scope, j.ID, oilFilter, 4); err != nil {
		t.Fatalf("AddPart() error = %v", err)
	}
	if err := repo.Delete(ctx, scope, j.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got := stockOf(t, db, north, oilFilter); got != 5 {
		t.Errorf("stock after job delete = %d, want 5", got)
	}
	if _, err := repo.Get(ctx, scope, j.ID); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrJobNotFound", err)
	}
}

func TestWorkers(t *testing.T) {
	repo, _ := setup(t)
	ctx := context.Background()
	scope := tenant.Workshop(north)
	j := newJob(t, repo, north, northVehicle)

	if err := repo.AssignWorker(ctx, scope, j.ID, southWorker, "helper"); !errors.Is(err, ErrWorkerNotFound) {
		t.Errorf("AssignWorker(foreign worker) error = %v, want ErrWorkerNotFound", err)
	}
	if err := repo.AssignWorker(ctx, scope, j.ID, northWorker, " "); !errors.Is(err, ErrInvalidJob) {
		t.Errorf("AssignWorker(blank role) error = %v, want ErrInvalidJob", err)
	}
	if err := repo.AssignWorker(ctx, scope, j.ID, northWorker, "lead"); err != nil {
		t.Fatalf("AssignWorker() error = %v", err)
	}
	if err := repo.AssignWorker(ctx, scope, j.ID, northWorker, "helper"); err != nil {
		t.Fatalf("AssignWorker(role change) error = %v", err)
	}

	got, err := repo.Get(ctx, scope, j.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Workers) != 1 || got.Workers[0].JobRole != "helper" || got.Workers[0].FirstName != "Paco" {
		t.Errorf("Workers = %+v", got.Workers)
	}

	if err := repo.UnassignWorker(ctx, scope, j.ID, northWorker); err != nil {
		t.Errorf("UnassignWorker() error = %v", err)
	}
	if err := repo.UnassignWorker(ctx, scope, j.ID, northWorker); !errors.Is(err, ErrWorkerNotOnJob) {
		t.Errorf("UnassignWorker(again) error = %v, want ErrWorkerNotOnJob", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		job     Job
		wantErr bool
	}{
		{"valid", Job{CustomerCarID: 1, Invoice: "A", StartDate: "2026-01-01"}, false},
		{"with end", Job{CustomerCarID: 1, Invoice: "A", StartDate: "2026-01-01", EndDate: "2026-01-02"}, false},
		{"no vehicle", Job{Invoice: "A", StartDate: "2026-01-01"}, true},
		{"no invoice", Job{CustomerCarID: 1, StartDate: "2026-01-01"}, true},
		{"bad date", Job{CustomerCarID: 1, Invoice: "A", StartDate: "01/01/2026"}, true},
		{"end before start", Job{CustomerCarID: 1, Invoice: "A", StartDate: "2026-01-02", EndDate: "2026-01-01"}, true},
		{"bad status", Job{CustomerCarID: 1, Invoice: "A", StartDate: "2026-01-01", Status: "done"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.job)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApply_CompletionStampsEndDate(t *testing.T) {
	today := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	completed := StatusCompleted

	tests := []struct {
		name    string
		start   string
		end     string
		wantEnd string
	}{
		{"started earlier", "2026-03-01", "", "2026-03-10"},
		{"started today", "2026-03-10", "", "2026-03-10"},
		{"scheduled ahead", "2026-04-20", "", "2026-04-20"},
		{"explicit end kept", "2026-03-01", "2026-03-05", "2026-03-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := Job{CustomerCarID: 1, Invoice: "A", StartDate: tt.start, EndDate: tt.end, Status: StatusInProgress}
			if err := Apply(&j, Patch{Status: &completed}, today); err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if j.EndDate != tt.wantEnd {
				t.Errorf("EndDate = %q, want %q", j.EndDate, tt.wantEnd)
			}
		})
	}
}
