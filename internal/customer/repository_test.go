package customer

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/taller-core/internal/infrastructure/database/dbtest"
	"github.com/nerrad567/taller-core/internal/tenant"
)

// Fixture IDs created by setup.
const (
	north  int64 = 2
	south  int64 = 3
	corsa  int64 = 1
	fiesta int64 = 2
)

func setup(t *testing.T) *SQLRepository {
	t.Helper()
	db := dbtest.Open(t)
	dbtest.Exec(t, db, "INSERT INTO workshops (name) VALUES ('North')")
	dbtest.Exec(t, db, "INSERT INTO workshops (name) VALUES ('South')")
	dbtest.Exec(t, db, "INSERT INTO cars (brand, model, year) VALUES ('Opel', 'Corsa', 2015)")
	dbtest.Exec(t, db, "INSERT INTO cars (brand, model, year) VALUES ('Ford', 'Fiesta', 2018)")
	return NewRepository(db)
}

func createCustomer(t *testing.T, repo *SQLRepository, workshopID int64, first string) *Customer {
	t.Helper()
	c := &Customer{WorkshopID: workshopID, FirstName: first, LastName: "Perez", Phone: "600000000"}
	if err := repo.Create(context.Background(), c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return c
}

func TestCustomer_TenantIsolation(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	mine := createCustomer(t, repo, north, "Ana")
	theirs := createCustomer(t, repo, south, "Luis")

	got, err := repo.Get(ctx, tenant.Workshop(north), mine.ID)
	if err != nil {
		t.Fatalf("Get(own) error = %v", err)
	}
	if got.FirstName != "Ana" {
		t.Errorf("Get(own) = %+v", got)
	}

	// Another tenant's row looks exactly like a missing row.
	if _, err := repo.Get(ctx, tenant.Workshop(north), theirs.ID); !errors.Is(err, ErrCustomerNotFound) {
		t.Errorf("Get(cross-tenant) error = %v, want ErrCustomerNotFound", err)
	}
	name := "Hacked"
	if _, err := repo.Update(ctx, tenant.Workshop(north), theirs.ID, Patch{FirstName: &name}); !errors.Is(err, ErrCustomerNotFound) {
		t.Errorf("Update(cross-tenant) error = %v, want ErrCustomerNotFound", err)
	}
	if err := repo.Delete(ctx, tenant.Workshop(north), theirs.ID); !errors.Is(err, ErrCustomerNotFound) {
		t.Errorf("Delete(cross-tenant) error = %v, want ErrCustomerNotFound", err)
	}

	list, err := repo.List(ctx, tenant.Workshop(north), tenant.Page{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != mine.ID {
		t.Errorf("List(north) = %+v, want only own customer", list)
	}

	all, err := repo.List(ctx, tenant.Global(), tenant.Page{})
	if err != nil {
		t.Fatalf("List(global) error = %v", err)
	}
	if len(all) != 2 {
		t.Errorf("List(global) = %d customers, want 2", len(all))
	}

	// Admin scope reaches any tenant.
	if _, err := repo.Get(ctx, tenant.Global(), theirs.ID); err != nil {
		t.Errorf("Get(global) error = %v", err)
	}
}

func TestCustomer_GetIsIdempotent(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	c := createCustomer(t, repo, north, "Ana")

	first, err := repo.Get(ctx, tenant.Workshop(north), c.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	second, err := repo.Get(ctx, tenant.Workshop(north), c.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if *first != *second {
		t.Errorf("repeated Get() differs: %+v vs %+v", first, second)
	}
}

func TestCustomer_UnknownWorkshop(t *testing.T) {
	repo := setup(t)
	c := &Customer{WorkshopID: 7, FirstName: "A", LastName: "B", Phone: "1"}
	if err := repo.Create(context.Background(), c); !errors.Is(err, tenant.ErrUnknownWorkshop) {
		t.Errorf("Create() error = %v, want ErrUnknownWorkshop", err)
	}
}

func TestCustomer_PartialUpdate(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	c := createCustomer(t, repo, north, "Ana")

	phone := "611111111"
	got, err := repo.Update(ctx, tenant.Workshop(north), c.ID, Patch{Phone: &phone})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Phone != phone {
		t.Errorf("Phone = %q, want %q", got.Phone, phone)
	}
	if got.FirstName != "Ana" || got.LastName != "Perez" {
		t.Errorf("Update() touched absent fields: %+v", got)
	}
}

func TestVehicles(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	scope := tenant.Workshop(north)
	owner := createCustomer(t, repo, north, "Ana")
	other := createCustomer(t, repo, south, "Luis")

	v := &Vehicle{CarID: corsa, LicensePlate: "1234ABC", Color: "red"}
	if err := repo.AddVehicle(ctx, scope, owner.ID, v); err != nil {
		t.Fatalf("AddVehicle() error = %v", err)
	}
	if v.ID == 0 || v.Brand != "Opel" || v.Model != "Corsa" || v.Year != 2015 || v.WorkshopID != north {
		t.Errorf("AddVehicle() = %+v", v)
	}

	if err := repo.AddVehicle(ctx, scope, other.ID, &Vehicle{CarID: corsa, LicensePlate: "X"}); !errors.Is(err, ErrCustomerNotFound) {
		t.Errorf("AddVehicle(cross-tenant) error = %v, want ErrCustomerNotFound", err)
	}
	if err := repo.AddVehicle(ctx, scope, owner.ID, &Vehicle{CarID: 99, LicensePlate: "X"}); !errors.Is(err, ErrUnknownCar) {
		t.Errorf("AddVehicle(unknown car) error = %v, want ErrUnknownCar", err)
	}

	list, err := repo.ListVehicles(ctx, scope, owner.ID)
	if err != nil {
		t.Fatalf("ListVehicles() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListVehicles() = %d, want 1", len(list))
	}
	if _, err := repo.ListVehicles(ctx, scope, other.ID); !errors.Is(err, ErrCustomerNotFound) {
		t.Errorf("ListVehicles(cross-tenant) error = %v, want ErrCustomerNotFound", err)
	}

	car := fiesta
	updated, err := repo.UpdateVehicle(ctx, scope, v.ID, VehiclePatch{CarID: &car})
	if err != nil {
		t.Fatalf("UpdateVehicle() error = %v", err)
	}
	if updated.Brand != "Ford" || updated.LicensePlate != "1234ABC" {
		t.Errorf("UpdateVehicle() = %+v", updated)
	}

	if _, err := repo.GetVehicle(ctx, tenant.Workshop(south), v.ID); !errors.Is(err, ErrVehicleNotFound) {
		t.Errorf("GetVehicle(cross-tenant) error = %v, want ErrVehicleNotFound", err)
	}
	if err := repo.DeleteVehicle(ctx, tenant.Workshop(south), v.ID); !errors.Is(err, ErrVehicleNotFound) {
		t.Errorf("DeleteVehicle(cross-tenant) error = %v, want ErrVehicleNotFound", err)
	}
	if err := repo.DeleteVehicle(ctx, scope, v.ID); err != nil {
		t.Errorf("DeleteVehicle() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		c       Customer
		wantErr bool
	}{
		{"valid", Customer{FirstName: "A", LastName: "B", Phone: "1", Email: "a@b.com"}, false},
		{"no email", Customer{FirstName: "A", LastName: "B", Phone: "1"}, false},
		{"missing phone", Customer{FirstName: "A", LastName: "B"}, true},
		{"bad email", Customer{FirstName: "A", LastName: "B", Phone: "1", Email: "nope"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.c)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	v := Vehicle{CarID: 1, LicensePlate: " ab12 cd "}
	if err := ValidateVehicle(&v); err != nil {
		t.Fatalf("ValidateVehicle() error = %v", err)
	}
	if v.LicensePlate != "AB12 CD" {
		t.Errorf("LicensePlate = %q, want normalised", v.LicensePlate)
	}
	if err := ValidateVehicle(&Vehicle{LicensePlate: "X"}); !errors.Is(err, ErrInvalidCustomer) {
		t.Errorf("ValidateVehicle(no car) error = %v, want ErrInvalidCustomer", err)
	}
}
