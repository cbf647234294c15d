package customer

import "time"

// Customer is a person served by a workshop.
type Customer struct {
	ID         int64     `db:"id" json:"customer_id"`
	WorkshopID int64     `db:"workshop_id" json:"workshop_id"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	Phone      string    `db:"phone" json:"phone"`
	Email      string    `db:"email" json:"email"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Patch carries a partial customer update. Nil fields are left untouched.
type Patch struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
}

// Vehicle is a customer's car: a catalog model plus its plate and colour.
// Brand, Model and Year are read from the catalog.
type Vehicle struct {
	ID           int64     `db:"id" json:"vehicle_id"`
	CustomerID   int64     `db:"customer_id" json:"customer_id"`
	CarID        int64     `db:"car_id" json:"car_id"`
	LicensePlate string    `db:"license_plate" json:"license_plate"`
	Color        string    `db:"color" json:"color"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`

	WorkshopID int64  `db:"workshop_id" json:"workshop_id"`
	Brand      string `db:"brand" json:"brand"`
	Model      string `db:"model" json:"model"`
	Year       int    `db:"year" json:"year"`
}

// VehiclePatch carries a partial vehicle update.
type VehiclePatch struct {
	CarID        *int64  `json:"car_id"`
	LicensePlate *string `json:"license_plate"`
	Color        *string `json:"color"`
}
