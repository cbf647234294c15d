package job

import "time"

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Job is a repair job. Vehicle fields are read from the customer's
// vehicle and the car catalog. Parts and Workers are only filled by Get.
type Job struct {
	ID                 int64     `db:"id" json:"job_id"`
	WorkshopID         int64     `db:"workshop_id" json:"workshop_id"`
	CustomerCarID      int64     `db:"customer_car_id" json:"customer_car_id"`
	Invoice            string    `db:"invoice" json:"invoice"`
	ServiceDescription string    `db:"service_description" json:"service_description"`
	StartDate          string    `db:"start_date" json:"start_date"`
	EndDate            string    `db:"end_date" json:"end_date"`
	Status             Status    `db:"status" json:"status"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`

	CustomerID   int64  `db:"customer_id" json:"customer_id"`
	LicensePlate string `db:"license_plate" json:"license_plate"`
	Brand        string `db:"brand" json:"brand"`
	Model        string `db:"model" json:"model"`
	Year         int    `db:"year" json:"year"`

	Parts   []PartUsage  `db:"-" json:"parts,omitempty"`
	Workers []Assignment `db:"-" json:"workers,omitempty"`
}

// PartUsage is a catalog part consumed by a job.
type PartUsage struct {
	PartID       int64  `db:"part_id" json:"part_id"`
	Name         string `db:"name" json:"name"`
	Brand        string `db:"brand" json:"brand"`
	QuantityUsed int    `db:"quantity_used" json:"quantity_used"`
}

// Assignment is a worker's role on a job.
type Assignment struct {
	WorkerID  int64  `db:"worker_id" json:"worker_id"`
	FirstName string `db:"first_name" json:"first_name"`
	LastName  string `db:"last_name" json:"last_name"`
	JobRole   string `db:"job_role" json:"job_role"`
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	CustomerCarID      *int64  `json:"customer_car_id"`
	Invoice            *string `json:"invoice"`
	ServiceDescription *string `json:"service_description"`
	StartDate          *string `json:"start_date"`
	EndDate            *string `json:"end_date"`
	Status             *Status `json:"status"`
}

// Filter narrows job listings. Zero values match everything.
type Filter struct {
	Status        Status
	CustomerCarID int64
}
