package workshop

import "time"

// Workshop is a tenant.
type Workshop struct {
	ID           int64     `db:"id" json:"workshop_id"`
	Name         string    `db:"name" json:"name"`
	Address      string    `db:"address" json:"address"`
	OpeningHours string    `db:"opening_hours" json:"opening_hours"`
	ClosingHours string    `db:"closing_hours" json:"closing_hours"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	Name         *string `json:"name"`
	Address      *string `json:"address"`
	OpeningHours *string `json:"opening_hours"`
	ClosingHours *string `json:"closing_hours"`
}
