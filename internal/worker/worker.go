// Package worker stores the mechanics and staff employed by a workshop.
package worker

import (
	"fmt"
	"strings"
	"time"
)

// Worker is a member of a workshop's staff. Workers are records managed
// by the workshop, not login accounts.
type Worker struct {
	ID         int64     `db:"id" json:"worker_id"`
	WorkshopID int64     `db:"workshop_id" json:"workshop_id"`
	FirstName  string    `db:"first_name" json:"first_name"`
	LastName   string    `db:"last_name" json:"last_name"`
	Phone      string    `db:"phone" json:"phone"`
	Position   string    `db:"position" json:"position"`
	Nickname   string    `db:"nickname" json:"nickname"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Position  *string `json:"position"`
	Nickname  *string `json:"nickname"`
}

const maxFieldLength = 100

// Validate normalises and checks a worker before insert.
func Validate(w *Worker) error {
	w.FirstName = strings.TrimSpace(w.FirstName)
	w.LastName = strings.TrimSpace(w.LastName)
	w.Position = strings.TrimSpace(w.Position)
	w.Phone = strings.TrimSpace(w.Phone)
	w.Nickname = strings.TrimSpace(w.Nickname)

	for _, f := range []struct{ name, value string }{
		{"first_name", w.FirstName},
		{"last_name", w.LastName},
		{"position", w.Position},
	} {
		if f.value == "" {
			return fmt.Errorf("%w: %s cannot be empty", ErrInvalidWorker, f.name)
		}
	}
	return checkLengths(w.FirstName, w.LastName, w.Position, w.Phone, w.Nickname)
}

// ValidatePatch normalises and checks the fields present in p.
func ValidatePatch(p *Patch) error {
	for _, f := range []struct {
		name     string
		value    *string
		required bool
	}{
		{"first_name", p.FirstName, true},
		{"last_name", p.LastName, true},
		{"position", p.Position, true},
		{"phone", p.Phone, false},
		{"nickname", p.Nickname, false},
	} {
		if f.value == nil {
			continue
		}
		*f.value = strings.TrimSpace(*f.value)
		if f.required && *f.value == "" {
			return fmt.Errorf("%w: %s cannot be empty", ErrInvalidWorker, f.name)
		}
		if err := checkLengths(*f.value); err != nil {
			return err
		}
	}
	return nil
}

func checkLengths(values ...string) error {
	for _, v := range values {
		if len(v) > maxFieldLength {
			return fmt.Errorf("%w: fields must be at most %d characters", ErrInvalidWorker, maxFieldLength)
		}
	}
	return nil
}
