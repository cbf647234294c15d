package workshop

import (
	"fmt"
	"strings"
	"time"
)

const (
	maxNameLength    = 100
	maxAddressLength = 255
	hoursLayout      = "15:04"
)

// Validate normalises and checks a workshop before insert.
func Validate(w *Workshop) error {
	w.Name = strings.TrimSpace(w.Name)
	w.Address = strings.TrimSpace(w.Address)
	if err := validateName(w.Name); err != nil {
		return err
	}
	if len(w.Address) > maxAddressLength {
		return fmt.Errorf("%w: address exceeds %d characters", ErrInvalidWorkshop, maxAddressLength)
	}
	if err := validateHours("opening_hours", w.OpeningHours); err != nil {
		return err
	}
	return validateHours("closing_hours", w.ClosingHours)
}

// ValidatePatch normalises and checks the fields present in p.
func ValidatePatch(p *Patch) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if err := validateName(name); err != nil {
			return err
		}
		p.Name = &name
	}
	if p.Address != nil && len(*p.Address) > maxAddressLength {
		return fmt.Errorf("%w: address exceeds %d characters", ErrInvalidWorkshop, maxAddressLength)
	}
	if p.OpeningHours != nil {
		if err := validateHours("opening_hours", *p.OpeningHours); err != nil {
			return err
		}
	}
	if p.ClosingHours != nil {
		if err := validateHours("closing_hours", *p.ClosingHours); err != nil {
			return err
		}
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidWorkshop)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidWorkshop, maxNameLength)
	}
	return nil
}

// validateHours accepts "" or a 24h HH:MM time.
func validateHours(field, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(hoursLayout, value); err != nil {
		return fmt.Errorf("%w: %s must be HH:MM", ErrInvalidWorkshop, field)
	}
	return nil
}
