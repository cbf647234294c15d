package customer

import (
	"fmt"
	"net/mail"
	"strings"
)

const (
	maxNameLength  = 100
	maxPhoneLength = 30
	maxPlateLength = 20
	maxColorLength = 30
)

// Validate normalises and checks a customer before insert.
func Validate(c *Customer) error {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))

	if err := required("first_name", c.FirstName, maxNameLength); err != nil {
		return err
	}
	if err := required("last_name", c.LastName, maxNameLength); err != nil {
		return err
	}
	if err := required("phone", c.Phone, maxPhoneLength); err != nil {
		return err
	}
	return validateEmail(c.Email)
}

// ValidatePatch normalises and checks the fields present in p.
func ValidatePatch(p *Patch) error {
	for _, f := range []struct {
		name  string
		value *string
		max   int
	}{
		{"first_name", p.FirstName, maxNameLength},
		{"last_name", p.LastName, maxNameLength},
		{"phone", p.Phone, maxPhoneLength},
	} {
		if f.value == nil {
			continue
		}
		*f.value = strings.TrimSpace(*f.value)
		if err := required(f.name, *f.value, f.max); err != nil {
			return err
		}
	}
	if p.Email != nil {
		*p.Email = strings.ToLower(strings.TrimSpace(*p.Email))
		return validateEmail(*p.Email)
	}
	return nil
}

// ValidateVehicle normalises and checks a vehicle before insert.
func ValidateVehicle(v *Vehicle) error {
	v.LicensePlate = strings.ToUpper(strings.TrimSpace(v.LicensePlate))
	v.Color = strings.TrimSpace(v.Color)
	if v.CarID <= 0 {
		return fmt.Errorf("%w: car_id is required", ErrInvalidCustomer)
	}
	if err := required("license_plate", v.LicensePlate, maxPlateLength); err != nil {
		return err
	}
	if len(v.Color) > maxColorLength {
		return fmt.Errorf("%w: color exceeds %d characters", ErrInvalidCustomer, maxColorLength)
	}
	return nil
}

// ValidateVehiclePatch normalises and checks the fields present in p.
func ValidateVehiclePatch(p *VehiclePatch) error {
	if p.CarID != nil && *p.CarID <= 0 {
		return fmt.Errorf("%w: car_id must be positive", ErrInvalidCustomer)
	}
	if p.LicensePlate != nil {
		*p.LicensePlate = strings.ToUpper(strings.TrimSpace(*p.LicensePlate))
		if err := required("license_plate", *p.LicensePlate, maxPlateLength); err != nil {
			return err
		}
	}
	if p.Color != nil {
		*p.Color = strings.TrimSpace(*p.Color)
		if len(*p.Color) > maxColorLength {
			return fmt.Errorf("%w: color exceeds %d characters", ErrInvalidCustomer, maxColorLength)
		}
	}
	return nil
}

func required(field, value string, maxLen int) error {
	if value == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidCustomer, field)
	}
	if len(value) > maxLen {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidCustomer, field, maxLen)
	}
	return nil
}

// validateEmail accepts "" since customer email is optional.
func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: email %q is not a valid address", ErrInvalidCustomer, email)
	}
	return nil
}
