package catalog

import (
	"fmt"
	"strings"
	"time"
)

const (
	maxFieldLength       = 100
	maxDescriptionLength = 1000
	minCarYear           = 1886
)

// maxCarYear allows next year's models.
func maxCarYear() int {
	return time.Now().Year() + 1
}

// ValidateCar normalises and checks a car model.
func ValidateCar(c *Car) error {
	c.Brand = strings.TrimSpace(c.Brand)
	c.Model = strings.TrimSpace(c.Model)
	if err := required("brand", c.Brand); err != nil {
		return err
	}
	if err := required("model", c.Model); err != nil {
		return err
	}
	return validateYear(c.Year)
}

// ValidateCarPatch normalises and checks the fields present in p.
func ValidateCarPatch(p *CarPatch) error {
	if p.Brand != nil {
		*p.Brand = strings.TrimSpace(*p.Brand)
		if err := required("brand", *p.Brand); err != nil {
			return err
		}
	}
	if p.Model != nil {
		*p.Model = strings.TrimSpace(*p.Model)
		if err := required("model", *p.Model); err != nil {
			return err
		}
	}
	if p.Year != nil {
		return validateYear(*p.Year)
	}
	return nil
}

// ValidatePart normalises and checks a part.
func ValidatePart(p *Part) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Brand = strings.TrimSpace(p.Brand)
	p.Category = strings.TrimSpace(p.Category)
	if err := required("name", p.Name); err != nil {
		return err
	}
	if err := required("brand", p.Brand); err != nil {
		return err
	}
	if len(p.Category) > maxFieldLength {
		return fmt.Errorf("%w: category exceeds %d characters", ErrInvalidCatalog, maxFieldLength)
	}
	if len(p.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidCatalog, maxDescriptionLength)
	}
	return nil
}

// ValidatePartPatch normalises and checks the fields present in p.
func ValidatePartPatch(p *PartPatch) error {
	if p.Name != nil {
		*p.Name = strings.TrimSpace(*p.Name)
		if err := required("name", *p.Name); err != nil {
			return err
		}
	}
	if p.Brand != nil {
		*p.Brand = strings.TrimSpace(*p.Brand)
		if err := required("brand", *p.Brand); err != nil {
			return err
		}
	}
	if p.Category != nil && len(*p.Category) > maxFieldLength {
		return fmt.Errorf("%w: category exceeds %d characters", ErrInvalidCatalog, maxFieldLength)
	}
	if p.Description != nil && len(*p.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidCatalog, maxDescriptionLength)
	}
	return nil
}

func required(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidCatalog, field)
	}
	if len(value) > maxFieldLength {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidCatalog, field, maxFieldLength)
	}
	return nil
}

func validateYear(year int) error {
	if year < minCarYear || year > maxCarYear() {
		return fmt.Errorf("%w: year must be between %d and %d", ErrInvalidCatalog, minCarYear, maxCarYear())
	}
	return nil
}
