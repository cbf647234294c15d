package workshop

import "errors"

var (
	// ErrWorkshopNotFound is returned when a workshop ID does not exist.
	ErrWorkshopNotFound = errors.New("workshop not found")

	// ErrAlreadyAssigned is returned when a user who already has a
	// workshop tries to create another one.
	ErrAlreadyAssigned = errors.New("user already has a workshop")

	// ErrOwnerNotFound is returned when CreateForOwner names a missing user.
	ErrOwnerNotFound = errors.New("owner not found")

	// ErrReservedWorkshop is returned for writes to the placeholder workshop.
	ErrReservedWorkshop = errors.New("the unassigned workshop cannot be modified")

	// ErrWorkshopInUse is returned when deleting a workshop that still owns
	// users or records.
	ErrWorkshopInUse = errors.New("workshop still has users or records")

	// ErrInvalidWorkshop is returned when workshop fields fail validation.
	ErrInvalidWorkshop = errors.New("invalid workshop")
)
