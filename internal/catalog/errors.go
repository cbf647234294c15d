package catalog

import "errors"

var (
	// ErrCarNotFound is returned when a car model ID does not exist.
	ErrCarNotFound = errors.New("car not found")

	// ErrCarExists is returned when brand, model and year are already listed.
	ErrCarExists = errors.New("car model already exists")

	// ErrCarInUse is returned when deleting a car model that vehicles use.
	ErrCarInUse = errors.New("car model is used by vehicles")

	// ErrPartNotFound is returned when a part ID does not exist.
	ErrPartNotFound = errors.New("part not found")

	// ErrPartInUse is returned when deleting a part held in inventory or
	// used on jobs.
	ErrPartInUse = errors.New("part is stocked or used by jobs")

	// ErrInvalidCatalog is returned when car or part fields fail validation.
	ErrInvalidCatalog = errors.New("invalid catalog entry")
)
