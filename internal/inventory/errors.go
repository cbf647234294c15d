package inventory

import "errors"

var (
	// ErrItemNotFound is returned when a workshop does not stock the part.
	ErrItemNotFound = errors.New("part not in inventory")

	// ErrAlreadyStocked is returned when adding a part the workshop
	// already stocks.
	ErrAlreadyStocked = errors.New("part already in inventory")

	// ErrUnknownPart is returned when the part is not in the catalog.
	ErrUnknownPart = errors.New("part does not exist")

	// ErrInsufficientStock is returned when a job asks for more units than
	// are on hand.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidItem is returned when quantities or prices are out of range.
	ErrInvalidItem = errors.New("invalid inventory item")
)
