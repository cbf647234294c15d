package customer

import "errors"

var (
	// ErrCustomerNotFound is returned when a customer does not exist in
	// the caller's scope.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrVehicleNotFound is returned when a vehicle does not exist in the
	// caller's scope.
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrUnknownCar is returned when a vehicle names a car model that is
	// not in the catalog.
	ErrUnknownCar = errors.New("car model does not exist")

	// ErrCustomerInUse is returned when deleting a customer whose vehicles
	// are referenced by jobs.
	ErrCustomerInUse = errors.New("customer has vehicles with jobs")

	// ErrVehicleInUse is returned when deleting a vehicle referenced by jobs.
	ErrVehicleInUse = errors.New("vehicle has jobs")

	// ErrInvalidCustomer is returned when customer or vehicle fields fail
	// validation.
	ErrInvalidCustomer = errors.New("invalid customer")
)
