package job

import "errors"

var (
	// ErrJobNotFound is returned when a job does not exist in the caller's
	// scope.
	ErrJobNotFound = errors.New("job not found")

	// ErrVehicleNotFound is returned when the vehicle does not belong to a
	// customer of the job's workshop.
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrWorkerNotFound is returned when the worker is not on the job's
	// workshop staff.
	ErrWorkerNotFound = errors.New("worker not found")

	// ErrPartNotStocked is returned when the job's workshop does not stock
	// the part.
	ErrPartNotStocked = errors.New("part is not stocked by this workshop")

	// ErrPartNotOnJob is returned when removing a part the job never used.
	ErrPartNotOnJob = errors.New("part is not used on this job")

	// ErrWorkerNotOnJob is returned when unassigning a worker who is not on
	// the job.
	ErrWorkerNotOnJob = errors.New("worker is not assigned to this job")

	// ErrInvalidJob is returned when job fields fail validation.
	ErrInvalidJob = errors.New("invalid job")
)
