package worker

import "errors"

var (
	// ErrWorkerNotFound is returned when a worker does not exist in the
	// caller's scope.
	ErrWorkerNotFound = errors.New("worker not found")

	// ErrInvalidWorker is returned when worker fields fail validation.
	ErrInvalidWorker = errors.New("invalid worker")
)
