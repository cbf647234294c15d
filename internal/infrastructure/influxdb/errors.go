package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	// The binary treats it as "run without activity metrics".
	ErrDisabled = errors.New("influxdb: activity metrics disabled")

	// ErrConnectionFailed wraps a failed ping or an unhealthy server at
	// startup.
	ErrConnectionFailed = errors.New("influxdb: server unreachable")

	// ErrNotConnected is returned by PublishEvent and HealthCheck once the
	// client has been closed.
	ErrNotConnected = errors.New("influxdb: client closed")
)
