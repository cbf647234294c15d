// Package influxdb records Taller workshop activity in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched non-blocking writes and health monitoring.
//
// # Measurements
//
//   - workshop_events: one point per event, tagged workshop_id and type
//   - job_status: one point per job event, tagged workshop_id and status
//
// Both carry a single integer field, count=1, so dashboards can sum them
// over any window.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	bus.Register("influxdb", client)
//
// # Error Handling
//
// Writes are batched according to config.yaml (batch_size, flush_interval).
// Batch errors are delivered to the SetOnError callback; connection and
// health check errors are returned directly.
package influxdb
