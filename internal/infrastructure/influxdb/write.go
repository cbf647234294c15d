package influxdb

import (
	"context"
	"strconv"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/taller-core/internal/events"
)

// Measurement names.
const (
	MeasurementWorkshopEvents = "workshop_events"
	MeasurementJobStatus      = "job_status"
)

// PublishEvent queues the points for ev. The write is non-blocking; batch
// failures surface through the SetOnError callback.
func (c *Client) PublishEvent(ctx context.Context, ev events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	for _, p := range eventPoints(ev) {
		c.writeAPI.WritePoint(p)
	}
	return nil
}

// eventPoints converts ev into one workshop_events point, plus a
// job_status point when the event carries a job status.
func eventPoints(ev events.Event) []*write.Point {
	workshop := strconv.FormatInt(ev.WorkshopID, 10)

	points := []*write.Point{
		write.NewPoint(
			MeasurementWorkshopEvents,
			map[string]string{
				"workshop_id": workshop,
				"type":        string(ev.Type),
			},
			map[string]interface{}{
				"count": 1,
			},
			ev.Time,
		),
	}

	if ev.Status != "" {
		points = append(points, write.NewPoint(
			MeasurementJobStatus,
			map[string]string{
				"workshop_id": workshop,
				"status":      ev.Status,
			},
			map[string]interface{}{
				"count": 1,
			},
			ev.Time,
		))
	}

	return points
}
