// Package events fans workshop activity out to live subscribers and
// external sinks.
//
// Every mutation of tenant data produces one Event. The Bus hands it to
// each registered Sink (the WebSocket hub, MQTT, InfluxDB). Delivery is
// best-effort: a failing sink is logged and never reaches the caller.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Type names an event, e.g. "job.updated".
type Type string

// Event types emitted by the API.
const (
	WorkshopCreated Type = "workshop.created"
	WorkshopUpdated Type = "workshop.updated"
	WorkshopDeleted Type = "workshop.deleted"

	CustomerCreated Type = "customer.created"
	CustomerUpdated Type = "customer.updated"
	CustomerDeleted Type = "customer.deleted"

	VehicleCreated Type = "vehicle.created"
	VehicleUpdated Type = "vehicle.updated"
	VehicleDeleted Type = "vehicle.deleted"

	WorkerCreated Type = "worker.created"
	WorkerUpdated Type = "worker.updated"
	WorkerDeleted Type = "worker.deleted"

	InventoryCreated Type = "inventory.created"
	InventoryUpdated Type = "inventory.updated"
	InventoryDeleted Type = "inventory.deleted"

	JobCreated          Type = "job.created"
	JobUpdated          Type = "job.updated"
	JobDeleted          Type = "job.deleted"
	JobPartAdded        Type = "job.part_added"
	JobPartRemoved      Type = "job.part_removed"
	JobWorkerAssigned   Type = "job.worker_assigned"
	JobWorkerUnassigned Type = "job.worker_unassigned"
)

// Event is one piece of workshop activity. Status is set for job events
// and carries the job's status after the change.
type Event struct {
	Type       Type      `json:"type"`
	WorkshopID int64     `json:"workshop_id"`
	Status     string    `json:"status,omitempty"`
	Payload    any       `json:"payload,omitempty"`
	Time       time.Time `json:"time"`
}

// New builds an event stamped with the current UTC time.
func New(t Type, workshopID int64, payload any) Event {
	return Event{Type: t, WorkshopID: workshopID, Payload: payload, Time: time.Now().UTC()}
}

// WithStatus returns a copy of ev carrying status.
func (ev Event) WithStatus(status string) Event {
	ev.Status = status
	return ev
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	PublishEvent(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

// PublishEvent calls f.
func (f SinkFunc) PublishEvent(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

type namedSink struct {
	name string
	sink Sink
}

// Bus delivers each event to every registered sink, in registration order.
type Bus struct {
	mu     sync.RWMutex
	sinks  []namedSink
	logger *slog.Logger
}

// NewBus creates an empty Bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{logger: logger}
}

// Register adds a sink under name, used in log lines.
func (b *Bus) Register(name string, sink Sink) {
	if sink == nil {
		return
	}
	b.mu.Lock()
	b.sinks = append(b.sinks, namedSink{name: name, sink: sink})
	b.mu.Unlock()
}

// Publish delivers ev to every sink. Sink errors and panics are logged
// and swallowed. A nil Bus drops the event.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	if b == nil {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	b.mu.RLock()
	sinks := make([]namedSink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()

	for _, s := range sinks {
		b.deliver(ctx, s, ev)
	}
}

func (b *Bus) deliver(ctx context.Context, s namedSink, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event sink panic recovered", "sink", s.name, "type", ev.Type, "panic", r)
		}
	}()
	if err := s.sink.PublishEvent(ctx, ev); err != nil {
		b.logger.Warn("event delivery failed",
			"sink", s.name,
			"type", ev.Type,
			"workshop_id", ev.WorkshopID,
			"error", err,
		)
	}
}
