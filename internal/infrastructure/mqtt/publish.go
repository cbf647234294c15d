package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/taller-core/internal/events"
)

// Maximum payload size for MQTT messages (1MB).
const maxPayloadSize = 1 << 20

// Publish sends a message to topic and waits for the broker acknowledgement.
//
// QoS Levels:
//   - 0: At most once (fire and forget)
//   - 1: At least once (guaranteed delivery, may duplicate)
//   - 2: Exactly once (higher overhead)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishEvent publishes ev as JSON on its workshop event topic with the
// configured QoS. Events are never retained.
func (c *Client) PublishEvent(ctx context.Context, ev events.Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	payload, err := encodeEvent(ev)
	if err != nil {
		return err
	}

	return c.Publish(c.topics.WorkshopEvent(ev.WorkshopID, string(ev.Type)), payload, byte(c.cfg.QoS), false)
}

func encodeEvent(ev events.Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding event: %w", ErrPublishFailed, err)
	}
	return payload, nil
}
