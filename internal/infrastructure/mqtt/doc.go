// Package mqtt publishes Taller workshop events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing events with the configured QoS
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Topics
//
// Every event lands on a per-workshop topic so integrations can subscribe to
// one tenant only:
//
//	{prefix}/workshop/{workshop_id}/event/{type}
//	{prefix}/system/status            (retained online/offline)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	bus.Register("mqtt", client)
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) whenever the broker is not on localhost
//   - Event payloads carry tenant data; restrict subscriptions with broker ACLs
package mqtt
