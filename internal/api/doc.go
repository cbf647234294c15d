// Package api implements the HTTP REST API and WebSocket server for Taller Core.
//
// This package provides:
//   - Account endpoints: form login, signup, password change and session revocation
//   - Tenant-scoped CRUD for workshops, customers, vehicles, workers, inventory and jobs
//   - A shared catalog of car models and parts, edited by admins
//   - A WebSocket hub that streams workshop events to subscribed clients
//   - Middleware stack (request ID, logging, recovery, CORS, rate limiting)
//
// # Tenancy
//
// Every protected request is resolved to an auth.Identity by re-reading the
// user row, so role and workshop changes apply on the next request. Non-admin
// callers are confined to their own workshop: naming a workshop_id is refused
// with 403 and records of other workshops answer 404. Admins see every
// workshop and must name one when creating tenant data.
//
// # Security
//
// Access tokens are HS256 JWTs carrying the user's token_version. Changing a
// password or logging out everywhere bumps that version, which invalidates
// every earlier token and closes the user's open sockets. WebSocket connections
// use single-use tickets to keep tokens out of URLs.
//
// # Events and audit
//
// Mutations are written to the audit log asynchronously and published on an
// events.Bus. The hub is always one of its sinks; MQTT and InfluxDB sinks are
// registered by the binary when configured.
package api
