// Package metrics provides the OpenTelemetry instruments of the ranger
// client.
//
// Key metrics:
//   - inbound frames received, routed by kind, and dropped as malformed
//   - order-book sequence gaps and unsynced increments
//   - connection opens, closes, and transport errors
//   - outbound commands sent, queued, and dropped by the mailbox cap
//   - recorder rows written and batch failures
//
// Recorder methods are safe on a nil receiver so components can run without
// instrumentation in tests.
package metrics
