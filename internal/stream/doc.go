// Package stream is the ranger wire codec.
//
// It builds subscription topic lists and the socket URI, encodes outbound
// subscribe/unsubscribe commands, classifies inbound routing keys, and
// normalizes ticker payloads. Everything here is pure: no I/O, no state
// beyond the SubscriptionSet value type.
package stream
