// Package model defines the typed payloads carried by ranger streams.
//
// Conventions:
//   - Prices and amounts: decimal.Decimal, decoded from either JSON strings or numbers
//   - Timestamps: int64 unix seconds unless a field name says otherwise
//   - Market ids: lowercase strings as sent by the backend (e.g. "btcusdt")
package model
