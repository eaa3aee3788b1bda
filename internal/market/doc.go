// Package market tracks the selected market and turns selection changes into
// subscription commands.
//
// Selection is the market-selection store: it holds the current market id,
// the set of known markets, and notifies a single consumer of changes.
// Coordinator remembers the previously selected market and, on every change,
// emits an unsubscribe for the old market's topics followed by a subscribe
// for the new one's. Emitting in that order keeps the server-side topic set
// from accumulating markets the client no longer displays.
package market
