// Package session runs the single event loop that owns the ranger
// connection.
//
// One goroutine (Run) consumes transport events, market-selection changes,
// and caller requests in arrival order. The supervisor, mailbox, sequencer,
// router and coordinator are only touched from that goroutine, so none of
// them need locks. Callers on other goroutines talk to the loop through
// Connect, Disconnect, the kline and user subscription methods, and the
// Selection store; they read health through Snapshot.
//
// The loop also carries the reconnect policy the supervisor leaves to its
// caller: after a connection ends while a connection is wanted, it waits a
// backoff-governed delay and dials again with the previous subscriptions.
package session
