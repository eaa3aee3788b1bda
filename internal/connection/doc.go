// Package connection owns the single ranger WebSocket.
//
// The package provides:
//   - Client, a gorilla/websocket transport with keepalive pings
//   - Supervisor, the idle/connecting/open/closing state machine that builds
//     the socket URI, issues the initial subscribe, and turns transport
//     callbacks into Events for the session loop
//   - Mailbox, the FIFO of outbound commands held while the socket is not
//     open and flushed at the open transition
//
// Supervisor and Mailbox are driven from one goroutine. Only the per-connection
// pump goroutines run concurrently, and they communicate through the Events
// channel.
package connection
