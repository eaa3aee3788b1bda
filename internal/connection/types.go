package connection

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrTimeout         = errors.New("operation timeout")
	ErrAlreadyClosed   = errors.New("already closed")
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// State is the supervisor lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// EventType identifies a transport callback.
type EventType int

const (
	EventOpened EventType = iota
	EventMessage
	EventError
	EventClosed
)

func (t EventType) String() string {
	switch t {
	case EventOpened:
		return "opened"
	case EventMessage:
		return "message"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Event is a transport callback delivered to the session loop. ConnID ties
// the event to the connection that produced it; events of a previous
// connection are ignored by Handle.
type Event struct {
	Type       EventType
	ConnID     uuid.UUID
	Data       []byte
	ReceivedAt time.Time
	Err        error
}

// Transition is the result of Handle.
type Transition int

const (
	// TransitionNone means the event changed nothing the caller acts on.
	TransitionNone Transition = iota
	// TransitionOpened means the socket is open and the mailbox was flushed.
	TransitionOpened
	// TransitionData means Event.Data is a frame to route.
	TransitionData
	// TransitionClosed means the connection is gone and state was cleared.
	TransitionClosed
)

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // Full socket URI including stream parameters
	Token            string        // Bearer token for private connections (empty = none)
	HandshakeTimeout time.Duration // Dial handshake limit
	PingInterval     time.Duration // Interval between keepalive pings
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      90 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1024,
	}
}

// SupervisorConfig configures the Supervisor.
type SupervisorConfig struct {
	BaseURL      string       // ranger base URL, e.g. wss://host/api/v2/ranger
	Token        string       // session token attached to outbound commands
	Client       ClientConfig // URL is filled per connection
	EventBuffer  int          // Events channel capacity
	MaxPending   int          // Mailbox cap; 0 = unbounded
	ControlRate  float64      // Outbound commands per second; 0 = unlimited
	ControlBurst int
}

// DefaultSupervisorConfig returns sensible defaults.
func DefaultSupervisorConfig() SupervisorConfig {
	return SupervisorConfig{
		Client:       DefaultClientConfig(),
		EventBuffer:  4096,
		MaxPending:   256,
		ControlRate:  20,
		ControlBurst: 10,
	}
}
