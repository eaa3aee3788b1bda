package connection

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/rickgao/ranger/internal/errs"
	"github.com/rickgao/ranger/internal/metrics"
	"github.com/rickgao/ranger/internal/stream"
)

// Supervisor owns the lifecycle of the single ranger socket.
//
// All methods except Events must be called from the goroutine that consumes
// Events. Supervisor never retries on its own: after an error it returns to
// idle and the caller decides when to connect again.
type Supervisor struct {
	cfg       SupervisorConfig
	newClient ClientFactory
	logger    *slog.Logger
	metrics   *metrics.Recorder
	limiter   *rate.Limiter
	unpaced   bool // set while open() writes the initial subscribe and backlog

	events   chan Event
	done     chan struct{}
	shutdown sync.Once

	state  State
	mode   stream.AuthMode
	topics []string
	connID uuid.UUID
	client Client
	cancel context.CancelFunc
	stop   chan struct{}
	reason error

	mailbox *Mailbox
	subs    *stream.SubscriptionSet
	onClose []func()
}

// NewSupervisor creates an idle supervisor. A nil factory uses NewClient.
func NewSupervisor(cfg SupervisorConfig, factory ClientFactory, rec *metrics.Recorder, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	if factory == nil {
		factory = NewClient
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultSupervisorConfig().EventBuffer
	}

	s := &Supervisor{
		cfg:       cfg,
		newClient: factory,
		logger:    logger.With("component", "supervisor"),
		metrics:   rec,
		events:    make(chan Event, cfg.EventBuffer),
		done:      make(chan struct{}),
		subs:      stream.NewSubscriptionSet(),
	}
	if cfg.ControlRate > 0 {
		burst := cfg.ControlBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.ControlRate), burst)
	}
	s.mailbox = NewMailbox(s, cfg.MaxPending, rec, logger)
	return s
}

// Events returns the channel of transport callbacks. Feed every event to Handle.
func (s *Supervisor) Events() <-chan Event {
	return s.events
}

// OnClose registers fn to run whenever a connection ends, after the
// subscription set and mailbox are cleared.
func (s *Supervisor) OnClose(fn func()) {
	s.onClose = append(s.onClose, fn)
}

// Connect starts a connection in mode subscribed to topics.
//
// Connecting again in the mode already connecting or open is a no-op. A
// different mode, or any request while closing, is rejected with a
// CodeSubscriptionState error: the caller must Disconnect and wait for the
// closed transition first.
func (s *Supervisor) Connect(ctx context.Context, mode stream.AuthMode, topics []string) error {
	switch s.state {
	case StateConnecting, StateOpen:
		if mode == s.mode {
			s.logger.Debug("connect ignored, already active", "mode", mode, "state", s.state)
			return nil
		}
		err := errs.New("connection.Connect", errs.CodeSubscriptionState,
			errs.WithMessage(fmt.Sprintf("%s connection is %s, requested %s", s.mode, s.state, mode)))
		s.logger.Warn("connect rejected", "error", err)
		return err
	case StateClosing:
		err := errs.New("connection.Connect", errs.CodeSubscriptionState,
			errs.WithMessage("disconnect in progress"))
		s.logger.Warn("connect rejected", "error", err)
		return err
	}

	id := uuid.New()
	clientCfg := s.cfg.Client
	clientCfg.URL = stream.SocketURI(s.cfg.BaseURL, mode, topics)
	if mode == stream.AuthPrivate {
		clientCfg.Token = s.cfg.Token
	}

	connLogger := s.logger.With("conn_id", id.String(), "mode", string(mode))
	client := s.newClient(clientCfg, connLogger)
	dialCtx, cancel := context.WithCancel(ctx)
	stop := make(chan struct{})

	s.state = StateConnecting
	s.mode = mode
	s.topics = slices.Clone(topics)
	s.connID = id
	s.client = client
	s.cancel = cancel
	s.stop = stop
	s.reason = nil

	s.metrics.ConnectionEvent("connecting", string(mode))
	connLogger.Info("connecting", "url", clientCfg.URL, "topics", len(topics))

	go s.pump(dialCtx, id, client, stop)
	return nil
}

// Disconnect requests the socket close. The closed transition arrives later
// as an EventClosed through Events. Disconnect while idle or closing does nothing.
func (s *Supervisor) Disconnect() {
	if s.state != StateConnecting && s.state != StateOpen {
		return
	}

	s.logger.Info("disconnecting", "conn_id", s.connID.String(), "state", s.state)
	s.state = StateClosing
	s.cancel()
	close(s.stop)

	id, client := s.connID, s.client
	go func() {
		if err := client.Close(); err != nil {
			s.logger.Debug("close error", "conn_id", id.String(), "error", err)
		}
		select {
		case s.events <- Event{Type: EventClosed, ConnID: id}:
		case <-s.done:
		}
	}()
}

// Handle applies one transport event and reports what the caller should do.
// Events of a previous connection are ignored.
func (s *Supervisor) Handle(ev Event) Transition {
	if ev.ConnID != s.connID || s.state == StateIdle {
		s.logger.Debug("stale event dropped", "type", ev.Type, "conn_id", ev.ConnID.String())
		return TransitionNone
	}

	switch ev.Type {
	case EventOpened:
		if s.state != StateConnecting {
			return TransitionNone
		}
		return s.open()

	case EventMessage:
		if s.state != StateOpen {
			return TransitionNone
		}
		return TransitionData

	case EventError:
		if s.state == StateClosing {
			// The requested close wins; its EventClosed follows.
			return TransitionNone
		}
		s.fail(ev.Err)
		return TransitionClosed

	case EventClosed:
		if s.state != StateClosing {
			return TransitionNone
		}
		s.metrics.ConnectionEvent("closed", string(s.mode))
		s.logger.Info("connection closed", "conn_id", s.connID.String())
		s.teardown()
		return TransitionClosed
	}

	return TransitionNone
}

// open runs the connecting to open transition: the initial subscribe for the
// connect-time topics goes out first, then the mailbox backlog. Neither is
// paced, since waiting on the limiter here would hold up inbound events.
func (s *Supervisor) open() Transition {
	s.state = StateOpen
	s.subs.Replace(s.topics)
	s.metrics.ConnectionEvent("open", string(s.mode))
	s.logger.Info("connection open",
		"conn_id", s.connID.String(),
		"mode", s.mode,
		"pending", s.mailbox.Len(),
	)

	s.unpaced = true
	defer func() { s.unpaced = false }()

	if err := s.Transmit(stream.TopicsCommand(stream.Subscribe, "", s.topics)); err != nil {
		s.fail(err)
		return TransitionClosed
	}
	if err := s.mailbox.Flush(); err != nil {
		s.fail(err)
		return TransitionClosed
	}
	return TransitionOpened
}

// fail records a transport error and returns to idle.
func (s *Supervisor) fail(cause error) {
	s.reason = errs.New("connection.transport", errs.CodeTransport, errs.WithCause(cause))
	s.metrics.ConnectionEvent("error", string(s.mode))
	s.logger.Warn("connection failed",
		"conn_id", s.connID.String(),
		"state", s.state,
		"error", cause,
	)

	s.cancel()
	close(s.stop)
	client := s.client
	go client.Close()

	s.teardown()
}

func (s *Supervisor) teardown() {
	s.state = StateIdle
	s.client = nil
	s.cancel = nil
	s.stop = nil
	s.subs.Reset()
	s.mailbox.Reset()
	for _, fn := range s.onClose {
		fn()
	}
}

// pump dials and forwards the client's frames and errors as events until
// stop is closed.
func (s *Supervisor) pump(ctx context.Context, id uuid.UUID, client Client, stop <-chan struct{}) {
	if err := client.Connect(ctx); err != nil {
		s.emit(stop, Event{Type: EventError, ConnID: id, Err: err})
		return
	}
	if !s.emit(stop, Event{Type: EventOpened, ConnID: id}) {
		return
	}

	for {
		select {
		case <-stop:
			return
		case msg := <-client.Messages():
			s.metrics.FrameReceived()
			if !s.emit(stop, Event{Type: EventMessage, ConnID: id, Data: msg.Data, ReceivedAt: msg.ReceivedAt}) {
				return
			}
		case err := <-client.Errors():
			s.emit(stop, Event{Type: EventError, ConnID: id, Err: err})
			return
		}
	}
}

func (s *Supervisor) emit(stop <-chan struct{}, ev Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-stop:
		return false
	case <-s.done:
		return false
	}
}

// Ready reports whether the socket is open.
func (s *Supervisor) Ready() bool {
	return s.state == StateOpen
}

// Transmit encodes cmd with the session token and writes it to the socket,
// paced by the control rate limiter outside the open burst.
func (s *Supervisor) Transmit(cmd stream.Command) error {
	if s.state != StateOpen || s.client == nil {
		return ErrNotConnected
	}
	if cmd.Token == "" {
		cmd = cmd.WithToken(s.cfg.Token)
	}

	if s.limiter != nil && !s.unpaced {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Client.WriteTimeout)
		err := s.limiter.Wait(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("pace %s: %w", cmd.Type, ErrTimeout)
		}
	}

	data, err := cmd.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", cmd.Type, err)
	}
	if err := s.client.Send(data); err != nil {
		return fmt.Errorf("send %s: %w", cmd.Type, err)
	}

	s.logger.Debug("command sent",
		"type", cmd.Type,
		"channels", cmd.Channels,
		"product_ids", cmd.ProductIDs,
	)
	return nil
}

// Send transmits cmd now if open, or queues it in the mailbox.
func (s *Supervisor) Send(cmd stream.Command) error {
	return s.mailbox.Send(cmd)
}

// State returns the lifecycle state.
func (s *Supervisor) State() State {
	return s.state
}

// Mode returns the auth mode of the current or last connection.
func (s *Supervisor) Mode() stream.AuthMode {
	return s.mode
}

// ConnID returns the id of the current or last connection.
func (s *Supervisor) ConnID() uuid.UUID {
	return s.connID
}

// Subscriptions returns the set of topics believed subscribed.
func (s *Supervisor) Subscriptions() *stream.SubscriptionSet {
	return s.subs
}

// Mailbox returns the outbound mailbox.
func (s *Supervisor) Mailbox() *Mailbox {
	return s.mailbox
}

// Err returns the transport error that ended the last connection, or nil
// if it closed on request.
func (s *Supervisor) Err() error {
	return s.reason
}

// ReasonCode returns the error code of Err.
func (s *Supervisor) ReasonCode() errs.Code {
	return errs.CodeOf(s.reason)
}

// Shutdown closes any connection synchronously and releases pump goroutines.
// The supervisor cannot be reused.
func (s *Supervisor) Shutdown() {
	s.shutdown.Do(func() {
		close(s.done)
		if s.state == StateConnecting || s.state == StateOpen {
			s.cancel()
			close(s.stop)
			s.client.Close()
		}
		if s.state != StateIdle {
			s.teardown()
		}
	})
}
