package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/rickgao/ranger/internal/connection"
	"github.com/rickgao/ranger/internal/market"
	"github.com/rickgao/ranger/internal/metrics"
	"github.com/rickgao/ranger/internal/orderbook"
	"github.com/rickgao/ranger/internal/router"
	"github.com/rickgao/ranger/internal/stream"
)

var (
	// ErrStopped is returned by requests made after Run has returned.
	ErrStopped = errors.New("session stopped")
	// ErrInvalidPeriod is returned for a kline period outside the supported table.
	ErrInvalidPeriod = errors.New("invalid kline period")
	// ErrNoMarket is returned when a market id is required but empty.
	ErrNoMarket = errors.New("market id required")
)

// Snapshot is a point-in-time view of the session for health reporting.
type Snapshot struct {
	State          string             `json:"state"`
	Mode           string             `json:"mode"`
	ConnID         string             `json:"conn_id"`
	Market         string             `json:"market"`
	Subscriptions  []string           `json:"subscriptions"`
	MailboxPending int                `json:"mailbox_pending"`
	MailboxDropped int64              `json:"mailbox_dropped"`
	Reconnects     int64              `json:"reconnects"`
	LastError      string             `json:"last_error,omitempty"`
	LastErrorCode  string             `json:"last_error_code,omitempty"`
	Router         router.RouterStats `json:"router"`
	Sinks          router.SinkStats   `json:"sinks"`
}

type request struct {
	name string
	fn   func() error
	done chan error
}

// Session is the event loop. Create it with New and start it with Run.
type Session struct {
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Recorder

	sup       *connection.Supervisor
	selection *market.Selection
	sequencer *orderbook.Sequencer
	router    *router.Router
	sinks     *router.Sinks
	coord     *market.Coordinator

	requests chan request
	stopped  chan struct{}
	status   atomic.Pointer[Snapshot]

	// Owned by the loop goroutine.
	ctx         context.Context
	market      string
	wantConnect bool
	auth        bool
	lastTopics  []string
	backoff     *backoff.ExponentialBackOff
	retry       *time.Timer
	retryC      <-chan time.Time
	lastClosed  time.Time
	reconnects  int64
}

// New wires a session around sup. The supervisor's close hook resets every
// sequence cursor, so each connection starts unsynchronized.
func New(cfg Config, sup *connection.Supervisor, sel *market.Selection, sinks *router.Sinks, rec *metrics.Recorder, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	if sel == nil {
		sel = market.NewSelection(nil)
	}
	if sinks == nil {
		sinks = router.NewSinks(router.DefaultRouterConfig())
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.ReconnectDelay
	b.MaxInterval = cfg.MaxReconnectDelay
	b.RandomizationFactor = 0
	b.Reset()

	sequencer := orderbook.NewSequencer()
	s := &Session{
		cfg:       cfg,
		logger:    logger.With("component", "session"),
		metrics:   rec,
		sup:       sup,
		selection: sel,
		sequencer: sequencer,
		router:    router.NewRouter(sequencer, router.NewTickerCache(), rec, logger),
		sinks:     sinks,
		coord:     market.NewCoordinator(logger),
		requests:  make(chan request, cfg.RequestBuffer),
		stopped:   make(chan struct{}),
		backoff:   b,
	}
	sup.OnClose(sequencer.ResetAll)
	s.publish()
	return s
}

// Selection returns the market-selection store.
func (s *Session) Selection() *market.Selection {
	return s.selection
}

// Sinks returns the downstream event buffers.
func (s *Session) Sinks() *router.Sinks {
	return s.sinks
}

// Router returns the message router.
func (s *Session) Router() *router.Router {
	return s.router
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} {
	return s.stopped
}

// Run processes events until ctx is cancelled. On return the connection is
// closed and the sinks are closed so their consumers can drain and exit.
func (s *Session) Run(ctx context.Context) error {
	s.ctx = ctx
	defer close(s.stopped)
	defer s.sinks.Close()
	defer s.sup.Shutdown()
	defer s.stopRetry()

	s.logger.Info("session started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session stopping", "reason", ctx.Err())
			return nil

		case ev := <-s.sup.Events():
			s.handleEvent(ev)

		case req := <-s.requests:
			err := req.fn()
			if err != nil {
				s.logger.Warn("request failed", "request", req.name, "error", err)
			}
			req.done <- err
			s.publish()

		case <-s.selection.Changes():
			s.selectMarket(s.selection.Current())
			s.publish()

		case <-s.retryC:
			s.retryC = nil
			s.retry = nil
			if s.wantConnect && s.sup.State() == connection.StateIdle {
				if err := s.dial(); err != nil {
					s.logger.Warn("reconnect failed", "error", err)
				}
			}
			s.publish()
		}
	}
}

// Connect asks for a connection in the public or private mode. While a
// connection in the other mode exists it is closed first, and the new one is
// opened after the reconnect delay. A connect that follows a close by less
// than the reconnect delay waits out the rest of it.
func (s *Session) Connect(ctx context.Context, auth bool) error {
	return s.do(ctx, "connect", func() error {
		s.wantConnect = true
		s.auth = auth
		mode := stream.ModeFor(auth)

		switch s.sup.State() {
		case connection.StateIdle:
			if s.retryC != nil {
				return nil
			}
			if wait := s.cfg.ReconnectDelay - time.Since(s.lastClosed); !s.lastClosed.IsZero() && wait > 0 {
				s.logger.Info("connect deferred after close", "delay", wait)
				s.schedule(wait)
				return nil
			}
			return s.dial()
		case connection.StateConnecting, connection.StateOpen:
			if s.sup.Mode() == mode {
				return nil
			}
			s.logger.Info("auth mode changed, reconnecting", "from", s.sup.Mode(), "to", mode)
			s.sup.Disconnect()
		}
		// Closing: the closed transition schedules the dial.
		return nil
	})
}

// Disconnect closes the connection and cancels any pending reconnect.
func (s *Session) Disconnect(ctx context.Context) error {
	return s.do(ctx, "disconnect", func() error {
		s.wantConnect = false
		s.stopRetry()
		s.sup.Disconnect()
		return nil
	})
}

// SelectMarket makes id the current market. The change is applied by the
// loop through the Selection store.
func (s *Session) SelectMarket(id string) error {
	return s.selection.Select(id)
}

// SubscribeKline subscribes the candle stream of market for period.
func (s *Session) SubscribeKline(ctx context.Context, marketID, period string) error {
	return s.kline(ctx, stream.Subscribe, marketID, period)
}

// UnsubscribeKline unsubscribes the candle stream of market for period.
func (s *Session) UnsubscribeKline(ctx context.Context, marketID, period string) error {
	return s.kline(ctx, stream.Unsubscribe, marketID, period)
}

func (s *Session) kline(ctx context.Context, t stream.CommandType, marketID, period string) error {
	if marketID == "" {
		return ErrNoMarket
	}
	if !stream.ValidPeriod(period) {
		return fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	return s.do(ctx, string(t)+"_kline", func() error {
		return s.send(stream.KlineCommand(t, marketID, period))
	})
}

// SubscribeUser subscribes the private order and trade channels.
func (s *Session) SubscribeUser(ctx context.Context, currencies []string) error {
	return s.do(ctx, "subscribe_user", func() error {
		return s.send(stream.UserCommand(stream.Subscribe, currencies))
	})
}

// UnsubscribeUser unsubscribes the private order and trade channels.
func (s *Session) UnsubscribeUser(ctx context.Context, currencies []string) error {
	return s.do(ctx, "unsubscribe_user", func() error {
		return s.send(stream.UserCommand(stream.Unsubscribe, currencies))
	})
}

// Snapshot returns the latest session status with live router and sink stats.
// It is safe to call from any goroutine.
func (s *Session) Snapshot() Snapshot {
	snap := *s.status.Load()
	snap.Router = s.router.Stats()
	snap.Sinks = s.sinks.Stats()
	return snap
}

func (s *Session) do(ctx context.Context, name string, fn func() error) error {
	req := request{name: name, fn: fn, done: make(chan error, 1)}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrStopped
	}

	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		return ErrStopped
	}
}

func (s *Session) handleEvent(ev connection.Event) {
	switch s.sup.Handle(ev) {
	case connection.TransitionOpened:
		s.backoff.Reset()
		s.remember()
		s.publish()

	case connection.TransitionData:
		s.route(ev)

	case connection.TransitionClosed:
		s.closed()
		s.publish()
	}
}

func (s *Session) route(ev connection.Event) {
	for _, out := range s.router.Route(ev.Data, s.market, ev.ReceivedAt) {
		switch e := out.(type) {
		case router.ReconnectRequested:
			s.forceReconnect(e)
		case router.SubscriptionsChanged:
			s.sup.Subscriptions().Replace(e.Topics)
			s.remember()
			s.publish()
		default:
			if !s.sinks.Deliver(out, s.market) {
				s.logger.Debug("event not delivered", "kind", out.Kind())
			}
		}
	}
}

// forceReconnect tears the connection down after a sequence gap. The closed
// transition brings it back up with the same subscriptions.
func (s *Session) forceReconnect(e router.ReconnectRequested) {
	state := s.sup.State()
	if state != connection.StateConnecting && state != connection.StateOpen {
		return
	}
	s.reconnects++
	s.metrics.ConnectionEvent("reconnect_requested", string(s.sup.Mode()))
	s.logger.Warn("reconnecting after order book gap",
		"market", e.Market,
		"error", e.Err,
		"reconnects", s.reconnects,
	)
	s.wantConnect = true
	s.sup.Disconnect()
	s.publish()
}

func (s *Session) closed() {
	s.lastClosed = time.Now()
	if err := s.sup.Err(); err != nil {
		s.logger.Warn("connection lost",
			"error", err,
			"code", s.sup.ReasonCode(),
		)
	}
	if !s.wantConnect {
		return
	}

	delay := s.backoff.NextBackOff()
	if delay == backoff.Stop {
		delay = s.cfg.MaxReconnectDelay
	}
	s.logger.Info("reconnect scheduled", "delay", delay)
	s.schedule(delay)
}

// schedule arms the retry timer; the loop dials when it fires.
func (s *Session) schedule(delay time.Duration) {
	s.stopRetry()
	s.retry = time.NewTimer(delay)
	s.retryC = s.retry.C
}

func (s *Session) stopRetry() {
	if s.retry != nil {
		s.retry.Stop()
	}
	s.retry = nil
	s.retryC = nil
}

// dial opens a connection for the current auth mode, carrying the topics of
// the last connection that still apply.
func (s *Session) dial() error {
	topics := stream.BuildTopics(s.auth, s.carriedTopics(), s.market)
	return s.sup.Connect(s.ctx, stream.ModeFor(s.auth), topics)
}

// carriedTopics filters the last known subscriptions: private topics only
// survive on a private connection and market topics only for the current
// market.
func (s *Session) carriedTopics() []string {
	carried := make([]string, 0, len(s.lastTopics))
	for _, topic := range s.lastTopics {
		if !s.auth && slices.Contains(stream.PrivateTopics, topic) {
			continue
		}
		if r := stream.Classify(topic); r.Kind.MarketScoped() && r.Market != s.market {
			continue
		}
		carried = append(carried, topic)
	}
	return carried
}

func (s *Session) selectMarket(id string) {
	prev := s.market
	s.market = id
	if prev != "" && prev != id {
		s.sequencer.Reset(prev)
	}

	for _, cmd := range s.coord.OnMarketSelected(id, s.cfg.SubscribeOnInitOnly) {
		if err := s.send(cmd); err != nil {
			s.logger.Warn("market command failed",
				"type", cmd.Type,
				"market", id,
				"error", err,
			)
		}
	}
}

// send hands cmd to the mailbox. Commands transmitted on an open connection
// update the subscription set; queued ones are reconciled by the server's
// acknowledgement.
func (s *Session) send(cmd stream.Command) error {
	if err := s.sup.Send(cmd); err != nil {
		return err
	}
	if !s.sup.Ready() {
		return nil
	}

	subs := s.sup.Subscriptions()
	switch cmd.Type {
	case stream.Subscribe:
		subs.Add(cmd.Channels...)
	case stream.Unsubscribe:
		subs.Remove(cmd.Channels...)
	}
	s.remember()
	return nil
}

func (s *Session) remember() {
	if s.sup.Ready() {
		s.lastTopics = s.sup.Subscriptions().Topics()
	}
}

func (s *Session) publish() {
	snap := &Snapshot{
		State:          s.sup.State().String(),
		Mode:           string(s.sup.Mode()),
		Market:         s.market,
		Subscriptions:  s.sup.Subscriptions().Topics(),
		MailboxPending: s.sup.Mailbox().Len(),
		MailboxDropped: s.sup.Mailbox().Dropped(),
		Reconnects:     s.reconnects,
	}
	if id := s.sup.ConnID(); id != uuid.Nil {
		snap.ConnID = id.String()
	}
	if err := s.sup.Err(); err != nil {
		snap.LastError = err.Error()
		snap.LastErrorCode = string(s.sup.ReasonCode())
	}
	s.status.Store(snap)
}
