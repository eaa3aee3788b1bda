package connection

import (
	"log/slog"

	"github.com/rickgao/ranger/internal/metrics"
	"github.com/rickgao/ranger/internal/stream"
)

// Link is the transmit side of a connection.
type Link interface {
	// Ready reports whether the connection is open.
	Ready() bool
	// Transmit writes one command to the socket.
	Transmit(cmd stream.Command) error
}

// Mailbox queues outbound commands while the link is not ready.
//
// Entries leave the queue in FIFO order, once, at Flush. Because Flush runs on
// the same goroutine as Send, nothing sent after the open transition can
// overtake the backlog.
type Mailbox struct {
	link       Link
	maxPending int
	logger     *slog.Logger
	metrics    *metrics.Recorder

	queue   []stream.Command
	dropped int64
}

// NewMailbox creates a mailbox over link. maxPending caps the queue and drops
// the oldest entry when exceeded; 0 means unbounded.
func NewMailbox(link Link, maxPending int, rec *metrics.Recorder, logger *slog.Logger) *Mailbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailbox{
		link:       link,
		maxPending: maxPending,
		logger:     logger.With("component", "mailbox"),
		metrics:    rec,
	}
}

// Send transmits cmd when the link is ready and queues it otherwise.
func (m *Mailbox) Send(cmd stream.Command) error {
	if m.link.Ready() {
		return m.transmit(cmd)
	}

	if m.maxPending > 0 && len(m.queue) >= m.maxPending {
		oldest := m.queue[0]
		m.queue = m.queue[1:]
		m.dropped++
		m.metrics.Outbound(metrics.OutboundDropped)
		m.logger.Warn("mailbox full, dropping oldest command",
			"type", oldest.Type,
			"channels", oldest.Channels,
			"max_pending", m.maxPending,
		)
	}

	m.queue = append(m.queue, cmd)
	m.metrics.Outbound(metrics.OutboundQueued)
	m.logger.Debug("command queued", "type", cmd.Type, "pending", len(m.queue))
	return nil
}

// Flush drains the queue in order. It stops at the first transmit error and
// discards the remainder, since a failed write means the connection is going
// away and the queue would be cleared on close anyway.
func (m *Mailbox) Flush() error {
	queue := m.queue
	m.queue = nil

	for i, cmd := range queue {
		if err := m.transmit(cmd); err != nil {
			m.logger.Warn("mailbox flush interrupted",
				"error", err,
				"discarded", len(queue)-i-1,
			)
			return err
		}
	}

	if len(queue) > 0 {
		m.logger.Debug("mailbox flushed", "count", len(queue))
	}
	return nil
}

// Reset discards all pending commands.
func (m *Mailbox) Reset() {
	if len(m.queue) > 0 {
		m.logger.Debug("mailbox cleared", "discarded", len(m.queue))
	}
	m.queue = nil
}

// Len returns the number of pending commands.
func (m *Mailbox) Len() int {
	return len(m.queue)
}

// Dropped returns how many commands the cap has discarded.
func (m *Mailbox) Dropped() int64 {
	return m.dropped
}

func (m *Mailbox) transmit(cmd stream.Command) error {
	if err := m.link.Transmit(cmd); err != nil {
		m.metrics.Outbound(metrics.OutboundFailed)
		return err
	}
	m.metrics.Outbound(metrics.OutboundSent)
	return nil
}
