// Package orderbook tracks order-book increment sequence numbers per market
// and decides whether an increment may be applied.
package orderbook

import (
	"fmt"

	"github.com/rickgao/ranger/internal/errs"
)

// Decision is the outcome of OnIncrement.
type Decision int

const (
	// Apply means the increment is the next in sequence.
	Apply Decision = iota
	// RejectUnsynced means no usable cursor exists; the caller waits for a snapshot.
	RejectUnsynced
	// RejectGap means the increment skipped or repeated a sequence number.
	// The caller must force a reconnect.
	RejectGap
)

func (d Decision) String() string {
	switch d {
	case Apply:
		return "apply"
	case RejectUnsynced:
		return "reject_unsynced"
	case RejectGap:
		return "reject_gap"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

type cursorState int

const (
	// awaitingAnchor follows a snapshot that carried no sequence number.
	awaitingAnchor cursorState = iota
	anchored
	// desynced follows a gap. Only a new snapshot recovers.
	desynced
)

type cursor struct {
	state cursorState
	seq   int64
}

// Stats counts sequencer decisions.
type Stats struct {
	Applied  int64
	Unsynced int64
	Gaps     int64
}

// Sequencer holds one cursor per market. It is owned by the session loop and
// is not safe for concurrent use.
type Sequencer struct {
	cursors map[string]*cursor
	stats   Stats
}

// NewSequencer returns an empty sequencer. Every market starts unsynced.
func NewSequencer() *Sequencer {
	return &Sequencer{cursors: make(map[string]*cursor)}
}

// OnSnapshot re-anchors market. A nil seq leaves the cursor unknown until the
// first increment sets it.
func (s *Sequencer) OnSnapshot(market string, seq *int64) {
	if seq == nil {
		s.cursors[market] = &cursor{state: awaitingAnchor}
		return
	}
	s.cursors[market] = &cursor{state: anchored, seq: *seq}
}

// OnIncrement decides whether the increment with sequence number seq may be
// applied. A RejectGap decision comes with a CodeSequenceGap error; the
// market then stays unsynced, so later increments are rejected as unsynced
// and the gap is reported once.
func (s *Sequencer) OnIncrement(market string, seq int64) (Decision, error) {
	c, ok := s.cursors[market]
	if !ok || c.state == desynced {
		s.stats.Unsynced++
		return RejectUnsynced, nil
	}

	switch c.state {
	case awaitingAnchor:
		c.state = anchored
		c.seq = seq
		s.stats.Applied++
		return Apply, nil
	case anchored:
		if seq == c.seq+1 {
			c.seq = seq
			s.stats.Applied++
			return Apply, nil
		}
	}

	expected := c.seq + 1
	c.state = desynced
	s.stats.Gaps++
	return RejectGap, errs.New("orderbook.OnIncrement", errs.CodeSequenceGap,
		errs.WithMarket(market),
		errs.WithMessage(fmt.Sprintf("expected %d, got %d", expected, seq)),
	)
}

// Cursor returns the last applied sequence number of market.
// ok is false when the cursor is unknown.
func (s *Sequencer) Cursor(market string) (seq int64, ok bool) {
	c, exists := s.cursors[market]
	if !exists || c.state != anchored {
		return 0, false
	}
	return c.seq, true
}

// Reset forgets the cursor of market.
func (s *Sequencer) Reset(market string) {
	delete(s.cursors, market)
}

// ResetAll forgets every cursor. Called when the connection closes.
func (s *Sequencer) ResetAll() {
	clear(s.cursors)
}

// Stats returns decision counters.
func (s *Sequencer) Stats() Stats {
	return s.stats
}
