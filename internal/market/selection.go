package market

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/rickgao/ranger/internal/model"
)

// ErrUnknownMarket is returned by Select for a market outside the known set.
var ErrUnknownMarket = errors.New("unknown market")

// Selection is the market-selection store. Reads are safe from any
// goroutine; changes are announced on a single coalescing channel that
// always yields the latest selection.
type Selection struct {
	mu      sync.RWMutex
	current string
	markets map[string]model.Market
	changes chan string
}

// NewSelection creates a store. When markets is non-empty, Select only
// accepts ids from it.
func NewSelection(markets []model.Market) *Selection {
	s := &Selection{
		markets: make(map[string]model.Market, len(markets)),
		changes: make(chan string, 1),
	}
	for _, m := range markets {
		s.markets[m.ID] = m
	}
	return s
}

// Current returns the selected market id, or "" when none is selected.
func (s *Selection) Current() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Market returns a known market by id.
func (s *Selection) Market(id string) (model.Market, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[id]
	return m, ok
}

// Markets returns the known markets sorted by id.
func (s *Selection) Markets() []model.Market {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b model.Market) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Upsert adds or replaces a known market.
func (s *Selection) Upsert(m model.Market) {
	s.mu.Lock()
	s.markets[m.ID] = m
	s.mu.Unlock()
}

// Select makes id the current market and notifies the change channel.
// Selecting "" clears the selection.
func (s *Selection) Select(id string) error {
	s.mu.Lock()
	if id != "" && len(s.markets) > 0 {
		if _, ok := s.markets[id]; !ok {
			s.mu.Unlock()
			return ErrUnknownMarket
		}
	}
	s.current = id
	s.mu.Unlock()

	s.notify(id)
	return nil
}

// Changes returns the notification channel. Intermediate selections made
// before the consumer reads are coalesced into the latest one.
func (s *Selection) Changes() <-chan string {
	return s.changes
}

func (s *Selection) notify(id string) {
	for {
		select {
		case s.changes <- id:
			return
		default:
		}
		// Replace the stale pending notification.
		select {
		case <-s.changes:
		default:
		}
	}
}
