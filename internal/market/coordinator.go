package market

import (
	"log/slog"

	"github.com/rickgao/ranger/internal/stream"
)

// Coordinator translates market selections into subscribe and unsubscribe
// commands. It is owned by the session loop and is not safe for concurrent
// use.
type Coordinator struct {
	logger   *slog.Logger
	previous string
}

// NewCoordinator creates a coordinator with no previous market.
func NewCoordinator(logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{logger: logger.With("component", "market_coordinator")}
}

// Previous returns the last market a subscribe was emitted for.
func (c *Coordinator) Previous() string {
	return c.previous
}

// OnMarketSelected returns the commands needed to move the subscription from
// the previous market to next, in send order.
//
// With initialOnly set, a selection after the first one is ignored. An empty
// next only unsubscribes the previous market. Re-selecting the current market
// subscribes again without unsubscribing.
func (c *Coordinator) OnMarketSelected(next string, initialOnly bool) []stream.Command {
	if initialOnly && c.previous != "" {
		return nil
	}

	var cmds []stream.Command
	if c.previous != "" && c.previous != next {
		cmds = append(cmds, stream.TopicsCommand(stream.Unsubscribe, c.previous, stream.MarketTopics(c.previous)))
	}

	prev := c.previous
	c.previous = next
	if next != "" {
		cmds = append(cmds, stream.TopicsCommand(stream.Subscribe, next, stream.MarketTopics(next)))
	}

	c.logger.Info("market selected", "previous", prev, "market", next, "commands", len(cmds))
	return cmds
}

// Reset forgets the previous market.
func (c *Coordinator) Reset() {
	c.previous = ""
}
