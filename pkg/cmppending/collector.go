package cmppending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mempoolrace/pkg/provider"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
)

// Collector records the first sighting of pending transactions sent to Target
// until Count distinct transactions have been seen.
type Collector struct {
	Name   string
	Feed   Feed
	Target common.Address
	Count  int

	// ResubscribeDelay is the pause before reopening a stream that ended.
	ResubscribeDelay time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
	Log log.FieldLogger
}

// Collect blocks until Count observations are recorded, ctx is done, or a
// subscription cannot be opened. Streams that end are reopened and collection
// continues into the same map.
func (c *Collector) Collect(ctx context.Context) (Observations, error) {
	if c.Count <= 0 {
		return nil, fmt.Errorf("%s: count must be positive, got %d", c.Name, c.Count)
	}

	observations := make(Observations)
	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, c.ResubscribeDelay); err != nil {
				return nil, err
			}
			c.logger().Warnf("%s: resubscribing to pending transactions, %d/%d collected", c.Name, len(observations), c.Count)
		}

		stream, err := c.Feed.Subscribe(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: cannot subscribe to pending transactions: %w", c.Name, err)
		}

		complete, err := c.consume(ctx, stream, observations)
		if closeErr := stream.Close(); closeErr != nil {
			c.logger().Debugf("%s: cannot unsubscribe: %v", c.Name, closeErr)
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.Name, err)
		}
		if complete {
			return observations, nil
		}
	}
}

// consume reads stream until the target count is reached (true) or the stream ends (false).
func (c *Collector) consume(ctx context.Context, stream Stream, observations Observations) (bool, error) {
	for {
		tx, err := stream.Next(ctx)
		if errors.Is(err, provider.ErrStreamEnded) {
			c.logger().Warnf("%s: %v", c.Name, err)
			return false, nil
		}
		if err != nil {
			return false, err
		}

		if c.observe(observations, tx) && len(observations) >= c.Count {
			return true, nil
		}
	}
}

// observe records tx if it is addressed to the target and not seen before.
func (c *Collector) observe(observations Observations, tx provider.PendingTx) bool {
	if tx.To == nil || *tx.To != c.Target {
		return false
	}
	if _, seen := observations[tx.Hash]; seen {
		return false
	}

	ts := c.now().UnixMilli()
	observations[tx.Hash] = ts
	c.logger().Infof("%s: %s %d", c.Name, tx.Hash.Hex(), ts)
	return true
}

func (c *Collector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Collector) logger() log.FieldLogger {
	if c.Log != nil {
		return c.Log
	}
	return log.StandardLogger()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
