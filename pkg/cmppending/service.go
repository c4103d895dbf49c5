package cmppending

import (
	"context"
	"fmt"
	"io"
	"time"

	"mempoolrace/pkg/provider"

	"github.com/fatih/color"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RaceService races two nodes for first sight of pending transactions.
type RaceService struct {
	out  io.Writer
	dial dialFunc
	// clock returns the time source used to stamp observations of one endpoint.
	clock func(endpoint string) func() time.Time
}

// NewRaceService creates and initializes RaceService instance.
func NewRaceService() *RaceService {
	return &RaceService{
		out:   color.Output,
		dial:  provider.DialPubSub,
		clock: wallClock,
	}
}

// Run is an entry point to the RaceService.
func (s *RaceService) Run(c *cli.Context) error {
	cfg, err := ConfigFromCLI(c)
	if err != nil {
		zap.L().Error("invalid configuration", zap.Error(err))
		return err
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	first, err := dialNode(ctx, cfg.First, s.dial)
	if err != nil {
		zap.L().Error("cannot connect", zap.String("endpoint", cfg.First.Name), zap.Error(err))
		return fmt.Errorf("%s: %w", cfg.First.Name, err)
	}
	defer closeNode(cfg.First.Name, first)

	second, err := dialNode(ctx, cfg.Second, s.dial)
	if err != nil {
		zap.L().Error("cannot connect", zap.String("endpoint", cfg.Second.Name), zap.Error(err))
		return fmt.Errorf("%s: %w", cfg.Second.Name, err)
	}
	defer closeNode(cfg.Second.Name, second)

	if _, err := s.Race(ctx, cfg, first, second); err != nil {
		zap.L().Error("race failed", zap.Error(err))
		return err
	}
	return nil
}

// Race checks that both nodes are at the same height, collects observations
// from both concurrently, then prints and returns the comparison. Any error
// aborts the whole race; there are no partial results.
func (s *RaceService) Race(ctx context.Context, cfg Config, a, b Node) (Result, error) {
	logger := log.WithField("run", uuid.NewString())

	heightA, err := a.BlockNumber(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%s: cannot get block number: %w", cfg.First.Name, err)
	}
	heightB, err := b.BlockNumber(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%s: cannot get block number: %w", cfg.Second.Name, err)
	}
	if heightA != heightB {
		return Result{}, &HeightMismatchError{
			NameA:   cfg.First.Name,
			NameB:   cfg.Second.Name,
			HeightA: heightA,
			HeightB: heightB,
		}
	}
	logger.Debugf("Both endpoints at block %d, watching %d transactions to %s", heightA, cfg.Count, cfg.Target.Hex())

	var (
		g, gctx = errgroup.WithContext(ctx)
		obsA    Observations
		obsB    Observations
	)
	g.Go(func() (err error) {
		obsA, err = s.collector(cfg, cfg.First.Name, a, logger).Collect(gctx)
		return err
	})
	g.Go(func() (err error) {
		obsB, err = s.collector(cfg, cfg.Second.Name, b, logger).Collect(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	res := Compare(obsA, obsB)
	if res.Ties > 0 {
		logger.Debugf("%d transactions were seen by %s and %s in the same millisecond", res.Ties, cfg.First.Name, cfg.Second.Name)
	}
	if err := Report(s.out, cfg.First.Name, cfg.Second.Name, res); err != nil {
		return res, fmt.Errorf("cannot write report: %w", err)
	}
	return res, nil
}

func (s *RaceService) collector(cfg Config, name string, feed Feed, logger log.FieldLogger) *Collector {
	return &Collector{
		Name:             name,
		Feed:             feed,
		Target:           cfg.Target,
		Count:            cfg.Count,
		ResubscribeDelay: cfg.ResubscribeDelay,
		Now:              s.clock(name),
		Log:              logger.WithField("endpoint", name),
	}
}

func wallClock(string) func() time.Time {
	return time.Now
}

func closeNode(name string, n Node) {
	if err := n.Close(); err != nil {
		log.Errorf("cannot close connection to %s: %v", name, err)
	}
}
