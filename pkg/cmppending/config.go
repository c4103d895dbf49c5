package cmppending

import (
	"errors"
	"fmt"
	"time"

	"mempoolrace/internal/pkg/flags"
	"mempoolrace/internal/pkg/transport"
	"mempoolrace/pkg/provider"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
)

// Config holds everything a race needs.
type Config struct {
	First  Endpoint
	Second Endpoint
	Target common.Address
	Count  int

	// Timeout bounds the whole run. Zero means no bound.
	Timeout          time.Duration
	ResubscribeDelay time.Duration
}

// ConfigFromCLI reads and validates the race flags.
func ConfigFromCLI(c *cli.Context) (Config, error) {
	target := c.String(flags.Target.Name)
	if !common.IsHexAddress(target) {
		return Config{}, fmt.Errorf("invalid target address %q", target)
	}

	firstMode, err := provider.ParseMode(c.String(flags.FirstFeed.Name))
	if err != nil {
		return Config{}, err
	}
	secondMode, err := provider.ParseMode(c.String(flags.SecondFeed.Name))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		First: Endpoint{
			Name:    c.String(flags.FirstName.Name),
			Address: c.String(flags.FirstRPC.Name),
			Mode:    firstMode,
		},
		Second: Endpoint{
			Name:    c.String(flags.SecondName.Name),
			Address: c.String(flags.SecondRPC.Name),
			Mode:    secondMode,
		},
		Target:           common.HexToAddress(target),
		Count:            c.Int(flags.Count.Name),
		Timeout:          c.Duration(flags.Timeout.Name),
		ResubscribeDelay: c.Duration(flags.ResubscribeDelay.Name),
	}
	return cfg, cfg.Validate()
}

// Validate checks the configuration before any connection is made.
func (c Config) Validate() error {
	if c.Count <= 0 {
		return fmt.Errorf("count must be positive, got %d", c.Count)
	}
	if c.Target == (common.Address{}) {
		return errors.New("target address is required")
	}
	if c.Timeout < 0 || c.ResubscribeDelay < 0 {
		return errors.New("durations must not be negative")
	}
	if c.First.Name == c.Second.Name {
		return fmt.Errorf("endpoint names must differ, both are %q", c.First.Name)
	}
	for _, e := range []Endpoint{c.First, c.Second} {
		if err := e.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (e Endpoint) validate() error {
	if e.Name == "" {
		return errors.New("endpoint name is required")
	}
	if e.Address == "" {
		return fmt.Errorf("%s rpc address is required", e.Name)
	}
	if transport.KindOf(e.Address) == transport.KindHTTP {
		return fmt.Errorf("%s rpc must be ws or ipc, got %s", e.Name, e.Address)
	}
	if _, err := provider.ParseMode(string(e.Mode)); err != nil {
		return fmt.Errorf("%s: %w", e.Name, err)
	}
	return nil
}
