package flags

import (
	"time"

	"github.com/urfave/cli/v2"
)

const envPrefix = "MEMPOOLRACE_"

// CLI flags for mempoolrace
var (
	FirstRPC = &cli.StringFlag{
		Name:    "first-rpc",
		Usage:   "first node ws url or ipc path. Sample Input: ws://127.0.0.1:8546",
		Value:   "ws://127.0.0.1:8546",
		EnvVars: []string{envPrefix + "FIRST_RPC"},
	}
	SecondRPC = &cli.StringFlag{
		Name:    "second-rpc",
		Usage:   "second node ws url or ipc path. Sample Input: /var/run/reth.ipc",
		Value:   "ws://127.0.0.1:9546",
		EnvVars: []string{envPrefix + "SECOND_RPC"},
	}
	FirstName = &cli.StringFlag{
		Name:    "first-name",
		Usage:   "label for the first node in the output",
		Value:   "geth",
		EnvVars: []string{envPrefix + "FIRST_NAME"},
	}
	SecondName = &cli.StringFlag{
		Name:    "second-name",
		Usage:   "label for the second node in the output",
		Value:   "reth",
		EnvVars: []string{envPrefix + "SECOND_NAME"},
	}
	FirstFeed = &cli.StringFlag{
		Name:    "first-feed",
		Usage:   "pending tx feed of the first node, possible values: 'full', 'hashes'",
		Value:   "full",
		EnvVars: []string{envPrefix + "FIRST_FEED"},
	}
	SecondFeed = &cli.StringFlag{
		Name:    "second-feed",
		Usage:   "pending tx feed of the second node, possible values: 'full', 'hashes'",
		Value:   "hashes",
		EnvVars: []string{envPrefix + "SECOND_FEED"},
	}
	Count = &cli.IntFlag{
		Name:    "count",
		Usage:   "number of transactions to watch",
		Value:   50,
		EnvVars: []string{envPrefix + "COUNT"},
	}
	Target = &cli.StringFlag{
		Name:    "target",
		Usage:   "only transactions sent to this address are watched",
		Value:   "0x3fc91a3afd70395cd496c647d5a6cc9d4b2b7fad", // uniswap universal router
		EnvVars: []string{envPrefix + "TARGET"},
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Usage:   "give up after this long, 0 waits forever",
		EnvVars: []string{envPrefix + "TIMEOUT"},
	}
	ResubscribeDelay = &cli.DurationFlag{
		Name:    "resubscribe-delay",
		Usage:   "pause before resubscribing when a pending tx stream ends",
		Value:   250 * time.Millisecond,
		EnvVars: []string{envPrefix + "RESUBSCRIBE_DELAY"},
	}
	Verbosity = &cli.BoolFlag{
		Name:    "verbosity",
		Aliases: []string{"v"},
		Usage:   "level of output, repeat for more: -v errors, -vv warnings, -vvv info, -vvvv debug, -vvvvv traces",
	}
	Quiet = &cli.BoolFlag{
		Name:    "quiet",
		Aliases: []string{"q", "silent"},
		Usage:   "silence all log output",
	}
)
