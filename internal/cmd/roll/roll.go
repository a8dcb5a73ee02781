// Package roll parses roll command flags and prints rolled expressions.
package roll

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/louisbranch/dicenotation"
	"github.com/louisbranch/dicenotation/internal/cmd/host"
	entrypoint "github.com/louisbranch/dicenotation/internal/platform/cmd"
)

// Config holds roll command configuration.
type Config struct {
	Host host.Config

	Expression string
	Count      int   `env:"DICENOTATION_ROLL_COUNT" envDefault:"1"`
	Seed       int64 // Only used when HasSeed is set.
	HasSeed    bool
	Verbose    bool
	History    int
}

// ParseConfig parses environment and flags into Config. The expression is
// every remaining argument joined by spaces.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	host.RegisterFlags(fs, &cfg.Host)
	fs.IntVar(&cfg.Count, "n", cfg.Count, "how many times to roll the expression")
	fs.Int64Var(&cfg.Seed, "seed", 0, "seed for a reproducible roll")
	fs.BoolVar(&cfg.Verbose, "v", false, "print the seed of each roll")
	fs.IntVar(&cfg.History, "list", 0, "print the last N logged rolls instead of rolling")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.HasSeed = true
		}
	})
	cfg.Expression = strings.TrimSpace(strings.Join(fs.Args(), " "))
	return cfg, nil
}

// Run rolls the configured expression and writes one detail line per roll.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceRoll, func(ctx context.Context) error {
		return run(ctx, cfg, out)
	})
}

func run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if cfg.History <= 0 && cfg.Expression == "" {
		return errors.New("expression is required")
	}
	if cfg.Count <= 0 {
		cfg.Count = 1
	}

	roller, closeRoller, err := host.NewRoller(cfg.Host)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeRoller(); err != nil {
			log.Printf("close roll history: %v", err)
		}
	}()

	if cfg.History > 0 {
		return printHistory(ctx, roller, cfg.History, out)
	}

	var opts []dicenotation.EvalOption
	if cfg.HasSeed {
		opts = append(opts, dicenotation.WithSeed(cfg.Seed))
	}
	for i := 0; i < cfg.Count; i++ {
		roll, err := roller.Roll(ctx, cfg.Expression, "", opts...)
		if err != nil {
			return errors.New(roller.LocalizeError("", err))
		}
		if cfg.Verbose {
			seed, source := roll.Result.Seed()
			fmt.Fprintf(out, "%s [seed %d, %s]\n", roll.Detail, seed, source)
			continue
		}
		fmt.Fprintln(out, roll.Detail)
	}
	return nil
}

func printHistory(ctx context.Context, roller *dicenotation.Roller, limit int, out io.Writer) error {
	records, err := roller.History(ctx, limit)
	if err != nil {
		return err
	}
	for _, record := range records {
		fmt.Fprintf(out, "%s  %-20s %s\n", record.CreatedAt.Format(time.RFC3339), record.Expression, record.Detail)
	}
	return nil
}
