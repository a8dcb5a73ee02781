// Package scenario parses scenario command flags and runs Lua dice scenarios.
package scenario

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"time"

	"github.com/louisbranch/dicenotation/internal/cmd/host"
	entrypoint "github.com/louisbranch/dicenotation/internal/platform/cmd"
	"github.com/louisbranch/dicenotation/internal/script"
)

// Config holds scenario command configuration.
type Config struct {
	Host       host.Config
	Scenario   string        `env:"DICENOTATION_SCENARIO_FILE"`
	Assertions bool          `env:"DICENOTATION_SCENARIO_ASSERT"  envDefault:"true"`
	Verbose    bool          `env:"DICENOTATION_SCENARIO_VERBOSE"`
	Timeout    time.Duration `env:"DICENOTATION_SCENARIO_TIMEOUT" envDefault:"10s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	host.RegisterFlags(fs, &cfg.Host)
	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "path to scenario lua file")
	fs.BoolVar(&cfg.Assertions, "assert", cfg.Assertions, "enable assertions (disable to log expectations)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout per step")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.Scenario == "" && fs.NArg() > 0 {
		cfg.Scenario = fs.Arg(0)
	}
	return cfg, nil
}

// Run executes the scenario command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceScenario, func(ctx context.Context) error {
		return run(ctx, cfg, out, errOut)
	})
}

func run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Scenario == "" {
		return errors.New("scenario path is required")
	}

	mode := script.AssertionStrict
	if !cfg.Assertions {
		mode = script.AssertionLogOnly
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

	logger := log.New(errOut, "", 0)
	runner, err := script.NewRunner(script.Config{
		Timeout:    cfg.Timeout,
		Assertions: mode,
		Verbose:    cfg.Verbose,
		Logger:     logger,
	}, roller)
	if err != nil {
		return err
	}
	loaded, err := script.LoadScenarioFromFile(ctx, cfg.Scenario, roller)
	if err != nil {
		return err
	}
	if err := runner.RunScenario(ctx, loaded); err != nil {
		return err
	}
	if failures := runner.Failures(); failures > 0 {
		logger.Printf("scenario %s: %d expectation(s) failed", loaded.Name, failures)
	}
	_, err = io.WriteString(out, "scenario "+loaded.Name+" ok\n")
	return err
}
