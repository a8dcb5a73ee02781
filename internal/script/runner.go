package script

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/louisbranch/dicenotation"
	apperrors "github.com/louisbranch/dicenotation/internal/platform/errors"
	"github.com/louisbranch/dicenotation/internal/platform/timeouts"
)

// AssertionMode controls how failed expectations are reported.
type AssertionMode int

const (
	// AssertionStrict stops the scenario at the first failed expectation.
	AssertionStrict AssertionMode = iota
	// AssertionLogOnly logs failed expectations and keeps going.
	AssertionLogOnly
)

// Assertions reports expectation failures according to its mode.
type Assertions struct {
	Mode   AssertionMode
	Logger *log.Logger

	failures int
}

// Failf reports a failed expectation.
func (a *Assertions) Failf(format string, args ...any) error {
	a.failures++
	if a.Mode == AssertionLogOnly {
		if a.Logger != nil {
			a.Logger.Printf("expectation: "+format, args...)
		}
		return nil
	}
	return fmt.Errorf(format, args...)
}

// Failures returns the number of failed expectations seen so far.
func (a *Assertions) Failures() int {
	return a.failures
}

// Config controls scenario execution.
type Config struct {
	Timeout    time.Duration
	Assertions AssertionMode
	Verbose    bool
	Logger     *log.Logger
}

// DefaultConfig returns default runner configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:    timeouts.ScenarioStep,
		Assertions: AssertionStrict,
	}
}

// Runner replays scenario steps against a roller.
type Runner struct {
	roller     *dicenotation.Roller
	assertions *Assertions
	logger     *log.Logger
	verbose    bool
	timeout    time.Duration
}

// NewRunner prepares a runner for roller.
func NewRunner(cfg Config, roller *dicenotation.Roller) (*Runner, error) {
	if roller == nil {
		return nil, errors.New("roller is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Runner{
		roller:     roller,
		assertions: &Assertions{Mode: cfg.Assertions, Logger: cfg.Logger},
		logger:     cfg.Logger,
		verbose:    cfg.Verbose,
		timeout:    cfg.Timeout,
	}, nil
}

// RunFile loads and executes a scenario file.
func RunFile(ctx context.Context, cfg Config, roller *dicenotation.Roller, path string) error {
	runner, err := NewRunner(cfg, roller)
	if err != nil {
		return err
	}
	scenario, err := LoadScenarioFromFile(ctx, path, roller)
	if err != nil {
		return err
	}
	return runner.RunScenario(ctx, scenario)
}

// Failures returns the number of failed expectations across runs.
func (r *Runner) Failures() int {
	return r.assertions.Failures()
}

// RunScenario executes the scenario steps in order.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) error {
	if scenario == nil {
		return errors.New("scenario is required")
	}
	r.logf("scenario start: %s (%d steps)", scenario.Name, len(scenario.Steps))

	for index, step := range scenario.Steps {
		stepNumber := index + 1
		r.logf("step %d/%d start: %s %v", stepNumber, len(scenario.Steps), step.Kind, step.Args["expr"])
		stepStart := time.Now()
		stepCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.runStep(stepCtx, step)
		cancel()
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", stepNumber, step.Kind, err)
		}
		r.logf("step %d/%d done: %s (%s)", stepNumber, len(scenario.Steps), step.Kind, time.Since(stepStart))
	}
	r.logf("scenario done: %s", scenario.Name)
	return nil
}

func (r *Runner) runStep(ctx context.Context, step Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch step.Kind {
	case StepRoll:
		return r.runRoll(ctx, step.Args)
	case StepCompile:
		return r.runCompile(ctx, step.Args)
	case StepReject:
		return r.runReject(ctx, step.Args)
	default:
		return fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

func (r *Runner) runRoll(ctx context.Context, args map[string]any) error {
	text := stringArg(args, "expr")
	locale := stringArg(args, "locale")
	var opts []dicenotation.EvalOption
	seed, ok, err := seedArg(args)
	if err != nil {
		return fmt.Errorf("roll %q: %w", text, err)
	}
	if ok {
		opts = append(opts, dicenotation.WithSeed(seed))
	}

	roll, err := r.roller.Roll(ctx, text, locale, opts...)
	if err != nil {
		return fmt.Errorf("roll %q: %s", text, r.roller.LocalizeError(locale, err))
	}
	value := roll.Result.Value()
	r.logf("roll %q: %s", text, roll.Detail)

	if want, ok := intArg(args, "value"); ok && value != want {
		if err := r.assertions.Failf("roll %q value = %d, want %d", text, value, want); err != nil {
			return err
		}
	}
	if low, ok := intArg(args, "min"); ok && value < low {
		if err := r.assertions.Failf("roll %q value = %d, want at least %d", text, value, low); err != nil {
			return err
		}
	}
	if high, ok := intArg(args, "max"); ok && value > high {
		if err := r.assertions.Failf("roll %q value = %d, want at most %d", text, value, high); err != nil {
			return err
		}
	}
	if want, ok := args["passed"].(bool); ok {
		passed, has := roll.Passed()
		if !has || passed != want {
			if err := r.assertions.Failf("roll %q passed = %v (has condition %v), want %v", text, passed, has, want); err != nil {
				return err
			}
		}
	}
	if want, ok := args["detail"].(string); ok && roll.Detail != want {
		if err := r.assertions.Failf("roll %q detail = %q, want %q", text, roll.Detail, want); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runCompile(ctx context.Context, args map[string]any) error {
	text := stringArg(args, "expr")
	expr, err := r.roller.Compile(ctx, text)
	if err != nil {
		return r.assertions.Failf("compile %q: %s", text, r.roller.LocalizeError(stringArg(args, "locale"), err))
	}
	if want, ok := args["normalized"].(string); ok && expr.String() != want {
		return r.assertions.Failf("compile %q = %q, want %q", text, expr.String(), want)
	}
	return nil
}

func (r *Runner) runReject(ctx context.Context, args map[string]any) error {
	text := stringArg(args, "expr")
	_, err := r.roller.Compile(ctx, text)
	if err == nil {
		return r.assertions.Failf("compile %q succeeded, want an error", text)
	}
	if want := stringArg(args, "code"); want != "" {
		if got := apperrors.CodeOf(err); string(got) != want {
			return r.assertions.Failf("compile %q error code = %s, want %s", text, got, want)
		}
	}
	if want, ok := args["message"].(string); ok {
		if got := r.roller.LocalizeError(stringArg(args, "locale"), err); got != want {
			return r.assertions.Failf("compile %q message = %q, want %q", text, got, want)
		}
	}
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if !r.verbose || r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}

func stringArg(args map[string]any, key string) string {
	value, _ := args[key].(string)
	return value
}

// seedArg reads the seed as a decimal string, or as a number when it fits
// a Lua double exactly.
func seedArg(args map[string]any) (int64, bool, error) {
	if text, ok := args["seed"].(string); ok {
		seed, err := parseSeed(text)
		return seed, err == nil, err
	}
	seed, ok := intArg(args, "seed")
	return seed, ok, nil
}

func intArg(args map[string]any, key string) (int64, bool) {
	switch value := args[key].(type) {
	case int64:
		return value, true
	case int:
		return int64(value), true
	default:
		return 0, false
	}
}
