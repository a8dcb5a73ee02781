package dicenotation

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/louisbranch/dicenotation/internal/expr/cache"
	"github.com/louisbranch/dicenotation/internal/expr/compile"
	"github.com/louisbranch/dicenotation/internal/expr/detail"
	"github.com/louisbranch/dicenotation/internal/expr/eval"
	apperrors "github.com/louisbranch/dicenotation/internal/platform/errors"
	"github.com/louisbranch/dicenotation/internal/platform/errors/i18n"
	"github.com/louisbranch/dicenotation/internal/platform/otel"
	"github.com/louisbranch/dicenotation/internal/storage"
)

// Roller compiles, rolls and optionally records expressions for a host.
// It is safe for concurrent use.
type Roller struct {
	config Config
	locale string
	cache  *cache.Cache
	log    storage.RollLog
}

// RollerOption configures a Roller.
type RollerOption func(*Roller)

// WithConfig sets the compile limits.
func WithConfig(cfg Config) RollerOption {
	return func(r *Roller) {
		r.config = cfg
	}
}

// WithLocale sets the language of detail text and error messages.
func WithLocale(locale string) RollerOption {
	return func(r *Roller) {
		r.locale = strings.TrimSpace(locale)
	}
}

// WithCacheCapacity sets how many compiled expressions are kept.
func WithCacheCapacity(capacity int) RollerOption {
	return func(r *Roller) {
		r.cache = cache.New(capacity)
	}
}

// WithRollLog records every successful roll in log.
func WithRollLog(log storage.RollLog) RollerOption {
	return func(r *Roller) {
		r.log = log
	}
}

// NewRoller returns a Roller with default limits and locale.
func NewRoller(opts ...RollerOption) *Roller {
	r := &Roller{
		config: DefaultConfig(),
		cache:  cache.New(cache.DefaultCapacity),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Roll is one rolled expression.
type Roll struct {
	Expression string
	Result     *Result
	Detail     string
	// RecordID is set when the roll was written to the roll log.
	RecordID string
}

// Passed reports the verdict of the condition; ok is false without one.
func (r Roll) Passed() (passed bool, ok bool) {
	return r.Result.Passed()
}

// Compile compiles text with the roller's limits, reusing cached results.
func (r *Roller) Compile(ctx context.Context, text string) (*CompiledExpression, error) {
	text = strings.TrimSpace(text)
	_, span := otel.StartSpan(ctx, "dicenotation.compile", attribute.String("dice.expression", text))
	expr, err := r.cache.GetOrCompile(cache.Key{Text: text, Config: r.config}, compile.CompileWithConfig)
	if err != nil {
		span.SetAttributes(attribute.String("dice.error_code", string(apperrors.CodeOf(err))))
	}
	otel.EndSpan(span, err)
	return expr, err
}

// Roll compiles and evaluates text, renders its detail and records it when
// a roll log is configured. locale overrides the roller's locale when not
// empty.
func (r *Roller) Roll(ctx context.Context, text string, locale string, opts ...EvalOption) (Roll, error) {
	ctx, span := otel.StartSpan(ctx, "dicenotation.roll")
	roll, err := r.roll(ctx, text, locale, opts...)
	if err == nil {
		span.SetAttributes(attribute.Int64("dice.value", roll.Result.Value()))
		if passed, ok := roll.Passed(); ok {
			span.SetAttributes(attribute.Bool("dice.passed", passed))
		}
	}
	otel.EndSpan(span, err)
	return roll, err
}

func (r *Roller) roll(ctx context.Context, text string, locale string, opts ...EvalOption) (Roll, error) {
	expr, err := r.Compile(ctx, text)
	if err != nil {
		return Roll{}, err
	}
	if strings.TrimSpace(locale) == "" {
		locale = r.locale
	}

	_, span := otel.StartSpan(ctx, "dicenotation.evaluate")
	res := eval.Evaluate(expr, opts...)
	roll := Roll{
		Expression: strings.TrimSpace(text),
		Result:     res,
		Detail:     detail.Render(res, detail.Options{Locale: locale}),
	}
	otel.EndSpan(span, nil)

	if r.log == nil {
		return roll, nil
	}
	seed, source := res.Seed()
	record := storage.RollRecord{
		Expression: roll.Expression,
		Value:      res.Value(),
		Detail:     roll.Detail,
		Locale:     locale,
		Seed:       seed,
		SeedSource: string(source),
	}
	if passed, ok := res.Passed(); ok {
		record.Passed = &passed
	}
	stored, err := r.log.AppendRoll(ctx, record)
	if err != nil {
		return Roll{}, err
	}
	roll.RecordID = stored.ID
	return roll, nil
}

// History returns the most recent logged rolls. Without a roll log it
// returns nothing.
func (r *Roller) History(ctx context.Context, limit int) ([]storage.RollRecord, error) {
	if r.log == nil {
		return nil, nil
	}
	return r.log.ListRolls(ctx, limit)
}

// HistoryPage returns one page of logged rolls, newest first. Without a roll
// log it returns an empty page.
func (r *Roller) HistoryPage(ctx context.Context, req storage.RollPageRequest) (storage.RollPage, error) {
	if r.log == nil {
		return storage.RollPage{}, nil
	}
	return r.log.ListRollPage(ctx, req)
}

// LocalizeError renders err in locale, or in the roller's locale when
// locale is empty.
func (r *Roller) LocalizeError(locale string, err error) string {
	if strings.TrimSpace(locale) == "" {
		locale = r.locale
	}
	return i18n.Localize(locale, err)
}

// Locale returns the roller's default locale.
func (r *Roller) Locale() string {
	return r.locale
}

// Config returns the roller's compile limits.
func (r *Roller) Config() Config {
	return r.config
}
