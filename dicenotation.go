// Package dicenotation compiles and rolls tabletop dice expressions such as
// "3d6max+2d4+1>15".
//
// Compile validates text against the configured limits once; Evaluate rolls
// a compiled expression and may be called any number of times. Roller ties
// both together with caching, localized detail text and an optional roll log.
package dicenotation

import (
	"github.com/louisbranch/dicenotation/internal/core/limit"
	"github.com/louisbranch/dicenotation/internal/expr/ast"
	"github.com/louisbranch/dicenotation/internal/expr/compile"
	"github.com/louisbranch/dicenotation/internal/expr/detail"
	"github.com/louisbranch/dicenotation/internal/expr/eval"
)

type (
	// Config holds the compile limits.
	Config = limit.Config
	// CompiledExpression is a validated expression, safe to evaluate repeatedly.
	CompiledExpression = ast.CompiledExpression
	// Result is one evaluation of a compiled expression.
	Result = eval.Result
	// EvalOption configures one evaluation.
	EvalOption = eval.Option
	// DetailOptions selects the language of detail text.
	DetailOptions = detail.Options
)

// DefaultConfig returns the default limits: 20 items, 1000 sides,
// 100 rolls and numbers up to 65536 in magnitude.
func DefaultConfig() Config {
	return limit.DefaultConfig()
}

// Compile compiles text with the default limits.
func Compile(text string) (*CompiledExpression, error) {
	return compile.Compile(text)
}

// CompileWithConfig compiles text under cfg.
func CompileWithConfig(text string, cfg Config) (*CompiledExpression, error) {
	return compile.CompileWithConfig(text, cfg)
}

// Evaluate rolls expr. Every call rolls fresh dice unless WithSeed is given.
func Evaluate(expr *CompiledExpression, opts ...EvalOption) *Result {
	return eval.Evaluate(expr, opts...)
}

// WithSeed makes an evaluation reproducible.
func WithSeed(seed int64) EvalOption {
	return eval.WithSeed(seed)
}

// Detail renders res as human-readable text.
func Detail(res *Result, opts DetailOptions) string {
	return detail.Render(res, opts)
}
