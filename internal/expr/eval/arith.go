package eval

import (
	"math"

	"github.com/louisbranch/dicenotation/internal/expr/ast"
)

// apply combines two values with op. Results that do not fit in int64
// saturate at math.MaxInt64 or math.MinInt64.
func apply(op ast.Operator, left, right int64) int64 {
	switch op {
	case ast.Add:
		return addSat(left, right)
	case ast.Subtract:
		return subSat(left, right)
	case ast.Multiply:
		return mulSat(left, right)
	default:
		panic("eval: unknown operator " + op.String())
	}
}

func addSat(a, b int64) int64 {
	s := a + b
	switch {
	case a > 0 && b > 0 && s < 0:
		return math.MaxInt64
	case a < 0 && b < 0 && s >= 0:
		return math.MinInt64
	}
	return s
}

func subSat(a, b int64) int64 {
	s := a - b
	switch {
	case a >= 0 && b < 0 && s < 0:
		return math.MaxInt64
	case a < 0 && b > 0 && s > 0:
		return math.MinInt64
	}
	return s
}

func mulSat(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	p := a * b
	overflow := p/b != a ||
		(a == -1 && b == math.MinInt64) ||
		(b == -1 && a == math.MinInt64)
	if !overflow {
		return p
	}
	if (a < 0) != (b < 0) {
		return math.MinInt64
	}
	return math.MaxInt64
}
