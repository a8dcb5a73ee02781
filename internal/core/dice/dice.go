// Package dice models one roll rule of a dice expression ("roll an S-sided
// die T times, then reduce") and the outcome of rolling it.
package dice

import (
	"fmt"
	"strings"
)

// Reduction is how the points of one roll collapse into a single number.
type Reduction int

const (
	// ReductionSum adds every point. It is the default.
	ReductionSum Reduction = iota
	// ReductionAvg divides the sum by the roll count, rounding down.
	ReductionAvg
	// ReductionMax keeps the highest point.
	ReductionMax
	// ReductionMin keeps the lowest point.
	ReductionMin
)

func (r Reduction) String() string {
	switch r {
	case ReductionSum:
		return "sum"
	case ReductionAvg:
		return "avg"
	case ReductionMax:
		return "max"
	case ReductionMin:
		return "min"
	default:
		return "unknown"
	}
}

// ParseReduction maps a case-insensitive keyword to a Reduction. An empty
// keyword means ReductionSum.
func ParseReduction(keyword string) (Reduction, error) {
	switch strings.ToLower(strings.TrimSpace(keyword)) {
	case "", "sum":
		return ReductionSum, nil
	case "avg":
		return ReductionAvg, nil
	case "max":
		return ReductionMax, nil
	case "min":
		return ReductionMin, nil
	default:
		return ReductionSum, fmt.Errorf("unknown reduction %q", keyword)
	}
}

// Rule describes one dice item. Times and Sides are always positive in a
// compiled expression.
type Rule struct {
	Times     uint64
	Sides     uint64
	Reduction Reduction
}

// New returns a rule rolling a sides-sided die times times, summed.
func New(times, sides uint64) Rule {
	return NewWithReduction(times, sides, ReductionSum)
}

// NewWithReduction returns a rule with an explicit reduction.
func NewWithReduction(times, sides uint64, reduction Reduction) Rule {
	return Rule{
		Times:     times,
		Sides:     sides,
		Reduction: reduction,
	}
}

// String renders the rule in notation form, e.g. "3d6max".
func (r Rule) String() string {
	if r.Reduction == ReductionSum {
		return fmt.Sprintf("%dd%d", r.Times, r.Sides)
	}
	return fmt.Sprintf("%dd%d%s", r.Times, r.Sides, r.Reduction)
}
