package dice

import (
	"math"
	"math/bits"
	"math/rand"
	"sync"
)

// RollWithRng rolls the rule using a provided random source.
// This is useful when you want to control the RNG directly.
//
// Points are drawn in order; the reduction is not applied until Value is read.
func (r Rule) RollWithRng(rng *rand.Rand) *Outcome {
	points := make([]uint64, r.Times)
	for i := range points {
		points[i] = rollDie(rng, r.Sides)
	}
	return NewOutcome(points, r.Reduction)
}

// Outcome holds the raw points of one roll. The reduced value is computed
// on first read and reused afterwards; an Outcome is safe to read from
// multiple goroutines.
type Outcome struct {
	points    []uint64
	reduction Reduction

	once  sync.Once
	value int64
}

// NewOutcome wraps already rolled points. points must not be empty.
func NewOutcome(points []uint64, reduction Reduction) *Outcome {
	return &Outcome{points: points, reduction: reduction}
}

// Points returns the rolled points in roll order.
func (o *Outcome) Points() []uint64 {
	return o.points
}

// Len returns the number of rolled points.
func (o *Outcome) Len() int {
	return len(o.points)
}

// Reduction returns the reduction applied by Value.
func (o *Outcome) Reduction() Reduction {
	return o.reduction
}

// Value returns the reduced value, clamped to math.MaxInt64.
func (o *Outcome) Value() int64 {
	o.once.Do(func() {
		o.value = reduce(o.points, o.reduction)
	})
	return o.value
}

func reduce(points []uint64, reduction Reduction) int64 {
	switch reduction {
	case ReductionAvg:
		hi, lo := sum128(points)
		quo, _ := bits.Div64(hi, lo, uint64(len(points)))
		return clampInt64(0, quo)
	case ReductionMax:
		best := points[0]
		for _, p := range points[1:] {
			best = max(best, p)
		}
		return clampInt64(0, best)
	case ReductionMin:
		best := points[0]
		for _, p := range points[1:] {
			best = min(best, p)
		}
		return clampInt64(0, best)
	default:
		return clampInt64(sum128(points))
	}
}

// sum128 adds the points without overflow. The high word stays below
// len(points), which keeps bits.Div64 in range for the average.
func sum128(points []uint64) (hi, lo uint64) {
	for _, p := range points {
		var carry uint64
		lo, carry = bits.Add64(lo, p, 0)
		hi += carry
	}
	return hi, lo
}

func clampInt64(hi, lo uint64) int64 {
	if hi != 0 || lo > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(lo)
}

// rollDie rolls a single die with the provided number of sides.
func rollDie(rng *rand.Rand, sides uint64) uint64 {
	if sides <= math.MaxInt64 {
		return uint64(rng.Int63n(int64(sides))) + 1
	}
	// Rejection sampling keeps huge dice uniform.
	limit := math.MaxUint64 - math.MaxUint64%sides
	for {
		v := rng.Uint64()
		if v < limit {
			return v%sides + 1
		}
	}
}
