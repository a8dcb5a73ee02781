package limit

import (
	"strconv"

	apperrors "github.com/louisbranch/dicenotation/internal/platform/errors"
)

// Tracker accumulates item and roll counts over one compilation pass.
// A Tracker is not safe for concurrent use; each compilation owns its own.
type Tracker struct {
	config       Config
	itemCount    uint64
	rollTimesSum uint64
}

// NewTracker starts an empty tracker over config.
func NewTracker(config Config) *Tracker {
	return &Tracker{config: config}
}

// Config returns the limits the tracker enforces.
func (t *Tracker) Config() Config {
	return t.config
}

// ItemCount returns how many items have been counted so far.
func (t *Tracker) ItemCount() uint64 {
	return t.itemCount
}

// RollTimes returns the running roll-times total.
func (t *Tracker) RollTimes() uint64 {
	return t.rollTimesSum
}

// CheckNumber fails with NUMBER_OUT_OF_RANGE when |x| exceeds the magnitude limit.
func (t *Tracker) CheckNumber(x int64) error {
	if magnitude(x) > t.config.MaxNumberMagnitude {
		return apperrors.WithMetadata(apperrors.CodeNumberOutOfRange, "number out of range", map[string]string{
			"number": strconv.FormatInt(x, 10),
			"limit":  strconv.FormatUint(t.config.MaxNumberMagnitude, 10),
		})
	}
	return nil
}

// CheckDice validates one dice spec. Signs are checked before anything is
// treated as unsigned.
func (t *Tracker) CheckDice(times, sides int64) error {
	if times <= 0 || sides <= 0 {
		return apperrors.WithMetadata(apperrors.CodeDiceNonPositiveSpec, "dice roll times and sides must be positive", map[string]string{
			"times": strconv.FormatInt(times, 10),
			"sides": strconv.FormatInt(sides, 10),
		})
	}
	if uint64(times) > t.config.MaxRollTimes {
		return t.rollTimesError(uint64(times))
	}
	if uint64(sides) > t.config.MaxDiceSides {
		return apperrors.WithMetadata(apperrors.CodeTooManySides, "dice sides limit exceeded", map[string]string{
			"sides": strconv.FormatInt(sides, 10),
			"limit": strconv.FormatUint(t.config.MaxDiceSides, 10),
		})
	}
	return nil
}

// IncrementItemCount counts one more item. The limit itself is an allowed count.
func (t *Tracker) IncrementItemCount() error {
	t.itemCount++
	if t.itemCount > t.config.MaxItemCount {
		return apperrors.WithMetadata(apperrors.CodeTooManyItems, "item count limit exceeded", map[string]string{
			"count": strconv.FormatUint(t.itemCount, 10),
			"limit": strconv.FormatUint(t.config.MaxItemCount, 10),
		})
	}
	return nil
}

// IncrementRollTimes adds n to the roll quota shared by every dice item of
// the expression.
func (t *Tracker) IncrementRollTimes(n uint64) error {
	sum := t.rollTimesSum + n
	if sum < t.rollTimesSum {
		sum = ^uint64(0)
	}
	t.rollTimesSum = sum
	if t.rollTimesSum > t.config.MaxRollTimes {
		return t.rollTimesError(t.rollTimesSum)
	}
	return nil
}

func (t *Tracker) rollTimesError(times uint64) error {
	return apperrors.WithMetadata(apperrors.CodeTooManyRollTimes, "dice roll times limit exceeded", map[string]string{
		"times": strconv.FormatUint(times, 10),
		"limit": strconv.FormatUint(t.config.MaxRollTimes, 10),
	})
}

func magnitude(x int64) uint64 {
	if x < 0 {
		// -MinInt64 overflows int64 but not uint64.
		return uint64(-(x + 1)) + 1
	}
	return uint64(x)
}
