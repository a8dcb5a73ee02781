package limit

import (
	"errors"
	"math"
	"testing"

	apperrors "github.com/louisbranch/dicenotation/internal/platform/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxItemCount != 20 || cfg.MaxDiceSides != 1000 || cfg.MaxRollTimes != 100 || cfg.MaxNumberMagnitude != 65536 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestWithOverridesReturnCopies(t *testing.T) {
	base := DefaultConfig()
	custom := base.WithMaxItemCount(3).WithMaxDiceSides(6).WithMaxRollTimes(4).WithMaxNumberMagnitude(10)

	if base != DefaultConfig() {
		t.Fatalf("base config mutated: %+v", base)
	}
	want := Config{MaxItemCount: 3, MaxDiceSides: 6, MaxRollTimes: 4, MaxNumberMagnitude: 10}
	if custom != want {
		t.Fatalf("custom = %+v, want %+v", custom, want)
	}
}

func TestCheckNumber(t *testing.T) {
	tracker := NewTracker(DefaultConfig())
	tests := []struct {
		name    string
		x       int64
		wantErr error
	}{
		{name: "zero", x: 0},
		{name: "limit", x: 65536},
		{name: "negative limit", x: -65536},
		{name: "above limit", x: 65537, wantErr: apperrors.ErrNumberOutOfRange},
		{name: "below negative limit", x: -65537, wantErr: apperrors.ErrNumberOutOfRange},
		{name: "min int64", x: math.MinInt64, wantErr: apperrors.ErrNumberOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tracker.CheckNumber(tt.x)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("CheckNumber(%d) error = %v", tt.x, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckNumber(%d) error = %v, want %v", tt.x, err, tt.wantErr)
			}
		})
	}
}

func TestCheckNumberMinInt64WithHugeLimit(t *testing.T) {
	tracker := NewTracker(DefaultConfig().WithMaxNumberMagnitude(math.MaxUint64))
	if err := tracker.CheckNumber(math.MinInt64); err != nil {
		t.Fatalf("CheckNumber(MinInt64) error = %v", err)
	}
}

func TestCheckDice(t *testing.T) {
	tracker := NewTracker(DefaultConfig())
	tests := []struct {
		name    string
		times   int64
		sides   int64
		wantErr error
	}{
		{name: "valid", times: 3, sides: 6},
		{name: "limits", times: 100, sides: 1000},
		{name: "zero times", times: 0, sides: 6, wantErr: apperrors.ErrNonPositiveDiceSpec},
		{name: "negative sides", times: 3, sides: -1, wantErr: apperrors.ErrNonPositiveDiceSpec},
		{name: "negative times", times: -10, sides: 10, wantErr: apperrors.ErrNonPositiveDiceSpec},
		{name: "too many times", times: 101, sides: 6, wantErr: apperrors.ErrTooManyRollTimes},
		{name: "too many sides", times: 1, sides: 1001, wantErr: apperrors.ErrTooManySides},
		{name: "times checked before sides", times: 101, sides: 1001, wantErr: apperrors.ErrTooManyRollTimes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tracker.CheckDice(tt.times, tt.sides)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("CheckDice(%d, %d) error = %v", tt.times, tt.sides, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckDice(%d, %d) error = %v, want %v", tt.times, tt.sides, err, tt.wantErr)
			}
		})
	}
}

func TestIncrementItemCountAllowsLimit(t *testing.T) {
	tracker := NewTracker(DefaultConfig().WithMaxItemCount(2))
	for i := 0; i < 2; i++ {
		if err := tracker.IncrementItemCount(); err != nil {
			t.Fatalf("increment %d: %v", i+1, err)
		}
	}
	if err := tracker.IncrementItemCount(); !errors.Is(err, apperrors.ErrTooManyItems) {
		t.Fatalf("third increment error = %v, want too many items", err)
	}
	if tracker.ItemCount() != 3 {
		t.Fatalf("ItemCount() = %d, want 3", tracker.ItemCount())
	}
}

func TestIncrementRollTimesIsShared(t *testing.T) {
	tracker := NewTracker(DefaultConfig())
	if err := tracker.IncrementRollTimes(60); err != nil {
		t.Fatalf("first dice: %v", err)
	}
	if err := tracker.IncrementRollTimes(40); err != nil {
		t.Fatalf("second dice at limit: %v", err)
	}
	if err := tracker.IncrementRollTimes(1); !errors.Is(err, apperrors.ErrTooManyRollTimes) {
		t.Fatalf("third dice error = %v, want too many roll times", err)
	}
}

func TestIncrementRollTimesSaturates(t *testing.T) {
	tracker := NewTracker(DefaultConfig().WithMaxRollTimes(math.MaxUint64))
	if err := tracker.IncrementRollTimes(math.MaxUint64); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := tracker.IncrementRollTimes(5); err != nil {
		t.Fatalf("saturated sum must stay within a MaxUint64 limit: %v", err)
	}
	if tracker.RollTimes() != math.MaxUint64 {
		t.Fatalf("RollTimes() = %d", tracker.RollTimes())
	}
}
