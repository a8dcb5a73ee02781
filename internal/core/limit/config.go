// Package limit bounds the size of a dice expression while it is compiled.
package limit

// Default limits.
const (
	DefaultMaxItemCount       uint64 = 20
	DefaultMaxDiceSides       uint64 = 1000
	DefaultMaxRollTimes       uint64 = 100
	DefaultMaxNumberMagnitude uint64 = 65536
)

// Config holds the limits applied to one compilation. It is a value type:
// the With* helpers return modified copies so a shared Config never changes
// under a running compilation.
type Config struct {
	// MaxItemCount is how many number and dice items an expression may hold.
	MaxItemCount uint64 `env:"DICENOTATION_MAX_ITEM_COUNT"       envDefault:"20"`
	// MaxDiceSides is the largest side count a single dice may have.
	MaxDiceSides uint64 `env:"DICENOTATION_MAX_DICE_SIDES"       envDefault:"1000"`
	// MaxRollTimes caps the total roll count summed over every dice item.
	MaxRollTimes uint64 `env:"DICENOTATION_MAX_ROLL_TIMES"       envDefault:"100"`
	// MaxNumberMagnitude bounds |x| for number items and checker targets.
	MaxNumberMagnitude uint64 `env:"DICENOTATION_MAX_NUMBER_MAGNITUDE" envDefault:"65536"`
}

// DefaultConfig returns the default limits.
//
//   - max item count: 20
//   - max dice sides: 1000
//   - max roll times: 100
//   - max number magnitude: 65536
func DefaultConfig() Config {
	return Config{
		MaxItemCount:       DefaultMaxItemCount,
		MaxDiceSides:       DefaultMaxDiceSides,
		MaxRollTimes:       DefaultMaxRollTimes,
		MaxNumberMagnitude: DefaultMaxNumberMagnitude,
	}
}

// WithMaxItemCount returns a copy with only the item count limit changed.
func (c Config) WithMaxItemCount(n uint64) Config {
	c.MaxItemCount = n
	return c
}

// WithMaxDiceSides returns a copy with only the dice sides limit changed.
func (c Config) WithMaxDiceSides(n uint64) Config {
	c.MaxDiceSides = n
	return c
}

// WithMaxRollTimes returns a copy with only the roll times limit changed.
func (c Config) WithMaxRollTimes(n uint64) Config {
	c.MaxRollTimes = n
	return c
}

// WithMaxNumberMagnitude returns a copy with only the number magnitude limit changed.
func (c Config) WithMaxNumberMagnitude(n uint64) Config {
	c.MaxNumberMagnitude = n
	return c
}
