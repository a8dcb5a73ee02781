// Package check decides whether the value of an expression meets a target.
package check

import "fmt"

// Compare is the relational operator of a Condition.
type Compare int

const (
	// Gte is greater than or equal.
	Gte Compare = iota
	// Gt is greater than.
	Gt
	// Lte is less than or equal.
	Lte
	// Lt is less than.
	Lt
	// Eq is equal.
	Eq
)

// ParseCompare maps a compare symbol to a Compare. Both "=" and "==" mean Eq.
func ParseCompare(symbol string) (Compare, error) {
	switch symbol {
	case ">=":
		return Gte, nil
	case ">":
		return Gt, nil
	case "<=":
		return Lte, nil
	case "<":
		return Lt, nil
	case "=", "==":
		return Eq, nil
	default:
		return 0, fmt.Errorf("unknown compare symbol %q", symbol)
	}
}

// Symbol returns the canonical symbol of c.
func (c Compare) Symbol() string {
	switch c {
	case Gte:
		return ">="
	case Gt:
		return ">"
	case Lte:
		return "<="
	case Lt:
		return "<"
	case Eq:
		return "="
	default:
		return "?"
	}
}

func (c Compare) String() string {
	return c.Symbol()
}

// Condition is the optional pass/fail comparison of an expression,
// e.g. ">= 10" in "3d6 >= 10".
type Condition struct {
	Compare Compare
	Target  int64
}

// Matches reports whether value satisfies the condition.
func (c Condition) Matches(value int64) bool {
	switch c.Compare {
	case Gte:
		return value >= c.Target
	case Gt:
		return value > c.Target
	case Lte:
		return value <= c.Target
	case Lt:
		return value < c.Target
	case Eq:
		return value == c.Target
	default:
		return false
	}
}

func (c Condition) String() string {
	return fmt.Sprintf("%s%d", c.Compare.Symbol(), c.Target)
}
