// Package detail renders an evaluated expression as human-readable text,
// e.g. "Max(3, 5) + (2+4) + 1 = 12, target is >15, failed".
package detail

import (
	"strconv"
	"strings"

	"github.com/louisbranch/dicenotation/internal/core/dice"
	"github.com/louisbranch/dicenotation/internal/expr/eval"
	"github.com/louisbranch/dicenotation/internal/platform/i18n/catalog"
	"golang.org/x/text/message"
)

// Options selects how a result is rendered. The zero value renders in the
// base locale.
type Options struct {
	Locale string
}

// Render formats res. A bare number has no " = value" suffix; a result with
// a condition ends with the target and the verdict.
func Render(res *eval.Result, opts Options) string {
	r := renderer{printer: catalog.Default().Printer(opts.Locale)}

	var b strings.Builder
	r.node(&b, res.Root())

	if item, ok := res.Root().Item(); !ok || !item.IsNumber() {
		b.WriteString(" = ")
		b.WriteString(itoa(res.Value()))
	}

	if cond := res.Condition(); cond != nil {
		b.WriteString(r.printer.Sprintf("detail.target", cond.Compare.Symbol(), itoa(cond.Target)))
		if passed, _ := res.Passed(); passed {
			b.WriteString(r.printer.Sprintf("detail.success"))
		} else {
			b.WriteString(r.printer.Sprintf("detail.failed"))
		}
	}
	return b.String()
}

type renderer struct {
	printer *message.Printer
}

func (r renderer) node(b *strings.Builder, n *eval.Node) {
	if item, ok := n.Item(); ok {
		r.item(b, item)
		return
	}
	r.node(b, n.Left())
	b.WriteString(" ")
	b.WriteString(n.Operator().Symbol())
	b.WriteString(" ")
	r.node(b, n.Right())
}

func (r renderer) item(b *strings.Builder, item *eval.ItemResult) {
	if outcome, ok := item.AsDice(); ok {
		r.dice(b, outcome)
		return
	}
	if inner, ok := item.AsParenthesized(); ok {
		b.WriteString("(")
		r.node(b, inner)
		b.WriteString(")")
		return
	}
	x, _ := item.AsNumber()
	b.WriteString(itoa(x))
}

func (r renderer) dice(b *strings.Builder, outcome *dice.Outcome) {
	sep := ", "
	switch outcome.Reduction() {
	case dice.ReductionAvg:
		b.WriteString(r.printer.Sprintf("detail.reduction.avg"))
	case dice.ReductionMax:
		b.WriteString(r.printer.Sprintf("detail.reduction.max"))
	case dice.ReductionMin:
		b.WriteString(r.printer.Sprintf("detail.reduction.min"))
	default:
		sep = "+"
	}

	b.WriteString("(")
	for i, p := range outcome.Points() {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteString(strconv.FormatUint(p, 10))
	}
	b.WriteString(")")
}

// itoa keeps numbers free of locale digit grouping.
func itoa(x int64) string {
	return strconv.FormatInt(x, 10)
}
