// Package compile builds a validated expression tree from the grammar's
// syntax nodes, resolving operator precedence and enforcing limits.
package compile

import (
	"fmt"
	"strconv"

	"github.com/louisbranch/dicenotation/internal/core/check"
	"github.com/louisbranch/dicenotation/internal/core/dice"
	"github.com/louisbranch/dicenotation/internal/core/limit"
	"github.com/louisbranch/dicenotation/internal/expr/ast"
	"github.com/louisbranch/dicenotation/internal/expr/grammar"
	apperrors "github.com/louisbranch/dicenotation/internal/platform/errors"
)

// Compile compiles text with the default limits.
func Compile(text string) (*ast.CompiledExpression, error) {
	return CompileWithConfig(text, limit.DefaultConfig())
}

// CompileWithConfig compiles text under cfg. The first error aborts
// compilation; there is no partial result.
func CompileWithConfig(text string, cfg limit.Config) (*ast.CompiledExpression, error) {
	root, err := grammar.Parse(text)
	if err != nil {
		return nil, err
	}
	return Build(root, limit.NewTracker(cfg))
}

// Build walks a KindCommand node once and returns the compiled expression.
// Nested groups share tracker, so quotas are counted over the whole input.
// A node stream that breaks the grammar's shape contract fails with
// CodeInternal.
func Build(root grammar.Node, tracker *limit.Tracker) (expr *ast.CompiledExpression, err error) {
	defer recoverMalformed(&err)

	b := &builder{tracker: tracker}
	return b.command(root)
}

type builder struct {
	tracker *limit.Tracker
}

func (b *builder) command(n grammar.Node) (*ast.CompiledExpression, error) {
	expect(n, grammar.KindCommand)
	if len(n.Children) == 0 || len(n.Children) > 2 {
		malformed("command has %d children", len(n.Children))
	}

	root, err := b.expression(n.Children[0])
	if err != nil {
		return nil, err
	}
	expr := &ast.CompiledExpression{Root: root}
	if len(n.Children) == 2 {
		cond, err := b.checker(n.Children[1])
		if err != nil {
			return nil, err
		}
		expr.Condition = cond
	}
	return expr, nil
}

// cursor walks the flat item/operator sequence of one expression level.
type cursor struct {
	nodes []grammar.Node
	pos   int
}

func (c *cursor) done() bool { return c.pos >= len(c.nodes) }

func (c *cursor) next() grammar.Node {
	if c.done() {
		malformed("expression ends after an operator")
	}
	n := c.nodes[c.pos]
	c.pos++
	return n
}

func (b *builder) expression(n grammar.Node) (*ast.Node, error) {
	expect(n, grammar.KindExpr)
	c := &cursor{nodes: n.Children}
	root, err := b.climb(c, 1)
	if err != nil {
		return nil, err
	}
	if !c.done() {
		malformed("unexpected %s after expression", c.nodes[c.pos].Kind)
	}
	return root, nil
}

// climb is precedence climbing: fold operators whose binding power is at
// least minPower, and parse each right operand one level tighter so equal
// powers associate to the left.
func (b *builder) climb(c *cursor, minPower int) (*ast.Node, error) {
	left, err := b.item(c.next())
	if err != nil {
		return nil, err
	}
	for !c.done() {
		op := operator(c.nodes[c.pos])
		if op.BindingPower() < minPower {
			break
		}
		c.pos++
		right, err := b.climb(c, op.BindingPower()+1)
		if err != nil {
			return nil, err
		}
		left = ast.Join(left, op, right)
	}
	return left, nil
}

func (b *builder) item(n grammar.Node) (*ast.Node, error) {
	expect(n, grammar.KindItem)
	if len(n.Children) != 1 {
		malformed("item has %d children", len(n.Children))
	}

	child := n.Children[0]
	switch child.Kind {
	case grammar.KindNumber:
		x, err := b.number(child)
		if err != nil {
			return nil, err
		}
		return ast.Leaf(ast.NewNumber(x)), nil
	case grammar.KindDice:
		rule, err := b.dice(child)
		if err != nil {
			return nil, err
		}
		return ast.Leaf(ast.NewDice(rule)), nil
	case grammar.KindParenthesized:
		if len(child.Children) != 1 {
			malformed("parenthesized has %d children", len(child.Children))
		}
		inner, err := b.expression(child.Children[0])
		if err != nil {
			return nil, err
		}
		return ast.Leaf(ast.NewParenthesized(inner)), nil
	default:
		malformed("unexpected %s inside item", child.Kind)
		return nil, nil
	}
}

func (b *builder) number(n grammar.Node) (int64, error) {
	if err := b.tracker.IncrementItemCount(); err != nil {
		return 0, err
	}
	x, err := parseInt(n.Text)
	if err != nil {
		return 0, err
	}
	if err := b.tracker.CheckNumber(x); err != nil {
		return 0, err
	}
	return x, nil
}

func (b *builder) dice(n grammar.Node) (dice.Rule, error) {
	if len(n.Children) < 2 || len(n.Children) > 3 {
		malformed("dice has %d children", len(n.Children))
	}
	expect(n.Children[0], grammar.KindTimes)
	expect(n.Children[1], grammar.KindSides)

	if err := b.tracker.IncrementItemCount(); err != nil {
		return dice.Rule{}, err
	}
	times, err := parseInt(n.Children[0].Text)
	if err != nil {
		return dice.Rule{}, err
	}
	sides, err := parseInt(n.Children[1].Text)
	if err != nil {
		return dice.Rule{}, err
	}
	if err := b.tracker.CheckDice(times, sides); err != nil {
		return dice.Rule{}, err
	}
	if err := b.tracker.IncrementRollTimes(uint64(times)); err != nil {
		return dice.Rule{}, err
	}

	reduction := dice.ReductionSum
	if len(n.Children) == 3 {
		expect(n.Children[2], grammar.KindReduction)
		reduction, err = dice.ParseReduction(n.Children[2].Text)
		if err != nil {
			malformed("%v", err)
		}
	}
	return dice.NewWithReduction(uint64(times), uint64(sides), reduction), nil
}

func (b *builder) checker(n grammar.Node) (*check.Condition, error) {
	expect(n, grammar.KindChecker)
	if len(n.Children) != 2 {
		malformed("checker has %d children", len(n.Children))
	}
	expect(n.Children[0], grammar.KindCompare)
	expect(n.Children[1], grammar.KindNumber)

	compare, err := check.ParseCompare(n.Children[0].Text)
	if err != nil {
		malformed("%v", err)
	}
	target, err := parseInt(n.Children[1].Text)
	if err != nil {
		return nil, err
	}
	if err := b.tracker.CheckNumber(target); err != nil {
		return nil, err
	}
	return &check.Condition{Compare: compare, Target: target}, nil
}

func operator(n grammar.Node) ast.Operator {
	expect(n, grammar.KindOperator)
	op, err := ast.ParseOperator(n.Text)
	if err != nil {
		malformed("%v", err)
	}
	return op
}

func parseInt(text string) (int64, error) {
	x, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, apperrors.WrapWithMetadata(
			apperrors.CodeInvalidNumber,
			"invalid number",
			map[string]string{"text": text},
			err,
		)
	}
	return x, nil
}

// malformedError marks a panic raised for a broken node stream.
type malformedError struct {
	err *apperrors.Error
}

func malformed(format string, args ...any) {
	panic(malformedError{err: apperrors.New(apperrors.CodeInternal, "malformed syntax tree: "+fmt.Sprintf(format, args...))})
}

func expect(n grammar.Node, kind grammar.Kind) {
	if n.Kind != kind {
		malformed("expected %s, got %s", kind, n.Kind)
	}
}

func recoverMalformed(err *error) {
	r := recover()
	if r == nil {
		return
	}
	m, ok := r.(malformedError)
	if !ok {
		panic(r)
	}
	*err = m.err
}
