// Package eval rolls a compiled expression and computes its value.
//
// Evaluate builds a fresh result tree per call: dice are rolled once while
// the tree is built, and every reduced or combined value is computed on
// first read and then reused. Result trees are safe for concurrent reads.
package eval

import (
	"math/rand"
	"sync"
	"time"

	"github.com/louisbranch/dicenotation/internal/core/check"
	"github.com/louisbranch/dicenotation/internal/core/dice"
	"github.com/louisbranch/dicenotation/internal/expr/ast"
	"github.com/louisbranch/dicenotation/internal/random"
)

// Option configures one evaluation.
type Option func(*options)

type options struct {
	seed     *int64
	generate func() (int64, error)
}

// WithSeed rolls with a fixed seed, so the same expression and seed always
// produce the same points.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = &seed
	}
}

// withSeedGenerator replaces the crypto seed source.
func withSeedGenerator(generate func() (int64, error)) Option {
	return func(o *options) {
		o.generate = generate
	}
}

// Evaluate rolls every dice item of expr and returns the result tree.
// It never fails: compiled expressions are already bounded, and arithmetic
// saturates instead of overflowing.
func Evaluate(expr *ast.CompiledExpression, opts ...Option) *Result {
	o := options{generate: random.NewSeed}
	for _, opt := range opts {
		opt(&o)
	}

	seed, source, err := random.ResolveSeed(o.seed, o.generate)
	if err != nil {
		seed, source = time.Now().UnixNano(), random.SeedSourceGenerated
	}
	rng := rand.New(rand.NewSource(seed))

	return &Result{
		root:       build(expr.Root, rng),
		condition:  expr.Condition,
		seed:       seed,
		seedSource: source,
	}
}

func build(n *ast.Node, rng *rand.Rand) *Node {
	item, ok := n.Item()
	if !ok {
		return &Node{
			left:  build(n.Left(), rng),
			op:    n.Operator(),
			right: build(n.Right(), rng),
		}
	}

	var res ItemResult
	switch item.Kind() {
	case ast.NumberItem:
		x, _ := item.AsNumber()
		res = ItemResult{kind: ast.NumberItem, number: x}
	case ast.DiceItem:
		rule, _ := item.AsDice()
		res = ItemResult{kind: ast.DiceItem, dice: rule.RollWithRng(rng)}
	case ast.ParenthesizedItem:
		inner, _ := item.AsParenthesized()
		res = ItemResult{kind: ast.ParenthesizedItem, inner: build(inner, rng)}
	}
	return &Node{leaf: &res}
}

// Result is one evaluation of a compiled expression.
type Result struct {
	root       *Node
	condition  *check.Condition
	seed       int64
	seedSource random.SeedSource
}

// Value returns the value of the whole expression.
func (r *Result) Value() int64 {
	return r.root.Value()
}

// Passed reports whether the value meets the condition. ok is false when
// the expression has no condition.
func (r *Result) Passed() (passed bool, ok bool) {
	if r.condition == nil {
		return false, false
	}
	return r.condition.Matches(r.Value()), true
}

// Root returns the evaluated tree.
func (r *Result) Root() *Node {
	return r.root
}

// Condition returns the checker of the expression, or nil.
func (r *Result) Condition() *check.Condition {
	return r.condition
}

// Seed returns the seed the dice were rolled with and where it came from.
func (r *Result) Seed() (int64, random.SeedSource) {
	return r.seed, r.seedSource
}

// ItemResult is an evaluated leaf: a number, a rolled dice, or an
// evaluated parenthesized group.
type ItemResult struct {
	kind   ast.ItemKind
	number int64
	dice   *dice.Outcome
	inner  *Node
}

// Kind reports which variant i holds.
func (i *ItemResult) Kind() ast.ItemKind { return i.kind }

// IsNumber reports whether i is a number item.
func (i *ItemResult) IsNumber() bool { return i.kind == ast.NumberItem }

// IsDice reports whether i holds a rolled dice.
func (i *ItemResult) IsDice() bool { return i.kind == ast.DiceItem }

// IsParenthesized reports whether i holds an evaluated group.
func (i *ItemResult) IsParenthesized() bool { return i.kind == ast.ParenthesizedItem }

// AsNumber returns the number when i is a number item.
func (i *ItemResult) AsNumber() (int64, bool) {
	return i.number, i.kind == ast.NumberItem
}

// AsDice returns the dice outcome when i is a dice item.
func (i *ItemResult) AsDice() (*dice.Outcome, bool) {
	return i.dice, i.kind == ast.DiceItem
}

// AsParenthesized returns the evaluated group when i is parenthesized.
func (i *ItemResult) AsParenthesized() (*Node, bool) {
	return i.inner, i.kind == ast.ParenthesizedItem
}

// Value returns the value of the item.
func (i *ItemResult) Value() int64 {
	switch i.kind {
	case ast.DiceItem:
		return i.dice.Value()
	case ast.ParenthesizedItem:
		return i.inner.Value()
	default:
		return i.number
	}
}

// Node mirrors ast.Node with evaluated values.
type Node struct {
	leaf  *ItemResult
	left  *Node
	op    ast.Operator
	right *Node

	once  sync.Once
	value int64
}

// IsLeaf reports whether n holds an evaluated item.
func (n *Node) IsLeaf() bool { return n.leaf != nil }

// IsNode reports whether n joins two subtrees with an operator.
func (n *Node) IsNode() bool { return n.leaf == nil }

// Item returns the evaluated leaf; ok is false for internal nodes.
func (n *Node) Item() (*ItemResult, bool) {
	return n.leaf, n.leaf != nil
}

// Left returns the left subtree, or nil for a leaf.
func (n *Node) Left() *Node { return n.left }

// Right returns the right subtree, or nil for a leaf.
func (n *Node) Right() *Node { return n.right }

// Operator returns the operator joining the subtrees of an internal node.
func (n *Node) Operator() ast.Operator { return n.op }

// Value returns the value of the subtree, computing it on first call.
func (n *Node) Value() int64 {
	n.once.Do(func() {
		if n.leaf != nil {
			n.value = n.leaf.Value()
			return
		}
		n.value = apply(n.op, n.left.Value(), n.right.Value())
	})
	return n.value
}
