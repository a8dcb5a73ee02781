// Package ast defines the compiled form of a dice expression: a strictly
// binary tree of items joined by operators, plus an optional condition.
package ast

import (
	"fmt"
	"strings"

	"github.com/louisbranch/dicenotation/internal/core/check"
	"github.com/louisbranch/dicenotation/internal/core/dice"
)

// Operator joins two sub-expressions.
type Operator int

const (
	// Add is "+".
	Add Operator = iota
	// Subtract is "-".
	Subtract
	// Multiply is "*", "x" or "X".
	Multiply
)

// ParseOperator maps an operator symbol to an Operator.
func ParseOperator(symbol string) (Operator, error) {
	switch symbol {
	case "+":
		return Add, nil
	case "-":
		return Subtract, nil
	case "*", "x", "X":
		return Multiply, nil
	default:
		return 0, fmt.Errorf("unknown operator %q", symbol)
	}
}

// Symbol returns the canonical symbol of op.
func (op Operator) Symbol() string {
	switch op {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	default:
		return "?"
	}
}

func (op Operator) String() string {
	return op.Symbol()
}

// BindingPower orders operators for precedence climbing; higher binds tighter.
func (op Operator) BindingPower() int {
	if op == Multiply {
		return 2
	}
	return 1
}

// ItemKind tags the variant held by an Item.
type ItemKind int

const (
	// NumberItem is an integer literal.
	NumberItem ItemKind = iota
	// DiceItem is a dice rule such as 3d6max.
	DiceItem
	// ParenthesizedItem is a grouped sub-expression.
	ParenthesizedItem
)

// Item is a leaf value: a number, a dice rule, or a parenthesized
// sub-expression. Exactly one variant is set, as reported by Kind.
type Item struct {
	kind   ItemKind
	number int64
	dice   dice.Rule
	inner  *Node
}

// NewNumber returns a number item.
func NewNumber(x int64) Item {
	return Item{kind: NumberItem, number: x}
}

// NewDice returns a dice item.
func NewDice(rule dice.Rule) Item {
	return Item{kind: DiceItem, dice: rule}
}

// NewParenthesized wraps a sub-expression. inner must not be nil.
func NewParenthesized(inner *Node) Item {
	return Item{kind: ParenthesizedItem, inner: inner}
}

// Kind reports which variant i holds.
func (i Item) Kind() ItemKind { return i.kind }

// IsNumber reports whether i is a number item.
func (i Item) IsNumber() bool { return i.kind == NumberItem }

// IsDice reports whether i is a dice item.
func (i Item) IsDice() bool { return i.kind == DiceItem }

// IsParenthesized reports whether i wraps a sub-expression.
func (i Item) IsParenthesized() bool { return i.kind == ParenthesizedItem }

// AsNumber returns the number and true when i is a number item.
func (i Item) AsNumber() (int64, bool) {
	return i.number, i.kind == NumberItem
}

// AsDice returns the dice rule and true when i is a dice item.
func (i Item) AsDice() (dice.Rule, bool) {
	return i.dice, i.kind == DiceItem
}

// AsParenthesized returns the inner expression when i is parenthesized.
func (i Item) AsParenthesized() (*Node, bool) {
	return i.inner, i.kind == ParenthesizedItem
}

func (i Item) String() string {
	switch i.kind {
	case NumberItem:
		return fmt.Sprintf("%d", i.number)
	case DiceItem:
		return i.dice.String()
	case ParenthesizedItem:
		return "(" + i.inner.String() + ")"
	default:
		return "?"
	}
}

// Node is either a leaf holding an Item or an internal node joining two
// children with an operator. Nodes are never mutated after the builder
// returns them.
type Node struct {
	leaf  *Item
	left  *Node
	op    Operator
	right *Node
}

// Leaf returns a leaf node.
func Leaf(item Item) *Node {
	return &Node{leaf: &item}
}

// Join returns an internal node.
func Join(left *Node, op Operator, right *Node) *Node {
	return &Node{left: left, op: op, right: right}
}

// IsLeaf reports whether n holds an item.
func (n *Node) IsLeaf() bool { return n.leaf != nil }

// IsNode reports whether n joins two subtrees with an operator.
func (n *Node) IsNode() bool { return n.leaf == nil }

// Item returns the leaf item; ok is false for internal nodes.
func (n *Node) Item() (item Item, ok bool) {
	if n.leaf == nil {
		return Item{}, false
	}
	return *n.leaf, true
}

// Left returns the left child of an internal node, nil for leaves.
func (n *Node) Left() *Node { return n.left }

// Right returns the right child of an internal node, nil for leaves.
func (n *Node) Right() *Node { return n.right }

// Operator returns the operator of an internal node.
func (n *Node) Operator() Operator { return n.op }

// String renders the tree with spaces around operators. Grouping the
// builder resolved by precedence is not shown; only explicit parentheses are.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	if n.leaf != nil {
		b.WriteString(n.leaf.String())
		return
	}
	n.left.write(b)
	b.WriteString(" ")
	b.WriteString(n.op.Symbol())
	b.WriteString(" ")
	n.right.write(b)
}

// CompiledExpression is the validated result of compiling one expression.
// It is read-only and may be evaluated any number of times.
type CompiledExpression struct {
	Root      *Node
	Condition *check.Condition
}

func (e *CompiledExpression) String() string {
	if e.Condition == nil {
		return e.Root.String()
	}
	return e.Root.String() + " " + e.Condition.String()
}
