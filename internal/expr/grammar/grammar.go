// Package grammar turns dice notation text into a stream of typed syntax
// nodes. It knows nothing about limits or evaluation; the compile package
// consumes its output.
package grammar

import (
	"fmt"

	apperrors "github.com/louisbranch/dicenotation/internal/platform/errors"
)

// Kind is the syntactic category of a Node.
type Kind int

const (
	// KindCommand is the root: one KindExpr, then an optional KindChecker.
	KindCommand Kind = iota
	// KindExpr alternates KindItem and KindOperator children, starting and
	// ending with an item.
	KindExpr
	// KindItem has exactly one child: KindNumber, KindDice or KindParenthesized.
	KindItem
	// KindNumber is a signed integer literal.
	KindNumber
	// KindDice has KindTimes, KindSides and an optional KindReduction child.
	KindDice
	KindTimes
	KindSides
	KindReduction
	// KindParenthesized has exactly one KindExpr child.
	KindParenthesized
	KindOperator
	// KindChecker has KindCompare and KindNumber children.
	KindChecker
	KindCompare
)

var kindNames = map[Kind]string{
	KindCommand:       "command",
	KindExpr:          "expr",
	KindItem:          "item",
	KindNumber:        "number",
	KindDice:          "dice",
	KindTimes:         "times",
	KindSides:         "sides",
	KindReduction:     "reduction",
	KindParenthesized: "parenthesized",
	KindOperator:      "operator",
	KindChecker:       "checker",
	KindCompare:       "compare",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Node is one typed syntax node: its category, the text it matched for
// terminals, and its children for non-terminals.
type Node struct {
	Kind     Kind
	Text     string
	Children []Node
}

var parser = build()

// Parse tokenizes and parses text into a KindCommand node. Input that does
// not match the grammar fails with CodeInvalidSyntax.
func Parse(text string) (Node, error) {
	cmd, err := parser.ParseString("", text)
	if err != nil {
		return Node{}, apperrors.WrapWithMetadata(
			apperrors.CodeInvalidSyntax,
			"invalid syntax",
			map[string]string{"detail": err.Error()},
			err,
		)
	}
	return cmd.node(), nil
}

func (c *command) node() Node {
	n := Node{Kind: KindCommand, Children: []Node{c.Expr.node()}}
	if c.Checker != nil {
		n.Children = append(n.Children, Node{
			Kind: KindChecker,
			Children: []Node{
				{Kind: KindCompare, Text: c.Checker.Compare},
				{Kind: KindNumber, Text: c.Checker.Target},
			},
		})
	}
	return n
}

func (e *expression) node() Node {
	children := make([]Node, 0, 1+2*len(e.Tail))
	children = append(children, e.Head.node())
	for _, op := range e.Tail {
		children = append(children,
			Node{Kind: KindOperator, Text: op.Op},
			op.Item.node(),
		)
	}
	return Node{Kind: KindExpr, Children: children}
}

func (i *item) node() Node {
	if i.Group != nil {
		return Node{Kind: KindItem, Children: []Node{{
			Kind:     KindParenthesized,
			Children: []Node{i.Group.node()},
		}}}
	}
	return Node{Kind: KindItem, Children: []Node{i.Value.node()}}
}

func (v *value) node() Node {
	if v.Dice == nil {
		return Node{Kind: KindNumber, Text: v.Lead}
	}
	children := []Node{
		{Kind: KindTimes, Text: v.Lead},
		{Kind: KindSides, Text: v.Dice.Sides},
	}
	if v.Dice.Reduction != "" {
		children = append(children, Node{Kind: KindReduction, Text: v.Dice.Reduction})
	}
	return Node{Kind: KindDice, Children: children}
}
