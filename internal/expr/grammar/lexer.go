package grammar

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer splits dice notation into tokens. Rules are tried in order, so the
// reduction keywords win over the multiply letter and the dice marker.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Reduction", Pattern: `(?i)(?:sum|avg|max|min)`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Dice", Pattern: `[dD]`},
	{Name: "Compare", Pattern: `>=|<=|==|[<>=]`},
	{Name: "Operator", Pattern: `[-+*xX]`},
	{Name: "Paren", Pattern: `[()]`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

type command struct {
	Expr    *expression `@@`
	Checker *checker    `@@?`
}

type expression struct {
	Head *item        `@@`
	Tail []*operation `@@*`
}

type operation struct {
	Op   string `@("+" | "-" | "*" | "x" | "X")`
	Item *item  `@@`
}

type item struct {
	Group *expression `  "(" @@ ")"`
	Value *value      `| @@`
}

type value struct {
	Lead string    `@("-"? Int)`
	Dice *diceTail `@@?`
}

type diceTail struct {
	Sides     string `Dice @("-"? Int)`
	Reduction string `@Reduction?`
}

type checker struct {
	Compare string `@Compare`
	Target  string `@("-"? Int)`
}

func build() *participle.Parser[command] {
	return participle.MustBuild[command](
		participle.Lexer(Lexer),
		participle.Elide("Whitespace"),
	)
}
