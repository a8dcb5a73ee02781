package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/dicenotation"
	"github.com/louisbranch/dicenotation/internal/expr/ast"
	apperrors "github.com/louisbranch/dicenotation/internal/platform/errors"
	"github.com/louisbranch/dicenotation/internal/platform/i18n/catalog"
	"github.com/louisbranch/dicenotation/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/grpc/status"
)

// RollExpressionInput represents the MCP tool input for rolling an expression.
type RollExpressionInput struct {
	Expression string `json:"expression" jsonschema:"dice expression, e.g. 3d6max+2d4+1>15"`
	Locale     string `json:"locale,omitempty" jsonschema:"language of the detail text, e.g. en-US or pt-BR"`
	Seed       *int64 `json:"seed,omitempty" jsonschema:"optional seed to replay a roll"`
}

// RollExpressionResult represents the MCP tool output for a rolled expression.
type RollExpressionResult struct {
	Expression string `json:"expression" jsonschema:"the rolled expression"`
	Value      int64  `json:"value" jsonschema:"value of the expression"`
	Passed     *bool  `json:"passed,omitempty" jsonschema:"whether the value met the target, absent without a target"`
	Detail     string `json:"detail" jsonschema:"human readable breakdown of the roll"`
	Seed       int64  `json:"seed" jsonschema:"seed the dice were rolled with"`
	SeedSource string `json:"seed_source" jsonschema:"generated or caller"`
	RecordID   string `json:"record_id,omitempty" jsonschema:"roll log record id when history is enabled"`
}

// ExplainExpressionInput represents the MCP tool input for checking an expression.
type ExplainExpressionInput struct {
	Expression string `json:"expression" jsonschema:"dice expression to check"`
	Locale     string `json:"locale,omitempty" jsonschema:"language of the error message"`
}

// ExplainItem describes one item of a compiled expression.
type ExplainItem struct {
	Kind      string `json:"kind" jsonschema:"number or dice"`
	Text      string `json:"text" jsonschema:"item in notation form"`
	Times     uint64 `json:"times,omitempty" jsonschema:"how many dice are rolled"`
	Sides     uint64 `json:"sides,omitempty" jsonschema:"sides of each die"`
	Reduction string `json:"reduction,omitempty" jsonschema:"sum, avg, max or min"`
}

// ExplainExpressionResult represents the MCP tool output for a checked expression.
type ExplainExpressionResult struct {
	Valid      bool          `json:"valid" jsonschema:"whether the expression compiles"`
	Normalized string        `json:"normalized,omitempty" jsonschema:"expression with canonical spacing and operators"`
	Items      []ExplainItem `json:"items,omitempty" jsonschema:"number and dice items in order"`
	Condition  string        `json:"condition,omitempty" jsonschema:"target condition, if any"`
	ErrorCode  string        `json:"error_code,omitempty" jsonschema:"machine readable error code"`
	StatusCode string        `json:"status_code,omitempty" jsonschema:"gRPC status code name for the error, e.g. InvalidArgument"`
	Error      string        `json:"error,omitempty" jsonschema:"localized error message"`
}

// RollHistoryInput represents the MCP tool input for listing logged rolls.
type RollHistoryInput struct {
	PageSize   int    `json:"page_size,omitempty" jsonschema:"maximum rolls to return, newest first"`
	PageToken  string `json:"page_token,omitempty" jsonschema:"token from a previous response to fetch the next page"`
	Expression string `json:"expression,omitempty" jsonschema:"only list rolls of this exact expression"`
}

// RollHistoryEntry is one logged roll.
type RollHistoryEntry struct {
	ID         string `json:"id"`
	Expression string `json:"expression"`
	Value      int64  `json:"value"`
	Passed     *bool  `json:"passed,omitempty"`
	Detail     string `json:"detail"`
	CreatedAt  string `json:"created_at" jsonschema:"RFC 3339 timestamp"`
}

// RollHistoryResult represents the MCP tool output for logged rolls.
type RollHistoryResult struct {
	Rolls         []RollHistoryEntry `json:"rolls"`
	NextPageToken string             `json:"next_page_token,omitempty" jsonschema:"token for the next page, empty on the last page"`
}

// RollExpressionTool defines the MCP tool schema for rolling an expression.
func RollExpressionTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "roll_expression",
		Description: "Rolls a dice expression such as 3d6max+2d4+1>15 and explains the result",
	}
}

// ExplainExpressionTool defines the MCP tool schema for checking an expression.
func ExplainExpressionTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "explain_expression",
		Description: "Checks a dice expression against the limits without rolling it",
	}
}

// RollHistoryTool defines the MCP tool schema for listing logged rolls.
func RollHistoryTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "roll_history",
		Description: "Lists logged rolls newest first, one page at a time",
	}
}

// RollExpressionHandler rolls an expression.
func RollExpressionHandler(roller *dicenotation.Roller) mcp.ToolHandlerFor[RollExpressionInput, RollExpressionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RollExpressionInput) (*mcp.CallToolResult, RollExpressionResult, error) {
		var opts []dicenotation.EvalOption
		if input.Seed != nil {
			opts = append(opts, dicenotation.WithSeed(*input.Seed))
		}
		roll, err := roller.Roll(ctx, input.Expression, input.Locale, opts...)
		if err != nil {
			return nil, RollExpressionResult{}, toolError(roller, input.Locale, err)
		}

		seed, source := roll.Result.Seed()
		result := RollExpressionResult{
			Expression: roll.Expression,
			Value:      roll.Result.Value(),
			Detail:     roll.Detail,
			Seed:       seed,
			SeedSource: string(source),
			RecordID:   roll.RecordID,
		}
		if passed, ok := roll.Passed(); ok {
			result.Passed = &passed
		}
		return nil, result, nil
	}
}

// ExplainExpressionHandler compiles an expression and describes it.
// Compile errors are reported in the result, not as tool failures.
func ExplainExpressionHandler(roller *dicenotation.Roller) mcp.ToolHandlerFor[ExplainExpressionInput, ExplainExpressionResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ExplainExpressionInput) (*mcp.CallToolResult, ExplainExpressionResult, error) {
		expr, err := roller.Compile(ctx, input.Expression)
		if err != nil {
			code := apperrors.CodeOf(err)
			return nil, ExplainExpressionResult{
				ErrorCode:  string(code),
				StatusCode: code.GRPCCode().String(),
				Error:      roller.LocalizeError(input.Locale, err),
			}, nil
		}

		result := ExplainExpressionResult{
			Valid:      true,
			Normalized: expr.String(),
			Items:      explainItems(expr.Root, nil),
		}
		if expr.Condition != nil {
			result.Condition = expr.Condition.String()
		}
		return nil, result, nil
	}
}

// RollHistoryHandler lists logged rolls.
func RollHistoryHandler(roller *dicenotation.Roller) mcp.ToolHandlerFor[RollHistoryInput, RollHistoryResult] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RollHistoryInput) (*mcp.CallToolResult, RollHistoryResult, error) {
		page, err := roller.HistoryPage(ctx, storage.RollPageRequest{
			PageSize:   input.PageSize,
			PageToken:  input.PageToken,
			Expression: input.Expression,
		})
		if err != nil {
			return nil, RollHistoryResult{}, fmt.Errorf("list roll history: %w", err)
		}
		result := RollHistoryResult{
			Rolls:         make([]RollHistoryEntry, 0, len(page.Records)),
			NextPageToken: page.NextPageToken,
		}
		for _, record := range page.Records {
			result.Rolls = append(result.Rolls, RollHistoryEntry{
				ID:         record.ID,
				Expression: record.Expression,
				Value:      record.Value,
				Passed:     record.Passed,
				Detail:     record.Detail,
				CreatedAt:  record.CreatedAt.Format(time.RFC3339),
			})
		}
		return nil, result, nil
	}
}

func explainItems(n *ast.Node, items []ExplainItem) []ExplainItem {
	item, ok := n.Item()
	if !ok {
		items = explainItems(n.Left(), items)
		return explainItems(n.Right(), items)
	}
	if inner, ok := item.AsParenthesized(); ok {
		return explainItems(inner, items)
	}
	if rule, ok := item.AsDice(); ok {
		return append(items, ExplainItem{
			Kind:      "dice",
			Text:      rule.String(),
			Times:     rule.Times,
			Sides:     rule.Sides,
			Reduction: rule.Reduction.String(),
		})
	}
	return append(items, ExplainItem{Kind: "number", Text: item.String()})
}

// ToolError is a failed expression reported to the model by its localized
// message. It unwraps to the domain error and carries the matching gRPC
// status for hosts that relay it.
type ToolError struct {
	Message string
	Code    apperrors.Code

	status *status.Status
	err    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *ToolError) Unwrap() error {
	return e.err
}

// GRPCStatus lets status.FromError recover the code and error details.
func (e *ToolError) GRPCStatus() *status.Status {
	return e.status
}

func toolError(roller *dicenotation.Roller, locale string, err error) error {
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		return err
	}
	if strings.TrimSpace(locale) == "" {
		locale = roller.Locale()
	}
	msg := strings.TrimSpace(roller.LocalizeError(locale, err))
	return &ToolError{
		Message: msg,
		Code:    domainErr.Code,
		status:  status.Convert(domainErr.ToGRPCStatus(catalog.Default().Resolve(locale), msg)),
		err:     err,
	}
}
