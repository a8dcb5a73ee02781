package domain

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/dicenotation"
	apperrors "github.com/louisbranch/dicenotation/internal/platform/errors"
	"github.com/louisbranch/dicenotation/internal/storage/sqlite"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newLoggedRoller(t *testing.T) *dicenotation.Roller {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "rolls.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return dicenotation.NewRoller(dicenotation.WithRollLog(store))
}

func TestRollExpressionHandlerReturnsValueAndDetail(t *testing.T) {
	t.Parallel()
	handler := RollExpressionHandler(dicenotation.NewRoller())
	_, result, err := handler(context.Background(), nil, RollExpressionInput{Expression: "5+5>=10"})
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if result.Value != 10 {
		t.Fatalf("value = %d, want 10", result.Value)
	}
	if result.Passed == nil || !*result.Passed {
		t.Fatalf("passed = %v, want true", result.Passed)
	}
	if result.Detail != "5 + 5 = 10, target is >=10, success" {
		t.Fatalf("detail = %q", result.Detail)
	}
	if result.SeedSource != "generated" {
		t.Fatalf("seed source = %q, want generated", result.SeedSource)
	}
	if result.RecordID != "" {
		t.Fatalf("record id = %q, want empty without a roll log", result.RecordID)
	}
}

func TestRollExpressionHandlerReplaysSeed(t *testing.T) {
	t.Parallel()
	handler := RollExpressionHandler(dicenotation.NewRoller())
	seed := int64(1234)
	input := RollExpressionInput{Expression: "10d20", Seed: &seed}

	_, first, err := handler(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("first roll: %v", err)
	}
	_, second, err := handler(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("second roll: %v", err)
	}
	if first.Value != second.Value || first.Detail != second.Detail {
		t.Fatalf("replayed roll differs: %+v vs %+v", first, second)
	}
	if first.Seed != seed || first.SeedSource != "caller" {
		t.Fatalf("seed = %d/%s, want %d/caller", first.Seed, first.SeedSource, seed)
	}
	if first.Passed != nil {
		t.Fatalf("passed = %v, want nil without a condition", *first.Passed)
	}
}

func TestRollExpressionHandlerLocalizesErrors(t *testing.T) {
	t.Parallel()
	handler := RollExpressionHandler(dicenotation.NewRoller())
	_, _, err := handler(context.Background(), nil, RollExpressionInput{Expression: "1d1001", Locale: "en-US"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "at most 1000 sides") {
		t.Fatalf("error = %q, want localized limit message", err)
	}
	if !strings.Contains(err.Error(), "LIMIT_TOO_MANY_SIDES") {
		t.Fatalf("error = %q, want error code", err)
	}
	if !errors.Is(err, apperrors.ErrTooManySides) {
		t.Fatalf("error = %v, want it to unwrap to the sides limit error", err)
	}
}

func TestRollExpressionHandlerErrorCarriesGRPCStatus(t *testing.T) {
	t.Parallel()
	handler := RollExpressionHandler(dicenotation.NewRoller(dicenotation.WithLocale("pt-BR")))
	_, _, err := handler(context.Background(), nil, RollExpressionInput{Expression: "1d1001"})
	if err == nil {
		t.Fatal("expected error")
	}

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error type = %T, want *ToolError", err)
	}
	if toolErr.Code != apperrors.CodeTooManySides {
		t.Fatalf("code = %s", toolErr.Code)
	}

	st, ok := status.FromError(err)
	if !ok {
		t.Fatal("expected gRPC status")
	}
	if st.Code() != codes.ResourceExhausted {
		t.Fatalf("status code = %v, want ResourceExhausted", st.Code())
	}
	var sawInfo, sawLocalized bool
	for _, detail := range st.Details() {
		switch d := detail.(type) {
		case *errdetails.ErrorInfo:
			sawInfo = d.GetReason() == string(apperrors.CodeTooManySides)
		case *errdetails.LocalizedMessage:
			sawLocalized = d.GetLocale() == "pt-BR" && d.GetMessage() == toolErr.Message
		}
	}
	if !sawInfo || !sawLocalized {
		t.Fatalf("details = %v, want error info and pt-BR localized message", st.Details())
	}
}

func TestExplainExpressionHandler(t *testing.T) {
	t.Parallel()
	handler := ExplainExpressionHandler(dicenotation.NewRoller())

	_, result, err := handler(context.Background(), nil, ExplainExpressionInput{Expression: "3d6max + (2d4 x 2)+1 > 15"})
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if !result.Valid {
		t.Fatalf("valid = false, error = %q", result.Error)
	}
	if result.Normalized != "3d6max + (2d4 * 2) + 1 >15" {
		t.Fatalf("normalized = %q", result.Normalized)
	}
	if result.Condition != ">15" {
		t.Fatalf("condition = %q, want >15", result.Condition)
	}
	want := []ExplainItem{
		{Kind: "dice", Text: "3d6max", Times: 3, Sides: 6, Reduction: "max"},
		{Kind: "dice", Text: "2d4", Times: 2, Sides: 4, Reduction: "sum"},
		{Kind: "number", Text: "2"},
		{Kind: "number", Text: "1"},
	}
	if len(result.Items) != len(want) {
		t.Fatalf("items = %+v, want %+v", result.Items, want)
	}
	for i := range want {
		if result.Items[i] != want[i] {
			t.Fatalf("items[%d] = %+v, want %+v", i, result.Items[i], want[i])
		}
	}
}

func TestExplainExpressionHandlerReportsInvalidExpression(t *testing.T) {
	t.Parallel()
	handler := ExplainExpressionHandler(dicenotation.NewRoller())
	_, result, err := handler(context.Background(), nil, ExplainExpressionInput{Expression: "0d6", Locale: "en-US"})
	if err != nil {
		t.Fatalf("explain returned tool error: %v", err)
	}
	if result.Valid {
		t.Fatal("valid = true, want false")
	}
	if result.ErrorCode != "DICE_NON_POSITIVE_SPEC" {
		t.Fatalf("error code = %q", result.ErrorCode)
	}
	if result.StatusCode != "InvalidArgument" {
		t.Fatalf("status code = %q, want InvalidArgument", result.StatusCode)
	}
	if result.Error != "dice roll times and sides must be positive, got 0d6" {
		t.Fatalf("error = %q", result.Error)
	}
}

func TestRollHistoryHandler(t *testing.T) {
	t.Parallel()
	roller := newLoggedRoller(t)
	roll := RollExpressionHandler(roller)
	history := RollHistoryHandler(roller)

	var ids []string
	for _, expr := range []string{"1", "2", "3>=3"} {
		_, result, err := roll(context.Background(), nil, RollExpressionInput{Expression: expr})
		if err != nil {
			t.Fatalf("roll %q: %v", expr, err)
		}
		if result.RecordID == "" {
			t.Fatalf("roll %q has no record id", expr)
		}
		ids = append(ids, result.RecordID)
	}

	_, result, err := history(context.Background(), nil, RollHistoryInput{PageSize: 2})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(result.Rolls) != 2 {
		t.Fatalf("rolls = %d, want 2", len(result.Rolls))
	}
	if result.Rolls[0].ID != ids[2] || result.Rolls[1].ID != ids[1] {
		t.Fatalf("history order = %s, %s; want newest first", result.Rolls[0].ID, result.Rolls[1].ID)
	}
	if result.Rolls[0].Passed == nil || !*result.Rolls[0].Passed {
		t.Fatal("expected newest roll to record a pass")
	}
	if result.NextPageToken == "" {
		t.Fatal("expected a next page token")
	}

	_, next, err := history(context.Background(), nil, RollHistoryInput{PageSize: 2, PageToken: result.NextPageToken})
	if err != nil {
		t.Fatalf("next page: %v", err)
	}
	if len(next.Rolls) != 1 || next.Rolls[0].ID != ids[0] || next.NextPageToken != "" {
		t.Fatalf("next page = %+v", next)
	}

	_, filtered, err := history(context.Background(), nil, RollHistoryInput{Expression: "2"})
	if err != nil {
		t.Fatalf("filtered: %v", err)
	}
	if len(filtered.Rolls) != 1 || filtered.Rolls[0].ID != ids[1] {
		t.Fatalf("filtered = %+v", filtered)
	}

	if _, _, err := history(context.Background(), nil, RollHistoryInput{PageToken: "garbage"}); err == nil {
		t.Fatal("expected error for invalid page token")
	}
}

func TestRollHistoryHandlerWithoutLog(t *testing.T) {
	t.Parallel()
	_, result, err := RollHistoryHandler(dicenotation.NewRoller())(context.Background(), nil, RollHistoryInput{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if result.Rolls == nil || len(result.Rolls) != 0 {
		t.Fatalf("rolls = %#v, want empty slice", result.Rolls)
	}
}
