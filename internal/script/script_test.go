package script

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/louisbranch/dicenotation"
)

func writeScenarioFixture(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.lua")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestLoadScenarioRecordsSteps(t *testing.T) {
	path := writeScenarioFixture(t, `-- Setup
local scene = Scenario.new("basics")
scene:roll({expr = "2+3", value = 5})
scene:compile({expr = "1+2x3", normalized = "1 + 2 * 3"}):reject({expr = "0d6", code = "DICE_NON_POSITIVE_SPEC"})
return scene
`)

	scenario, err := LoadScenarioFromFile(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if scenario.Name != "basics" {
		t.Fatalf("name = %q, want basics", scenario.Name)
	}
	if len(scenario.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(scenario.Steps))
	}
	wantKinds := []string{StepRoll, StepCompile, StepReject}
	for i, want := range wantKinds {
		if scenario.Steps[i].Kind != want {
			t.Fatalf("step %d kind = %q, want %q", i, scenario.Steps[i].Kind, want)
		}
	}
	if scenario.Steps[0].Args["value"] != int64(5) {
		t.Fatalf("roll value = %#v, want int64(5)", scenario.Steps[0].Args["value"])
	}
	if scenario.Steps[2].Args["code"] != "DICE_NON_POSITIVE_SPEC" {
		t.Fatalf("reject code = %v", scenario.Steps[2].Args["code"])
	}
}

func TestLoadScenarioDefaultsNameToFile(t *testing.T) {
	path := writeScenarioFixture(t, `return Scenario.new()`)
	scenario, err := LoadScenarioFromFile(context.Background(), path, nil)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if scenario.Name != "scenario" {
		t.Fatalf("name = %q, want scenario", scenario.Name)
	}
}

func TestLoadScenarioErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{name: "syntax", source: `return Scenario.new(`, want: "load lua"},
		{name: "no scenario", source: `return 1`, want: "must return Scenario"},
		{name: "missing expr", source: `local s = Scenario.new("x"); s:roll({value = 1}); return s`, want: "expr is required"},
		{name: "not a table", source: `local s = Scenario.new("x"); s:roll("1d6"); return s`, want: "run lua"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(context.Background(), tt.source, nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestDiceRollFromLua(t *testing.T) {
	source := `
local r = Dice.roll("2+3>=5")
assert(r.value == 5, "value")
assert(r.passed == true, "passed")
assert(r.detail == "2 + 3 = 5, target is >=5, success", r.detail)
assert(r.seed_source == "generated", "seed source")

local seeded = Dice.roll("4d6", "", 99)
local again = Dice.roll("4d6", "", 99)
assert(seeded.value == again.value, "seeded rolls differ")
assert(seeded.seed == "99" and seeded.seed_source == "caller", "seed")

local pt = Dice.roll("10>=10", "pt-BR")
assert(pt.detail == "10, alvo é >=10, sucesso", pt.detail)

local plain = Dice.roll("1d1")
assert(plain.passed == nil, "passed without condition")

return Scenario.new("dice")
`
	if _, err := LoadScenario(context.Background(), source, dicenotation.NewRoller()); err != nil {
		t.Fatalf("run script: %v", err)
	}
}

func TestDiceRollReplaysGeneratedSeed(t *testing.T) {
	source := `
for i = 1, 20 do
  local first = Dice.roll("10d1000")
  assert(type(first.seed) == "string", "seed is a string")
  local replay = Dice.roll("10d1000", nil, first.seed)
  assert(replay.seed == first.seed, replay.seed)
  assert(replay.seed_source == "caller", replay.seed_source)
  assert(first.detail == replay.detail, first.detail .. " vs " .. replay.detail)
end

local wide = Dice.roll("10d1000", nil, "-9223372036854775808")
assert(wide.seed == "-9223372036854775808", wide.seed)

local ok = pcall(Dice.roll, "1d6", nil, "lucky")
assert(not ok, "expected bad seed error")
return Scenario.new("replay")
`
	if _, err := LoadScenario(context.Background(), source, dicenotation.NewRoller()); err != nil {
		t.Fatalf("run script: %v", err)
	}
}

func TestRunScenarioReplaysWideSeed(t *testing.T) {
	const seed int64 = 1<<62 + 1
	roller := dicenotation.NewRoller()
	want, err := roller.Roll(context.Background(), "10d1000", "", dicenotation.WithSeed(seed))
	if err != nil {
		t.Fatalf("roll: %v", err)
	}

	scenario, err := LoadScenario(context.Background(), fmt.Sprintf(`
local scene = Scenario.new("wide seed")
scene:roll({expr = "10d1000", seed = "%d", detail = %q})
return scene
`, seed, want.Detail), roller)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	runner, err := NewRunner(Config{}, roller)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if err := runner.RunScenario(context.Background(), scenario); err != nil {
		t.Fatalf("run scenario: %v", err)
	}

	bad, err := LoadScenario(context.Background(), `
local scene = Scenario.new("bad seed")
scene:roll({expr = "1d6", seed = "lucky"})
return scene
`, roller)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if err := runner.RunScenario(context.Background(), bad); err == nil {
		t.Fatal("expected bad seed error")
	}
}

func TestDiceRollRaisesLocalizedError(t *testing.T) {
	source := `
local ok, err = pcall(Dice.roll, "1d1001", "en-US")
assert(not ok, "expected failure")
assert(string.find(err, "at most 1000 sides", 1, true), err)
return Scenario.new("errors")
`
	if _, err := LoadScenario(context.Background(), source, dicenotation.NewRoller()); err != nil {
		t.Fatalf("run script: %v", err)
	}
}

func TestDiceCheckFromLua(t *testing.T) {
	source := `
local ok, normalized = Dice.check("3d6MAX + 1")
assert(ok, "valid expression")
assert(normalized == "3d6max + 1", normalized)

local bad, message, code = Dice.check("0d6")
assert(not bad, "invalid expression")
assert(code == "DICE_NON_POSITIVE_SPEC", code)
assert(message == "dice roll times and sides must be positive, got 0d6", message)
return Scenario.new("check")
`
	if _, err := LoadScenario(context.Background(), source, dicenotation.NewRoller()); err != nil {
		t.Fatalf("run script: %v", err)
	}
}

func TestRunScenarioPasses(t *testing.T) {
	var logs bytes.Buffer
	roller := dicenotation.NewRoller()
	scenario, err := LoadScenario(context.Background(), `
local scene = Scenario.new("pass")
scene:roll({expr = "1+2*3", value = 7})
scene:roll({expr = "3d6", min = 3, max = 18})
scene:roll({expr = "9>10", passed = false, detail = "9, target is >10, failed"})
scene:roll({expr = "2d20max", seed = 42, min = 1, max = 20})
scene:compile({expr = "(1+2)x3", normalized = "(1 + 2) * 3"})
scene:reject({expr = "1d1001", code = "LIMIT_TOO_MANY_SIDES", message = "a dice can have at most 1000 sides, got 1001"})
return scene
`, roller)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}

	runner, err := NewRunner(Config{Verbose: true, Logger: log.New(&logs, "", 0)}, roller)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if err := runner.RunScenario(context.Background(), scenario); err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	if runner.Failures() != 0 {
		t.Fatalf("failures = %d, want 0", runner.Failures())
	}
	if !strings.Contains(logs.String(), "scenario done: pass") {
		t.Fatalf("logs = %q, want completion line", logs.String())
	}
}

func TestRunScenarioStrictStopsAtFirstFailure(t *testing.T) {
	roller := dicenotation.NewRoller()
	scenario := &Scenario{Name: "strict", Steps: []Step{
		{Kind: StepRoll, Args: map[string]any{"expr": "1+1", "value": int64(3)}},
		{Kind: StepRoll, Args: map[string]any{"expr": "1+1", "value": int64(4)}},
	}}
	runner, err := NewRunner(DefaultConfig(), roller)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	err = runner.RunScenario(context.Background(), scenario)
	if err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(err.Error(), "step 1 (roll)") || !strings.Contains(err.Error(), "want 3") {
		t.Fatalf("error = %q", err)
	}
	if runner.Failures() != 1 {
		t.Fatalf("failures = %d, want 1", runner.Failures())
	}
}

func TestRunScenarioLogOnlyContinues(t *testing.T) {
	var logs bytes.Buffer
	roller := dicenotation.NewRoller()
	scenario := &Scenario{Name: "log-only", Steps: []Step{
		{Kind: StepRoll, Args: map[string]any{"expr": "1+1", "value": int64(3)}},
		{Kind: StepReject, Args: map[string]any{"expr": "1+1"}},
		{Kind: StepCompile, Args: map[string]any{"expr": "1+1", "normalized": "2"}},
	}}
	runner, err := NewRunner(Config{Assertions: AssertionLogOnly, Logger: log.New(&logs, "", 0)}, roller)
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	if err := runner.RunScenario(context.Background(), scenario); err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	if runner.Failures() != 3 {
		t.Fatalf("failures = %d, want 3", runner.Failures())
	}
	if got := strings.Count(logs.String(), "expectation:"); got != 3 {
		t.Fatalf("logged expectations = %d, want 3", got)
	}
}

func TestRunScenarioRollErrorIsFatal(t *testing.T) {
	runner, err := NewRunner(Config{Assertions: AssertionLogOnly}, dicenotation.NewRoller())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	err = runner.RunScenario(context.Background(), &Scenario{Steps: []Step{
		{Kind: StepRoll, Args: map[string]any{"expr": "3d"}},
	}})
	if err == nil {
		t.Fatal("expected error for invalid roll")
	}
}

func TestRunScenarioRejectsUnknownStep(t *testing.T) {
	runner, err := NewRunner(DefaultConfig(), dicenotation.NewRoller())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	err = runner.RunScenario(context.Background(), &Scenario{Steps: []Step{{Kind: "teleport"}}})
	if err == nil || !strings.Contains(err.Error(), "unknown step kind") {
		t.Fatalf("error = %v, want unknown step kind", err)
	}
}

func TestRunScenarioHonorsCancellation(t *testing.T) {
	runner, err := NewRunner(DefaultConfig(), dicenotation.NewRoller())
	if err != nil {
		t.Fatalf("new runner: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = runner.RunScenario(ctx, &Scenario{Steps: []Step{{Kind: StepRoll, Args: map[string]any{"expr": "1"}}}})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestRunFile(t *testing.T) {
	path := writeScenarioFixture(t, `
local scene = Scenario.new("file")
scene:roll({expr = "6*7", value = 42})
return scene
`)
	if err := RunFile(context.Background(), DefaultConfig(), dicenotation.NewRoller(), path); err != nil {
		t.Fatalf("run file: %v", err)
	}
}

func TestNewRunnerRequiresRoller(t *testing.T) {
	if _, err := NewRunner(DefaultConfig(), nil); err == nil {
		t.Fatal("expected error for nil roller")
	}
}
