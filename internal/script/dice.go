package script

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Shopify/go-lua"
	"github.com/louisbranch/dicenotation"
	apperrors "github.com/louisbranch/dicenotation/internal/platform/errors"
)

const diceGlobalName = "Dice"

// RegisterDice installs the Dice global backed by roller.
//
//	Dice.roll(expr [, locale [, seed]]) -> {expression, value, passed, detail, seed, seed_source}
//	Dice.check(expr [, locale]) -> true, normalized | false, message, code
//
// Seeds cross into Lua as decimal strings since Lua numbers are doubles and
// cannot hold every int64. Dice.roll also accepts a small integer seed.
// Dice.roll raises a Lua error with the localized message when expr does not
// compile.
func RegisterDice(ctx context.Context, state *lua.State, roller *dicenotation.Roller) {
	if ctx == nil {
		ctx = context.Background()
	}
	state.NewTable()
	lua.SetFunctions(state, []lua.RegistryFunction{
		{Name: "roll", Function: diceRoll(ctx, roller)},
		{Name: "check", Function: diceCheck(ctx, roller)},
	}, 0)
	state.SetGlobal(diceGlobalName)
}

func diceRoll(ctx context.Context, roller *dicenotation.Roller) lua.Function {
	return func(state *lua.State) int {
		text := lua.CheckString(state, 1)
		locale := lua.OptString(state, 2, "")
		var opts []dicenotation.EvalOption
		if !state.IsNoneOrNil(3) {
			opts = append(opts, dicenotation.WithSeed(checkSeed(state, 3)))
		}

		roll, err := roller.Roll(ctx, text, locale, opts...)
		if err != nil {
			lua.Errorf(state, "%s", roller.LocalizeError(locale, err))
			return 0
		}

		seed, source := roll.Result.Seed()
		state.NewTable()
		state.PushString(roll.Expression)
		state.SetField(-2, "expression")
		state.PushInteger(int(roll.Result.Value()))
		state.SetField(-2, "value")
		if passed, ok := roll.Passed(); ok {
			state.PushBoolean(passed)
			state.SetField(-2, "passed")
		}
		state.PushString(roll.Detail)
		state.SetField(-2, "detail")
		state.PushString(strconv.FormatInt(seed, 10))
		state.SetField(-2, "seed")
		state.PushString(string(source))
		state.SetField(-2, "seed_source")
		return 1
	}
}

func checkSeed(state *lua.State, index int) int64 {
	if state.TypeOf(index) != lua.TypeString {
		return int64(lua.CheckInteger(state, index))
	}
	text, _ := state.ToString(index)
	seed, err := parseSeed(text)
	if err != nil {
		lua.ArgumentError(state, index, err.Error())
	}
	return seed
}

func parseSeed(text string) (int64, error) {
	seed, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("seed %q is not a decimal int64", text)
	}
	return seed, nil
}

func diceCheck(ctx context.Context, roller *dicenotation.Roller) lua.Function {
	return func(state *lua.State) int {
		text := lua.CheckString(state, 1)
		locale := lua.OptString(state, 2, "")

		expr, err := roller.Compile(ctx, text)
		if err != nil {
			state.PushBoolean(false)
			state.PushString(roller.LocalizeError(locale, err))
			state.PushString(string(apperrors.CodeOf(err)))
			return 3
		}
		state.PushBoolean(true)
		state.PushString(expr.String())
		return 2
	}
}
