// Package script embeds dice expressions in Lua.
//
// Scripts see two globals: Dice, which rolls and checks expressions while the
// script runs, and Scenario, which records roll steps for a Runner to replay
// and assert on.
package script
