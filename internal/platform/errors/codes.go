// Package errors provides structured error handling with i18n support.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Syntax errors
	CodeInvalidSyntax Code = "INVALID_SYNTAX"
	CodeInvalidNumber Code = "INVALID_NUMBER"

	// Dice errors
	CodeDiceNonPositiveSpec Code = "DICE_NON_POSITIVE_SPEC"

	// Limit errors
	CodeTooManyItems     Code = "LIMIT_TOO_MANY_ITEMS"
	CodeTooManySides     Code = "LIMIT_TOO_MANY_SIDES"
	CodeTooManyRollTimes Code = "LIMIT_TOO_MANY_ROLL_TIMES"
	CodeNumberOutOfRange Code = "NUMBER_OUT_OF_RANGE"

	// CodeInternal marks a broken contract between the grammar and the builder.
	CodeInternal Code = "INTERNAL"
)

// Sentinels usable as errors.Is targets; matching is by code.
var (
	ErrInvalidSyntax       = New(CodeInvalidSyntax, "invalid syntax")
	ErrInvalidNumber       = New(CodeInvalidNumber, "invalid number")
	ErrNonPositiveDiceSpec = New(CodeDiceNonPositiveSpec, "dice roll times and sides must be positive")
	ErrTooManyItems        = New(CodeTooManyItems, "item count limit exceeded")
	ErrTooManySides        = New(CodeTooManySides, "dice sides limit exceeded")
	ErrTooManyRollTimes    = New(CodeTooManyRollTimes, "dice roll times limit exceeded")
	ErrNumberOutOfRange    = New(CodeNumberOutOfRange, "number out of range")
	ErrInternal            = New(CodeInternal, "internal error")
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - the expression text itself is wrong
	case CodeInvalidSyntax,
		CodeInvalidNumber,
		CodeDiceNonPositiveSpec:
		return codes.InvalidArgument

	// ResourceExhausted - a configured limit was exceeded
	case CodeTooManyItems,
		CodeTooManySides,
		CodeTooManyRollTimes,
		CodeNumberOutOfRange:
		return codes.ResourceExhausted

	default:
		return codes.Internal
	}
}
