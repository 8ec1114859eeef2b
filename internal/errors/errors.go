package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error type mapped to process exit codes.
type Code int

const (
	CodeSuccess     Code = 0
	CodeInternal    Code = 1
	CodeUsage       Code = 2
	CodeUnavailable Code = 12
	CodeBlocked     Code = 16
	CodeDecode      Code = 20
	CodeIneligible  Code = 21
	CodeValidation  Code = 22
	CodeQuote       Code = 23
	CodeSigner      Code = 24
	CodeWarnings    Code = 25
	CodeLocked      Code = 26
	CodeSimulation  Code = 27
)

// Error is a typed relayer error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	for err != nil {
		var target *Error
		if !errors.As(err, &target) {
			return false
		}
		if target.Code == code {
			return true
		}
		err = target.Cause
	}
	return false
}

func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	if relayErr, ok := As(err); ok {
		return int(relayErr.Code)
	}
	return int(CodeInternal)
}

// Codes lists every code in exit-code order.
func Codes() []Code {
	return []Code{
		CodeSuccess, CodeInternal, CodeUsage, CodeUnavailable, CodeBlocked,
		CodeDecode, CodeIneligible, CodeValidation, CodeQuote, CodeSigner,
		CodeWarnings, CodeLocked, CodeSimulation,
	}
}

// Kind names the taxonomy member for a code, used in rendered error bodies.
func Kind(code Code) string {
	switch code {
	case CodeUsage:
		return "configuration_error"
	case CodeUnavailable:
		return "connectivity_error"
	case CodeBlocked:
		return "command_blocked"
	case CodeDecode:
		return "decode_error"
	case CodeIneligible:
		return "eligibility_error"
	case CodeValidation:
		return "hard_validation_error"
	case CodeQuote:
		return "quote_error"
	case CodeSigner:
		return "signer_error"
	case CodeWarnings:
		return "preflight_warnings"
	case CodeLocked:
		return "account_locked"
	case CodeSimulation:
		return "simulation_error"
	case CodeSuccess:
		return "success"
	default:
		return "internal_error"
	}
}
