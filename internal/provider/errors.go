package provider

import (
	"errors"
	"fmt"
)

// EIP-1193 provider error codes, plus 0 for errors detected locally before
// any provider round-trip.
const (
	CodeLocal             = 0
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901
)

// Error is a typed provider failure carried for one request/response cycle.
// It is never persisted.
type Error struct {
	Code    int
	Message string
	Data    any
}

func (e *Error) Error() string {
	if e.Code == CodeLocal {
		return e.Message
	}
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

func errLocal(format string, args ...any) *Error {
	return &Error{Code: CodeLocal, Message: fmt.Sprintf(format, args...)}
}

func errDisconnected() *Error {
	return &Error{Code: CodeDisconnected, Message: "no Ethereum provider found"}
}

// coded is satisfied by go-ethereum's rpc.Error and by any transport error
// that carries a provider code.
type coded interface {
	error
	ErrorCode() int
}

// Normalize maps an arbitrary transport failure into a *Error. Errors that
// are already typed pass through; errors exposing an ErrorCode keep their
// code; everything else becomes a local error with the original message.
func Normalize(err error) *Error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	var cerr coded
	if errors.As(err, &cerr) {
		return &Error{Code: cerr.ErrorCode(), Message: cerr.Error()}
	}
	return &Error{Code: CodeLocal, Message: err.Error()}
}

// Code returns the provider code of err, or CodeLocal when err carries none.
func Code(err error) int {
	if perr := Normalize(err); perr != nil {
		return perr.Code
	}
	return CodeLocal
}
