package errors

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was rejected.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindInvalidState
	KindInvalidInput
	KindSlippageExceeded
	KindLiquidityExhausted
	KindArithmeticGuard
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalidInput:
		return "invalid_input"
	case KindSlippageExceeded:
		return "slippage_exceeded"
	case KindLiquidityExhausted:
		return "liquidity_exhausted"
	case KindArithmeticGuard:
		return "arithmetic_guard"
	default:
		return "unknown"
	}
}

// Error is a rejected operation. State is never mutated when one is returned.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf returns the kind of the first *Error in the chain.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Router rejection reasons.
const (
	MsgNotAdmin        = "not admin"
	MsgPaused          = "paused"
	MsgBadState        = "bad state"
	MsgSmallRoute      = "small route"
	MsgZeroBalance     = "zero swap"
	MsgInvalidExchange = "invalid exchange"
	MsgSlippage        = "slippage"
)

func NotAdmin() *Error        { return New(KindUnauthorized, MsgNotAdmin) }
func Paused() *Error          { return New(KindInvalidState, MsgPaused) }
func BadState() *Error        { return New(KindInvalidState, MsgBadState) }
func SmallRoute() *Error      { return New(KindInvalidInput, MsgSmallRoute) }
func ZeroBalance() *Error     { return New(KindInvalidInput, MsgZeroBalance) }
func InvalidExchange() *Error { return New(KindInvalidInput, MsgInvalidExchange) }
func Slippage() *Error        { return New(KindSlippageExceeded, MsgSlippage) }
