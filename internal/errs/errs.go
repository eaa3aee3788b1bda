// Package errs provides the structured error envelope shared by the ranger
// components.
//
// Every failure surfaced by the synchronization core carries one of four
// codes: a malformed inbound frame, a transport failure, an order-book
// sequence gap, or a connect request that conflicts with the current
// connection state.
package errs

import (
	"errors"
	"strings"
)

// Code identifies a failure category.
type Code string

const (
	// CodeParse marks a malformed inbound frame. The frame is dropped.
	CodeParse Code = "parse"
	// CodeTransport marks a socket error or unexpected close.
	CodeTransport Code = "transport"
	// CodeSequenceGap marks an out-of-order order-book increment.
	CodeSequenceGap Code = "sequence_gap"
	// CodeSubscriptionState marks a connect request rejected by the current connection state.
	CodeSubscriptionState Code = "subscription_state"
	// CodeNone is returned by CodeOf when err carries no code.
	CodeNone Code = ""
)

// E is the error envelope.
type E struct {
	Op      string
	Code    Code
	Message string
	Market  string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error for the operation and code.
func New(op string, code Code, opts ...Option) *E {
	e := &E{
		Op:   strings.TrimSpace(op),
		Code: code,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithCause records the underlying error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

// WithMarket records the market the failure relates to.
func WithMarket(market string) Option {
	trimmed := strings.TrimSpace(market)
	return func(e *E) {
		e.Market = trimmed
	}
}

// Error implements the error interface.
func (e *E) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Code))
	if e.Market != "" {
		b.WriteString(" [")
		b.WriteString(e.Market)
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *E) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether target is an *E with the same code.
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Code == e.Code && (t.Op == "" || t.Op == e.Op)
}

// CodeOf returns the code of the first *E in err's chain.
func CodeOf(err error) Code {
	var e *E
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeNone
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
