// Package failure tags errors with the kind of condition that produced
// them, so the polling loop can describe a failure without inspecting
// error strings.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// Unknown is reported for errors that carry no kind.
	Unknown Kind = iota
	ConfigurationMissing
	UnreachableEndpoint
	TypeMismatch
	MissingKey
	EmptyResponse
	UnknownStatus
	DeliveryError
)

var kindNames = map[Kind]string{
	Unknown:              "unknown",
	ConfigurationMissing: "configuration missing",
	UnreachableEndpoint:  "unreachable endpoint",
	TypeMismatch:         "type mismatch",
	MissingKey:           "missing key",
	EmptyResponse:        "empty response",
	UnknownStatus:        "unknown status",
	DeliveryError:        "delivery error",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is an error tagged with a Kind. Op names the operation that
// failed and Err is the optional underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a tagged error with a formatted message.
func New(kind Kind, op, format string, args ...any) error {
	return &Error{
		Kind: kind,
		Op:   op,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind: kind,
		Op:   op,
		Msg:  msg,
		Err:  err,
	}
}

// KindOf returns the kind of the first tagged error in err's chain, or
// Unknown when there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// Is reports whether err's chain contains a failure of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
