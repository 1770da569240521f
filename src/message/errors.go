package message

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed is returned when a line is not a well-formed message
	// object, or a field holds a value of the wrong kind.
	ErrMalformed = errors.New("malformed message")

	// ErrMissingField is returned when a field required by the envelope or
	// by the payload variant is absent or null.
	ErrMissingField = errors.New("missing required field")

	// ErrUnknownType is returned when the "type" discriminator does not name
	// a variant of the protocol.
	ErrUnknownType = errors.New("unknown message type")
)

// DecodeError reports why a line could not be decoded. It unwraps to one of
// ErrMalformed, ErrMissingField or ErrUnknownType.
type DecodeError struct {
	Protocol string
	Type     string
	Field    string
	Err      error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s: decode", e.Protocol)
	if e.Type != "" {
		msg += fmt.Sprintf(" %q", e.Type)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(" field %q", e.Field)
	}
	return msg + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}
