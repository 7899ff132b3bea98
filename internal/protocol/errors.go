package protocol

import "errors"

var (
	// ErrMalformed indicates a frame that is not a JSON object with a type.
	ErrMalformed = errors.New("malformed message")
	// ErrInvalidPayload indicates a known message type with missing or invalid fields.
	ErrInvalidPayload = errors.New("invalid message payload")
	// ErrUnknownEnvelopeType indicates an outbound envelope type outside the closed set.
	ErrUnknownEnvelopeType = errors.New("unknown envelope type")
)
