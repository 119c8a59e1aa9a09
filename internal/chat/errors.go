package chat

import "errors"

// Sentinel errors shared by the websocket and REST entry points so both
// report identical failures for the same operation.
var (
	ErrInvalidTarget = errors.New("message target must be a project or a receiver")
	ErrValidation    = errors.New("invalid message")
	ErrForbidden     = errors.New("forbidden")
	ErrNotFound      = errors.New("message not found")
	ErrPersistence   = errors.New("message store failure")
)
