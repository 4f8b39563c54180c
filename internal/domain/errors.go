package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidRecord is returned when a stored record breaks the status/payload pairing.
	ErrInvalidRecord = errors.New("invalid record")
)
