package storage

import "errors"

var (
	ErrNotFound          = errors.New("storage: not found")
	ErrInvalidCID        = errors.New("storage: invalid cid")
	ErrCIDMismatch       = errors.New("storage: cid mismatch")
	ErrImmutable         = errors.New("storage: immutable object mismatch")
	ErrUpload            = errors.New("storage: upload failed")
	ErrMalformedResponse = errors.New("storage: malformed upload response")
	ErrEmptyPayload      = errors.New("storage: empty payload")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
