package nftstorage

import (
	"fmt"

	"truape.co/arcmint/storage"
)

// APIError is a non-2xx response from the upload endpoint.
type APIError struct {
	Status  int
	Name    string
	Message string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Name != "" && e.Message != "":
		return fmt.Sprintf("nftstorage: %d %s: %s", e.Status, e.Name, e.Message)
	case e.Message != "":
		return fmt.Sprintf("nftstorage: %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("nftstorage: status %d", e.Status)
	}
}

// Unwrap lets callers match any API failure with errors.Is(err, storage.ErrUpload).
func (e *APIError) Unwrap() error { return storage.ErrUpload }
