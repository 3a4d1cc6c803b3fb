package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery is returned before any request when paging is out of range
	ErrInvalidQuery = errors.New("invalid product query")
	// ErrUnknownCategory is returned for a category route that does not exist
	ErrUnknownCategory = errors.New("unknown category")
)

// CatalogError is the non-fatal error shown inline above the product grid.
// When Stale is set the call also returned the last good product list.
type CatalogError struct {
	Op      string
	Message string
	Stale   bool
	Err     error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("catalog %s: %s", e.Op, e.Message)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

func catalogError(op string, err error) *CatalogError {
	return &CatalogError{
		Op:      op,
		Message: "Products could not be loaded. Please try again.",
		Err:     err,
	}
}
