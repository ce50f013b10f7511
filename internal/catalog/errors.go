package catalog

import "fmt"

// FetchError reports a catalog source that could not be read or answered with a failure status.
type FetchError struct {
	Source string
	Status int
	Err    error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("catalog: fetch %s: status %d", e.Source, e.Status)
	}
	return fmt.Sprintf("catalog: fetch %s: %v", e.Source, e.Err)
}

// Unwrap exposes the underlying error.
func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a catalog payload that could not be decoded.
type ParseError struct {
	Source string
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("catalog: parse %s: %v", e.Source, e.Err)
}

// Unwrap exposes the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }
