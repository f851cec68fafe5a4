package mpt

import "fmt"

// AuthError is returned when the platform rejects the credential (401) or the
// credential lacks the scope for the operation (403). Always fatal for the
// stage that hit it.
type AuthError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s %s: authentication failed: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// NotFoundError is returned for 404 responses. Fatal for single-entity
// operations, skippable inside batch drivers.
type NotFoundError struct {
	Method string
	Path   string
	Body   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: not found: %s", e.Method, e.Path, e.Body)
}

// RemoteError carries any other non-2xx platform response.
type RemoteError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}
