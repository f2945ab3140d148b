package rest

import (
	"errors"
	"fmt"
)

// ErrUnauthorized means no usable access token could be obtained even after
// a silent refresh. It is terminal for the call; the usual reaction is to
// send the user to the login view.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is a non-2xx response, after at most one refresh-and-retry
// cycle. Body holds the raw response text for display.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
}

// IsStatus reports whether err is a StatusError with the given status code.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == status
}
