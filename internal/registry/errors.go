package registry

import (
	"fmt"

	"github.com/wmo-im/codelists/internal/apperr"
)

// UnexpectedStatusError reports a registry response whose status code the
// calling operation does not accept.
type UnexpectedStatusError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *UnexpectedStatusError) Error() string {
	msg := fmt.Sprintf("registry: %s %s: unexpected status %d", e.Method, e.URL, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *UnexpectedStatusError) Unwrap() error { return apperr.ErrUnexpectedStatus }
