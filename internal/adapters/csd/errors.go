package csd

import (
	"errors"
	"net/url"

	"github.com/jembi/datim-update-infoman/internal/ports/secondary"
)

// newTransportError extracts the innermost reason from an HTTP client error so the
// console line names the cause (e.g. "connection refused") rather than the full
// request URL.
func newTransportError(err error) *secondary.TransportError {
	reason := err.Error()
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		reason = urlErr.Err.Error()
	}
	return &secondary.TransportError{Reason: reason, Err: err}
}
