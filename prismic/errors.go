package prismic

import "errors"

var (
	// ErrNotFound is returned when the repository has no document for a lookup.
	ErrNotFound = errors.New("prismic: document not found")

	// ErrUpstreamUnavailable wraps transport failures, timeouts, 5xx and 429
	// responses. Calls failing with it are safe to retry.
	ErrUpstreamUnavailable = errors.New("prismic: upstream unavailable")
)
