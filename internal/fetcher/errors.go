package fetcher

import "errors"

// Fetch failure classes. Result.Err wraps one of these.
var (
	// ErrServerStatus is reported when the final attempt returned a 5xx status.
	ErrServerStatus = errors.New("server error status")

	// ErrClientStatus is reported for 4xx and other non-retryable statuses.
	ErrClientStatus = errors.New("client error status")

	// ErrTransport is reported when no HTTP response was received.
	ErrTransport = errors.New("transport error")

	// ErrBodyTooLarge is reported when the body exceeds the configured limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrInvalidProxy is returned by New for a proxy URL that cannot be used.
	ErrInvalidProxy = errors.New("invalid proxy URL")
)
