package errors

import "net/http"

// ErrStoreNotReady is retryable: callers should await bootstrap rather than
// treat it as a query failure.
var ErrStoreNotReady = &Exception{
	Message:    "record store is not ready",
	StatusCode: http.StatusServiceUnavailable,
}
