package errors

import "net/http"

var ErrInvalidWindow = &Exception{
	Message:    "row window bounds must not be negative",
	StatusCode: http.StatusBadRequest,
}
