package errors

import "net/http"

var ErrUndoExpired = &Exception{
	Message:    "deletion undo window has expired",
	StatusCode: http.StatusGone,
}
