package errors

import "net/http"

// ErrQueryFailed distinguishes "query broke" from "zero results".
var ErrQueryFailed = &Exception{
	Message:    "query execution failed",
	StatusCode: http.StatusInternalServerError,
}
