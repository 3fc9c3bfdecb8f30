package api

import (
	"log/slog"
	"net/http"
)

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse(http.StatusBadRequest, msg))
}

// Unauthorized writes a 401 error response.
func Unauthorized(w http.ResponseWriter) {
	WriteJSON(w, http.StatusUnauthorized, ErrorResponse(http.StatusUnauthorized, "Authentication required"))
}

// UnprocessableEntity writes a 422 error response.
func UnprocessableEntity(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse(http.StatusUnprocessableEntity, msg))
}

// ValidationFailed writes a 422 response listing every field error.
func ValidationFailed(w http.ResponseWriter, errs []APIError) {
	WriteJSON(w, http.StatusUnprocessableEntity, ErrorsResponse(errs...))
}

// ServiceUnavailable writes a 503 error response.
func ServiceUnavailable(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusServiceUnavailable, ErrorResponse(http.StatusServiceUnavailable, msg))
}

// InternalError logs err and writes a 500 response carrying msg.
func InternalError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse(http.StatusInternalServerError, msg))
}
