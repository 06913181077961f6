package http

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse represents a standard API error response
type ErrorResponse struct {
	Error   string `json:"error"`             // Machine-readable error code
	Message string `json:"message"`           // Human-readable message
	Details string `json:"details,omitempty"` // Optional additional context
}

// WriteJSON writes v as a JSON body with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteNoContent writes an empty 204 response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError writes a JSON error response with the given status code
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorWithDetails(w, statusCode, errorCode, message, "")
}

// WriteErrorWithDetails writes a JSON error response with additional details
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}
