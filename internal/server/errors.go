package server

import (
	"encoding/json"
	"net/http"
)

// Error codes returned to clients.
const (
	CodeInvalidRequest = "invalid_request"
	CodeNotFound       = "not_found"
	CodeScanFailed     = "scan_failed"
	CodeInternal       = "internal_error"
)

// APIError is the client-visible error shape. Messages never carry internal
// error text.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e APIError) Error() string { return e.Code + ": " + e.Message }

type errorResponse struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: APIError{Code: code, Message: msg}})
}
