package httpx

import (
	"encoding/json"
	"net/http"
)

// Error classifications carried in the envelope's error field. The HTTP
// status and the classification are always set together by WriteFailure.
const (
	ErrValidation       = "ValidationError"
	ErrAuth             = "AuthError"
	ErrNotFound         = "NotFoundError"
	ErrMethodNotAllowed = "MethodNotAllowed"
	ErrRateLimited      = "RateLimited"
	ErrOriginNotAllowed = "OriginNotAllowed"
	ErrUpstream         = "UpstreamError"
)

// Envelope is the single response shape for every API route: exactly one of
// the success/failure variants per response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func WriteSuccess(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{Success: true, Data: data})
}

func WriteFailure(w http.ResponseWriter, status int, classification, message string) {
	write(w, status, Envelope{Success: false, Error: classification, Message: message})
}

func write(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
