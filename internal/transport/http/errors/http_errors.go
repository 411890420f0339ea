package errors

import (
	"encoding/json"
	"net/http"
	"time"
)

// APIError is the uniform rejection envelope. Business rejections (self
// like, duplicate, no credits, premium required) ride on it with a 409.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RateLimitError extends the envelope for 429 responses. CooldownUntil is
// set for pair-cooldown rejections and nil for burst-limiter ones.
type RateLimitError struct {
	Code          string     `json:"code"`
	Message       string     `json:"message"`
	RetryAfterSec int64      `json:"retry_after_sec"`
	CooldownUntil *time.Time `json:"cooldown_until"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteCode writes a plain APIError in one call.
func WriteCode(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, APIError{Code: code, Message: message})
}
