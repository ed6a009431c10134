// Package model defines the value types shared by the generation pipeline,
// its provider adapters, and the HTTP and MCP surfaces.
package model

import "time"

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error code constants shared by the HTTP envelope, the stream error event,
// and the classified errors returned by the provider adapters.
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeAuth          = "AUTH_ERROR"
	ErrCodeRateLimit     = "RATE_LIMIT"
	ErrCodeNetwork       = "NETWORK_ERROR"
	ErrCodeAPI           = "API_ERROR"
	ErrCodeParse         = "PARSE_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status          string   `json:"status"`
	Version         string   `json:"version"`
	Providers       []string `json:"providers"`
	DefaultProvider string   `json:"default_provider"`
	Research        string   `json:"research"`
	Uptime          int64    `json:"uptime_seconds"`
}
