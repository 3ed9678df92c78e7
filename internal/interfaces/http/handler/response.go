package handler

import "github.com/osmap/backend/internal/interfaces/http/dto"

// APIResponse is dto.Response with a typed payload, used by the swag
// annotations and by tests that decode a known payload
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
}

// ErrorResponse is the envelope of every failed request
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Error   *dto.ErrorInfo `json:"error"`
}
