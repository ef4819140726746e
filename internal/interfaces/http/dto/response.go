package dto

import "net/http"

// Response represents a standard API response
type Response struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{Success: true, Data: data}
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error     string             `json:"error"`
	Message   string             `json:"message,omitempty"`
	Code      string             `json:"code"`
	RequestID string             `json:"request_id,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail names one invalid field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewErrorResponse creates an error body. The short title is derived from
// status and message is sanitized.
func NewErrorResponse(status int, code, message, requestID string) ErrorResponse {
	return ErrorResponse{
		Error:     http.StatusText(status),
		Message:   SanitizeMessage(message),
		Code:      code,
		RequestID: requestID,
	}
}

// NewValidationErrorResponse creates a 400 body with per-field details
func NewValidationErrorResponse(code, message, requestID string, details []ValidationDetail) ErrorResponse {
	resp := NewErrorResponse(http.StatusBadRequest, code, message, requestID)
	resp.Details = details
	return resp
}
