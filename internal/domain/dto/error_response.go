package dto

import "time"

// ErrorResponse is the standardized JSON error body returned by every
// endpoint. It also implements error for convenient propagation.
type ErrorResponse struct {
	Message      string    `json:"message" example:"scenario not ready"`
	ErrorDetails string    `json:"error,omitempty" example:"provider_error: timed out"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewErrorResponse builds an ErrorResponse, capturing the inner error's
// message (if any) for diagnostics.
func NewErrorResponse(message string, err error) ErrorResponse {
	resp := ErrorResponse{
		Message:   message,
		Timestamp: time.Now(),
	}
	if err != nil {
		resp.ErrorDetails = err.Error()
	}
	return resp
}

func (e ErrorResponse) Error() string {
	if e.ErrorDetails != "" {
		return e.Message + ": " + e.ErrorDetails
	}
	return e.Message
}
