package common

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is an error that knows how it should be rendered to an HTTP client.
type APIError struct {
	Status  int            `json:"-"`
	Message string         `json:"error"`
	Fields  map[string]any `json:"fields,omitempty"`
}

func (e APIError) Error() string {
	return e.Message
}

func Errf(status int, format string, args ...any) APIError {
	return APIError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// NewAPIError creates an APIError with status, message, and optional fields
func NewAPIError(status int, message string, fields map[string]any) APIError {
	return APIError{
		Status:  status,
		Message: message,
		Fields:  fields,
	}
}

// AsAPIError unwraps err into an APIError. Errors that carry no status
// become a 500 with the error text as message.
func AsAPIError(err error) APIError {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == 0 {
			apiErr.Status = http.StatusInternalServerError
		}
		return apiErr
	}
	return APIError{Status: http.StatusInternalServerError, Message: err.Error()}
}
