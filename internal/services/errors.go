package services

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/hitqr/internal/shared"
)

// APIError is a non-2xx response from the Spotify Web API.
type APIError struct {
	Status  int
	Message string
	Reason  string
	// Device marks errors returned by device scoped endpoints.
	Device bool
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error: status %d", e.Status)
	}
	return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() []error {
	errs := []error{shared.ErrAPIRequest}
	switch {
	case e.Status == http.StatusUnauthorized:
		errs = append(errs, shared.ErrUnauthorized)
	case e.Status == http.StatusNotFound && e.Device:
		errs = append(errs, shared.ErrDeviceNotFound)
	case e.Status == http.StatusServiceUnavailable:
		errs = append(errs, shared.ErrServiceUnavailable)
	}
	return errs
}

// errorBody is the error envelope used by the Web API.
type errorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// newAPIError builds an [APIError] from a response status and body. The body may be empty or not JSON.
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var envelope errorBody
	if len(body) > 0 && json.Unmarshal(body, &envelope) == nil {
		apiErr.Message = envelope.Error.Message
		apiErr.Reason = envelope.Error.Reason
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
