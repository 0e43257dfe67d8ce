package mcp

import (
	"errors"
	"fmt"

	"github.com/ganot/sitewatch/internal/domain/capture"
	"github.com/ganot/sitewatch/internal/domain/website"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, capture.ErrUnknownWebsite):
		return &APIError{Code: "WEBSITE_NOT_FOUND", Message: "website not found", RecoveryHint: "List websites to find valid ids"}
	case errors.Is(err, capture.ErrAlreadyRunning):
		return &APIError{Code: "ALREADY_RUNNING", Message: "a bulk capture is already running", RecoveryHint: "Wait for it to finish or cancel it"}
	case errors.Is(err, capture.ErrNotRunning):
		return &APIError{Code: "NOT_RUNNING", Message: "no bulk capture is running"}
	case errors.Is(err, capture.ErrCaptureInFlight):
		return &APIError{Code: "CAPTURE_IN_FLIGHT", Message: "a capture is already in progress for this website", RecoveryHint: "Wait for the current capture to settle"}
	case errors.Is(err, website.ErrInvalidURL):
		return &APIError{Code: "INVALID_URL", Message: "the url is not a valid http(s) address"}
	case errors.Is(err, website.ErrStatusExists):
		return &APIError{Code: "STATUS_EXISTS", Message: "a project status with this value already exists"}
	case errors.Is(err, website.ErrEmptyLabel):
		return &APIError{Code: "EMPTY_LABEL", Message: "the status label must not be empty"}
	default:
		return nil
	}
}
