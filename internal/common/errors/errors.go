// internal/common/errors/errors.go
package errors

import (
	"fmt"
	"time"
)

// ErrorCode identifies a failure class inside the reminder engine.
type ErrorCode string

const (
	// Channel configuration problems. Non-fatal: the channel simply reports
	// unavailable and is skipped for every recipient.
	CodeChannelNotConfigured ErrorCode = "CHANNEL_NOT_CONFIGURED"

	// Transient delivery failures. Recorded per channel in the fan-out
	// result; the candidate is retried on the next scheduled trigger.
	CodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"

	// Storage collaborator failures. Abort the whole sweep for the current
	// cycle; the next cycle retries from scratch.
	CodeDataFetchFailed ErrorCode = "DATA_FETCH_FAILED"

	// Unexpected per-recipient failures. Isolated inside the candidate loop.
	CodeRecipientFailed ErrorCode = "RECIPIENT_PROCESSING_FAILED"

	// Custom-message payload rejected by schema validation.
	CodePayloadInvalid ErrorCode = "PAYLOAD_INVALID"

	CodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the engine's uniform error shape.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewChannelNotConfiguredError flags a channel missing credentials.
func NewChannelNotConfiguredError(channel string) *StandardError {
	return &StandardError{
		Code:      CodeChannelNotConfigured,
		Message:   fmt.Sprintf("channel %s is not configured", channel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDeliveryFailedError wraps a transport error from one channel send.
func NewDeliveryFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      CodeDeliveryFailed,
		Message:   fmt.Sprintf("delivery via %s failed", channel),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDataFetchError wraps a storage collaborator failure.
func NewDataFetchError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      CodeDataFetchFailed,
		Message:   fmt.Sprintf("data fetch failed: %s", operation),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecipientError wraps an unexpected failure while processing one
// candidate/recipient pair.
func NewRecipientError(entityID, userID string, err error) *StandardError {
	return &StandardError{
		Code:      CodeRecipientFailed,
		Message:   fmt.Sprintf("failed processing entity %s for user %s", entityID, userID),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewPayloadInvalidError reports a custom-message payload that failed schema
// validation.
func NewPayloadInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      CodePayloadInvalid,
		Message:   "custom message payload invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryable reports whether the error class is worth another attempt on a
// later cycle.
func IsRetryable(err error) bool {
	if stdErr, ok := err.(*StandardError); ok {
		return stdErr.Retryable
	}
	return false
}

// Category groups codes for logging and metrics labels.
func Category(code ErrorCode) string {
	switch code {
	case CodeChannelNotConfigured:
		return "configuration"
	case CodeDeliveryFailed:
		return "delivery"
	case CodeDataFetchFailed:
		return "storage"
	case CodeRecipientFailed:
		return "recipient"
	case CodePayloadInvalid:
		return "validation"
	default:
		return "internal"
	}
}
