// Package errors provides standardized error handling for the site's HTTP
// endpoints and its BPMN job worker.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Notification dispatch
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeUnknownKind    ErrorCode = "UNKNOWN_KIND"
	ErrCodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"

	// Webhook relay
	ErrCodeWebhookProcessingFailed ErrorCode = "WEBHOOK_PROCESSING_FAILED"
	ErrCodeInvalidSignature        ErrorCode = "INVALID_SIGNATURE"

	// Application submission
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeAttachmentTooLarge  ErrorCode = "ATTACHMENT_TOO_LARGE"
	ErrCodeUploadFailed        ErrorCode = "UPLOAD_FAILED"
	ErrCodeInsertFailed        ErrorCode = "INSERT_FAILED"
	ErrCodeDuplicateSubmission ErrorCode = "DUPLICATE_SUBMISSION"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// Messages shown to callers. These strings are part of the public contract
// of the site's endpoints.
const (
	MsgMissingTypeOrData = "Missing type or data"
	MsgUnknownType       = "Unknown type"
	MsgFailedToSendEmail = "Failed to send email"
	MsgWebhookFailed     = "Webhook processing failed"
	MsgInvalidSignature  = "Invalid signature"
	MsgValidationFailed  = "Please correct the highlighted fields"
	MsgResumeTooLarge    = "Resume file size must be less than 10MB"
	MsgSubmissionFailed  = "There was an error submitting your application. Please try again."
	MsgAlreadySubmitting = "This application is already being submitted"
	MsgInternal          = "Internal server error"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// As extracts a *StandardError from err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := As(err)
	return ok && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInvalidRequestError is returned when a notification request lacks a type or data.
func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, MsgMissingTypeOrData, details, false, nil)
}

// NewUnknownKindError is returned for a notification type outside the closed set.
func NewUnknownKindError(kind string) *StandardError {
	return newError(ErrCodeUnknownKind, MsgUnknownType, fmt.Sprintf("type: %s", kind), false, nil)
}

// NewDeliveryFailedError wraps a mail transport failure. Deliveries are
// at-most-once so the error is not retryable.
func NewDeliveryFailedError(kind string, err error) *StandardError {
	return newError(ErrCodeDeliveryFailed, MsgFailedToSendEmail,
		fmt.Sprintf("type: %s, error: %s", kind, err.Error()), false, err)
}

func NewWebhookProcessingFailedError(err error) *StandardError {
	return newError(ErrCodeWebhookProcessingFailed, MsgWebhookFailed, err.Error(), true, err)
}

func NewInvalidSignatureError(details string) *StandardError {
	return newError(ErrCodeInvalidSignature, MsgInvalidSignature, details, false, nil)
}

// NewValidationFailedError carries per-field messages in Metadata["fields"].
func NewValidationFailedError(fields map[string]string) *StandardError {
	e := newError(ErrCodeValidationFailed, MsgValidationFailed,
		fmt.Sprintf("%d invalid field(s)", len(fields)), false, nil)
	e.Metadata = map[string]interface{}{"fields": fields}
	return e
}

func NewAttachmentTooLargeError(size, limit int64) *StandardError {
	return newError(ErrCodeAttachmentTooLarge, MsgResumeTooLarge,
		fmt.Sprintf("size: %d, limit: %d", size, limit), false, nil)
}

func NewUploadFailedError(err error) *StandardError {
	return newError(ErrCodeUploadFailed, MsgSubmissionFailed, err.Error(), true, err)
}

func NewInsertFailedError(err error) *StandardError {
	return newError(ErrCodeInsertFailed, MsgSubmissionFailed, err.Error(), true, err)
}

func NewDuplicateSubmissionError(token string) *StandardError {
	return newError(ErrCodeDuplicateSubmission, MsgAlreadySubmitting,
		fmt.Sprintf("formToken: %s", token), false, nil)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, MsgInternal, err.Error(), false, err)
}

// ==========================
// 4. Error Conversion
// ==========================

// HTTPStatus maps an error code to the status the site answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeUnknownKind:
		return http.StatusBadRequest
	case ErrCodeInvalidSignature:
		return http.StatusUnauthorized
	case ErrCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case ErrCodeAttachmentTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeUploadFailed, ErrCodeInsertFailed:
		return http.StatusBadGateway
	case ErrCodeDuplicateSubmission:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// GetRetryCount returns the job retry count for a code. Notification
// delivery is at-most-once, so nothing the job worker raises is retried.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUploadFailed, ErrCodeInsertFailed, ErrCodeWebhookProcessingFailed:
		return 3
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// IsBusinessError reports whether the code describes bad input rather than
// a technical failure. Business errors are thrown as BPMN errors.
func IsBusinessError(code ErrorCode) bool {
	switch code {
	case ErrCodeInvalidRequest, ErrCodeUnknownKind, ErrCodeValidationFailed,
		ErrCodeAttachmentTooLarge, ErrCodeInvalidSignature, ErrCodeDuplicateSubmission:
		return true
	}
	return false
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case code == ErrCodeDeliveryFailed:
		return "NOTIFICATION"
	case strings.Contains(codeStr, "WEBHOOK") || strings.Contains(codeStr, "SIGNATURE"):
		return "WEBHOOK"
	case strings.Contains(codeStr, "UPLOAD") || strings.Contains(codeStr, "INSERT"):
		return "STORAGE"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") ||
		strings.Contains(codeStr, "UNKNOWN") || strings.Contains(codeStr, "TOO_LARGE"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
