package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies gateway errors. Configuration and ownership errors are
// synchronous and surfaced before any stream begins; they are never retried.
type ErrorCode string

const (
	CodeProvisionNotFound         ErrorCode = "provision_not_found"
	CodeProvisionDisabled         ErrorCode = "provision_disabled"
	CodeModelDisabled             ErrorCode = "model_disabled"
	CodeProviderDisabled          ErrorCode = "provider_disabled"
	CodeCredentialMissing         ErrorCode = "credential_missing"
	CodeUnsupportedProtocol       ErrorCode = "unsupported_protocol"
	CodeDefaultModelNotConfigured ErrorCode = "default_model_not_configured"
	CodeConversationNotFound      ErrorCode = "conversation_not_found"
	CodeConversationNotOwned      ErrorCode = "conversation_not_owned"
	CodeTemplateNotFound          ErrorCode = "template_not_found"
	CodeTemplateRenderError       ErrorCode = "template_render_error"
	CodePrefixContinueNoHistory   ErrorCode = "prefix_continue_no_history"
	CodeUpstream                  ErrorCode = "upstream_error"
)

// Error is the typed error returned across the gateway core.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// Err holds the underlying cause for debugging; not exposed to clients.
	Err error `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatusCode maps the error code to an HTTP status for the transport
// layer.
func (e *Error) HTTPStatusCode() int {
	switch e.Code {
	case CodeProvisionNotFound, CodeConversationNotFound, CodeTemplateNotFound:
		return http.StatusNotFound
	case CodeConversationNotOwned:
		return http.StatusForbidden
	case CodeProvisionDisabled, CodeModelDisabled, CodeProviderDisabled,
		CodeDefaultModelNotConfigured, CodeCredentialMissing,
		CodeUnsupportedProtocol, CodeTemplateRenderError,
		CodePrefixContinueNoHistory:
		return http.StatusConflict
	case CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewError builds a typed gateway error.
func NewError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Errorf builds a typed gateway error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the ErrorCode from err, or "" if err is not a gateway
// error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given gateway error code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
