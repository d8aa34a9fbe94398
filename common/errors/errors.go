package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is a machine-readable error code carried by every pipeline error.
type Code string

const (
	// CodeSessionNotReady indicates the chain session did not become ready in time.
	CodeSessionNotReady Code = "SESSION_NOT_READY"
	// CodeChainNotReady indicates the chain session is connected but not usable yet.
	CodeChainNotReady Code = "CHAIN_NOT_READY"
	// CodeMissingCapability indicates the chain lacks a required transfer primitive.
	CodeMissingCapability Code = "MISSING_CAPABILITY"
	// CodeInvalidAmount indicates a zero, negative or unparseable transfer amount.
	CodeInvalidAmount Code = "INVALID_AMOUNT"
	// CodeInvalidAddress indicates an address that fails SS58 decoding.
	CodeInvalidAddress Code = "INVALID_ADDRESS"
	// CodeSameAccount indicates sender and recipient resolve to the same account.
	CodeSameAccount Code = "SAME_ACCOUNT"
	// CodeMethodUnavailable indicates the requested transfer method does not exist on this runtime.
	CodeMethodUnavailable Code = "METHOD_UNAVAILABLE"
	// CodeNoTransfers indicates a batch request with zero entries.
	CodeNoTransfers Code = "NO_TRANSFERS"
	// CodeTooManyTransfers indicates a batch request above the entry cap.
	CodeTooManyTransfers Code = "TOO_MANY_TRANSFERS"
	// CodeSimulationFailed indicates a dry run classified the transaction as fatal.
	CodeSimulationFailed Code = "SIMULATION_FAILED"
	// CodeApprovalRejected indicates the signer or approval callback declined the transaction.
	CodeApprovalRejected Code = "APPROVAL_REJECTED"
	// CodeBroadcastFailed indicates the transaction could not be submitted to the chain.
	CodeBroadcastFailed Code = "BROADCAST_FAILED"
	// CodeExecutionFailed indicates the chain included the transaction but its dispatch failed.
	CodeExecutionFailed Code = "EXECUTION_FAILED"
	// CodeExecutionTimeout indicates the broadcast/monitor phase exceeded the per-item timeout.
	CodeExecutionTimeout Code = "EXECUTION_TIMEOUT"
	// CodeInternalMismatch indicates a construction sanity check failed; a bug, not a user error.
	CodeInternalMismatch Code = "INTERNAL_MISMATCH"
	// CodeInvalidStep indicates an orchestrator step referencing an unknown builder or operation.
	CodeInvalidStep Code = "INVALID_STEP"
	// CodeInvalidTransition indicates an execution item status change that would move backwards.
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	// CodeItemNotFound indicates a queue lookup for an unknown item ID.
	CodeItemNotFound Code = "ITEM_NOT_FOUND"
)

var (
	ErrNotImplemented = errors.New("functionality not implemented")
	ErrQueueEmpty     = errors.New("execution queue is empty")
)

// Error carries a machine-readable code, a human-readable message and structured
// detail sufficient for a caller to render a precise diagnostic.
type Error struct {
	Code    Code
	Message string
	Details map[string]interface{}
	cause   error
}

// New creates a new coded error.
//
// Parameters:
// - code: the machine-readable error code.
// - message: the human-readable message.
//
// Returns:
// - *Error: the new error instance.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new coded error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an underlying cause with a code and message. Returns nil if err is nil.
func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// WithDetail attaches one structured detail value and returns the same error
// for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// CodeOf extracts the code from an error chain. Returns an empty code for nil
// or uncoded errors.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code Code) bool {
	return CodeOf(err) == code
}
