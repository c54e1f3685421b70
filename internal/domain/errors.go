package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the feed.
var (
	ErrMalformedEvent    = fmt.Errorf("malformed progress event")
	ErrUnmatchedCallID   = fmt.Errorf("call id has no matching start")
	ErrFormatterFailure  = fmt.Errorf("formatter failed")
	ErrContentNotFound   = fmt.Errorf("content not found")
	ErrConfigLoad        = fmt.Errorf("failed to load configuration")
	ErrAuthInvalid       = fmt.Errorf("authentication failed")
	ErrInvalidFrame      = fmt.Errorf("invalid frame")
	ErrRateLimit         = fmt.Errorf("rate limit exceeded")
	ErrRPCMethodNotFound = fmt.Errorf("rpc method not found")
	ErrRPCInvalidPayload = fmt.Errorf("rpc payload invalid")

	ErrGatewayAuthFailed = fmt.Errorf("gateway: %w", ErrAuthInvalid)
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "Registry.Format")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrRateLimit)
}

// ErrorCode is a machine-parseable error category carried in gateway error frames.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeMalformedEvent    ErrorCode = "MALFORMED_EVENT"
	CodeUnmatchedCallID   ErrorCode = "UNMATCHED_CALL_ID"
	CodeFormatterFailure  ErrorCode = "FORMATTER_FAILURE"
	CodeContentNotFound   ErrorCode = "CONTENT_NOT_FOUND"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"
	CodeAuthInvalid       ErrorCode = "AUTH_INVALID"
	CodeInvalidFrame      ErrorCode = "INVALID_FRAME"
	CodeRateLimit         ErrorCode = "RATE_LIMIT"
	CodeRPCMethodNotFound ErrorCode = "RPC_METHOD_NOT_FOUND"
	CodeRPCInvalidPayload ErrorCode = "RPC_INVALID_PAYLOAD"
)

var errorCodeMap = map[error]ErrorCode{
	ErrMalformedEvent:    CodeMalformedEvent,
	ErrUnmatchedCallID:   CodeUnmatchedCallID,
	ErrFormatterFailure:  CodeFormatterFailure,
	ErrContentNotFound:   CodeContentNotFound,
	ErrConfigLoad:        CodeConfigLoad,
	ErrAuthInvalid:       CodeAuthInvalid,
	ErrInvalidFrame:      CodeInvalidFrame,
	ErrRateLimit:         CodeRateLimit,
	ErrRPCMethodNotFound: CodeRPCMethodNotFound,
	ErrRPCInvalidPayload: CodeRPCInvalidPayload,
}

// ErrorCodeOf returns the ErrorCode for err by walking its wrap chain.
// Returns CodeUnknown if no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}
	if code, ok := errorCodeMap[err]; ok {
		return code
	}
	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode of the wrapped sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}
