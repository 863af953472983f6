// Package apperr defines the application error taxonomy shared by services
// and the HTTP transport.
package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind is the broad class of an error. Transports map kinds to status codes.
type Kind string

const (
	KindValidation    Kind = "VALIDATION"
	KindNotFound      Kind = "NOT_FOUND"
	KindStateConflict Kind = "STATE_CONFLICT"
	KindAuth          Kind = "AUTH"
	KindGateDenied    Kind = "GATE_DENIED"
	KindUpstream      Kind = "UPSTREAM"
	KindInternal      Kind = "INTERNAL"
)

// Code is a stable, client-facing error identifier.
type Code string

const (
	CodeValidationFailed            Code = "VALIDATION_FAILED"
	CodeNotFound                    Code = "NOT_FOUND"
	CodeUnauthorized                Code = "UNAUTHORIZED"
	CodeNonceExpiredOrMissing       Code = "NONCE_EXPIRED_OR_MISSING"
	CodeInvalidSignatureEncoding    Code = "INVALID_SIGNATURE_ENCODING"
	CodeInvalidSignatureLength      Code = "INVALID_SIGNATURE_LENGTH"
	CodeSignatureVerificationFailed Code = "SIGNATURE_VERIFICATION_FAILED"
	CodeInvalidStateTransition      Code = "INVALID_STATE_TRANSITION"
	CodeDropNotLaunched             Code = "DROP_NOT_LAUNCHED"
	CodeInsufficientHolding         Code = "INSUFFICIENT_HOLDING"
	CodeMessageRejected             Code = "MESSAGE_REJECTED"
	CodePollNotFound                Code = "POLL_NOT_FOUND"
	CodeInvalidOption               Code = "INVALID_OPTION"
	CodeDuplicateVote               Code = "DUPLICATE_VOTE"
	CodeUpstreamFailed              Code = "UPSTREAM_FAILED"
	CodeInternal                    Code = "INTERNAL"
)

// Error is a typed application error.
type Error struct {
	Kind    Kind              `json:"kind"`
	Code    Code              `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`  // offending field -> reason
	Details map[string]any    `json:"details,omitempty"` // structured extras, e.g. required amount
	Cause   error             `json:"-"`
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithDetail attaches a structured detail. It returns a copy so sentinels stay untouched.
func (e *Error) WithDetail(key string, value any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// WithCause attaches an underlying error. It returns a copy.
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.Cause = err
	return &cp
}

// New creates an error of the given kind and code.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Sentinels. Match with errors.Is; derive instances with WithDetail/WithCause.
var (
	ErrNotFound                    = New(KindNotFound, CodeNotFound, "not found")
	ErrUnauthorized                = New(KindAuth, CodeUnauthorized, "authentication required")
	ErrNonceExpiredOrMissing       = New(KindAuth, CodeNonceExpiredOrMissing, "challenge expired or missing, request a new one")
	ErrInvalidSignatureEncoding    = New(KindAuth, CodeInvalidSignatureEncoding, "signature is not valid base58")
	ErrInvalidSignatureLength      = New(KindAuth, CodeInvalidSignatureLength, "signature must be 64 bytes")
	ErrSignatureVerificationFailed = New(KindAuth, CodeSignatureVerificationFailed, "signature does not match wallet")
	ErrInvalidStateTransition      = New(KindStateConflict, CodeInvalidStateTransition, "operation not allowed in current drop status")
	ErrDropNotLaunched             = New(KindStateConflict, CodeDropNotLaunched, "drop is not launched")
	ErrDuplicateVote               = New(KindStateConflict, CodeDuplicateVote, "wallet already voted in this poll")
	ErrInsufficientHolding         = New(KindGateDenied, CodeInsufficientHolding, "wallet does not hold enough tokens")
	ErrMessageRejected             = New(KindValidation, CodeMessageRejected, "message is empty after filtering")
	ErrPollNotFound                = New(KindNotFound, CodePollNotFound, "poll not found or not active")
	ErrInvalidOption               = New(KindValidation, CodeInvalidOption, "option index out of range")
	ErrValidation                  = New(KindValidation, CodeValidationFailed, "validation failed")
	ErrUpstream                    = New(KindUpstream, CodeUpstreamFailed, "upstream service failed")
	ErrInternal                    = New(KindInternal, CodeInternal, "internal error")
)

// Validation builds a validation error enumerating the offending fields.
func Validation(fields map[string]string) *Error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	e := *ErrValidation
	e.Message = "invalid fields: " + strings.Join(keys, ", ")
	e.Fields = fields
	return &e
}

// InvalidField is shorthand for a single-field validation error.
func InvalidField(field, reason string) *Error {
	return Validation(map[string]string{field: reason})
}

// upstreamMessager is implemented by collaborator errors that carry a
// message meant for callers, separate from their Error() text.
type upstreamMessager interface {
	UpstreamMessage() string
}

// Upstream wraps a collaborator failure. The collaborator's own message is
// kept in the "upstream" detail so clients can see why the call failed.
func Upstream(operation string, err error) *Error {
	e := ErrUpstream.WithCause(err).WithDetail("operation", operation)
	if msg := upstreamMessage(err); msg != "" {
		e = e.WithDetail("upstream", msg)
	}
	e.Message = operation + " failed"
	return e
}

func upstreamMessage(err error) string {
	if err == nil {
		return ""
	}
	var m upstreamMessager
	if errors.As(err, &m) {
		if msg := m.UpstreamMessage(); msg != "" {
			return msg
		}
	}
	return err.Error()
}

// Internal wraps an unexpected failure.
func Internal(operation string, err error) *Error {
	e := ErrInternal.WithCause(err)
	e.Message = operation + " failed"
	return e
}

// InsufficientHolding builds a gate-denied error carrying the required amount.
func InsufficientHolding(requiredRaw, requiredUI string) *Error {
	return ErrInsufficientHolding.
		WithDetail("required", requiredRaw).
		WithDetail("requiredUi", requiredUI)
}

// As extracts an *Error from err. Unknown errors become INTERNAL.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal("request", err)
}
