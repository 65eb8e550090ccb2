package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure the way callers need to react to it:
// 4xx-style kinds are never retried; Upstream may be retried only when the
// underlying call was idempotent and rate limited.
type Kind int

const (
	KindValidation Kind = iota
	KindAuthorization
	KindConflict
	KindNotFound
	KindUpstream
	KindExpiredCredentials
)

// Well-known remediation codes surfaced to callers instead of raw provider
// error text.
const (
	CodeOutOfSequence      = "OUT_OF_SEQUENCE"
	CodeRegenerateRequired = "REGENERATE_REQUIRED"
	CodeNotPending         = "NOT_PENDING"
	CodeRoomExpired        = "ROOM_EXPIRED"
	CodeEnvelopeCompleted  = "ENVELOPE_COMPLETED"
)

// Error is the typed service error. Code is optional and carries a concrete
// remediation hint where one is known.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NewValidationCode(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

func NewAuthorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func NewConflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func NewNotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func NewUpstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

func NewExpiredCredentials(msg string) *Error {
	return &Error{Kind: KindExpiredCredentials, Message: msg}
}

// KindOf extracts the service error kind, or (0, false) for untyped errors.
func KindOf(err error) (Kind, bool) {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind, true
	}
	return 0, false
}

// CodeOf extracts the remediation code, if any.
func CodeOf(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
