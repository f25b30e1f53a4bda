package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by use cases so the HTTP layer can map them without string matching.
type ErrorKind string

const (
	KindCacheUnavailable   ErrorKind = "cache_unavailable"
	KindCacheCorrupted     ErrorKind = "cache_corrupted"
	KindOriginUnavailable  ErrorKind = "origin_unavailable"
	KindQueueUnavailable   ErrorKind = "queue_unavailable"
	KindValidation         ErrorKind = "validation"
	KindAccountNotFound    ErrorKind = "account_not_found"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindEmailTaken         ErrorKind = "email_taken"
	KindUnauthorized       ErrorKind = "unauthorized"
)

// Sentinels for errors.Is. A *Error matches the sentinel of its kind.
var (
	ErrCacheUnavailable   = &Error{Kind: KindCacheUnavailable}
	ErrCacheCorrupted     = &Error{Kind: KindCacheCorrupted}
	ErrOriginUnavailable  = &Error{Kind: KindOriginUnavailable}
	ErrQueueUnavailable   = &Error{Kind: KindQueueUnavailable}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrAccountNotFound    = &Error{Kind: KindAccountNotFound}
	ErrInvalidCredentials = &Error{Kind: KindInvalidCredentials}
	ErrEmailTaken         = &Error{Kind: KindEmailTaken}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
)

type Error struct {
	Kind ErrorKind
	Op   string
	Msg  string
	Err  error
}

func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds an error of the given kind with a user-facing message.
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil && t.Msg == ""
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the user-facing message of the first *Error in err's chain.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}
