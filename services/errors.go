package services

import (
	"errors"

	"gorm.io/gorm"
)

// Kind classifies service failures for the API layer.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindNotFound
	KindForbidden
	KindUnauthorized
)

// Error is a client-facing failure. Message is safe to return to callers.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches sentinels of the same kind, so errors.Is(err, ErrNotFound)
// holds for every not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == ""
}

var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
)

func validationError(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func conflictError(msg string) error   { return &Error{Kind: KindConflict, Message: msg} }
func notFoundError(msg string) error   { return &Error{Kind: KindNotFound, Message: msg} }
func forbiddenError(msg string) error  { return &Error{Kind: KindForbidden, Message: msg} }

// notFoundOr turns gorm's missing-record error into a not-found error and
// passes everything else through.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundError(msg)
	}
	return err
}
