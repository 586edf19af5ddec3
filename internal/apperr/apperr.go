// Package apperr описывает таксономию ошибок бизнес-логики.
//
// Каждая категория — это sentinel-ошибка. Конкретные ошибки оборачивают
// категорию через %w, поэтому вызывающая сторона различает их с помощью errors.Is,
// а транспортный слой маппит категорию в HTTP-статус.
package apperr

import (
	"errors"
	"fmt"
)

// Категории ошибок.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Kind — машиночитаемое имя категории ошибки.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindValidation   Kind = "validation_error"
	KindConflict     Kind = "conflict"
	KindForbidden    Kind = "forbidden"
	KindUnauthorized Kind = "unauthorized"
	KindInternal     Kind = "internal_error"
)

// KindOf возвращает категорию ошибки. Всё, что не попало ни в одну категорию,
// считается внутренней ошибкой.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	default:
		return KindInternal
	}
}

func wrap(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// NotFound создаёт ошибку категории ErrNotFound.
func NotFound(format string, args ...any) error { return wrap(ErrNotFound, format, args...) }

// InvalidState создаёт ошибку категории ErrInvalidState.
func InvalidState(format string, args ...any) error { return wrap(ErrInvalidState, format, args...) }

// Conflict создаёт ошибку категории ErrConflict.
func Conflict(format string, args ...any) error { return wrap(ErrConflict, format, args...) }

// Forbidden создаёт ошибку категории ErrForbidden.
func Forbidden(format string, args ...any) error { return wrap(ErrForbidden, format, args...) }

// FieldError — ошибка валидации конкретного поля.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Field, e.Message)
}

// Unwrap позволяет сравнивать FieldError с ErrValidation через errors.Is.
func (e *FieldError) Unwrap() error { return ErrValidation }

// Field создаёт ошибку валидации поля.
func Field(field, message string) error {
	return &FieldError{Field: field, Message: message}
}
