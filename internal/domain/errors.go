package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinels for errors.Is; *Error wraps exactly one of them.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")
	ErrStorage           = errors.New("storage error")
)

type Error struct {
	Err     error
	Entity  string
	Message string
	Fields  []string

	// Status overrides the transport status derived from Err. Zero means
	// "use the default for the kind".
	Status int

	cause error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Err, e.cause}
	}
	return []error{e.Err}
}

// Cause returns the underlying storage error, if any.
func (e *Error) Cause() error { return e.cause }

// MissingFields builds the validation error for absent request fields.
func MissingFields(entity string, fields ...string) error {
	sorted := append([]string(nil), fields...)
	sort.Strings(sorted)
	quoted := make([]string, len(sorted))
	for i, f := range sorted {
		quoted[i] = "'" + f + "'"
	}
	return &Error{
		Err:     ErrValidation,
		Entity:  entity,
		Fields:  sorted,
		Message: "Missing fields : [" + strings.Join(quoted, ", ") + "]",
	}
}

func Invalid(entity, field, msg string) error {
	return &Error{Err: ErrValidation, Entity: entity, Fields: []string{field}, Message: msg}
}

func NotFound(entity, msg string) error {
	return &Error{Err: ErrNotFound, Entity: entity, Message: msg}
}

func Conflict(entity, msg string) error {
	return &Error{Err: ErrConflict, Entity: entity, Message: msg}
}

func Unauthorized(msg string) error {
	return &Error{Err: ErrUnauthorized, Entity: "auth", Message: msg}
}

func Forbidden(msg string) error {
	return &Error{Err: ErrForbidden, Entity: "auth", Message: msg}
}

func ProductNotFound(id uint) error {
	return &Error{
		Err:     ErrProductNotFound,
		Entity:  "product",
		Message: fmt.Sprintf("Product id : %d not exist.", id),
	}
}

func InsufficientStock(requested, available int, product string) error {
	return &Error{
		Err:     ErrInsufficientStock,
		Entity:  "product",
		Message: fmt.Sprintf("Product quantity is not sufficient %d > %d for %s.", requested, available, product),
	}
}

// Storage wraps an unexpected persistence failure. Already-typed errors pass
// through untouched.
func Storage(err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Err: ErrStorage, Entity: "store", Message: "Internal error: " + err.Error(), cause: err}
}

// WithStatus returns a copy of err that reports the given transport status.
func WithStatus(err error, status int) error {
	var de *Error
	if !errors.As(err, &de) {
		return err
	}
	cp := *de
	cp.Status = status
	return &cp
}
