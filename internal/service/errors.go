package service

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/langchou/fieldops/internal/store"
)

// Kind classifies service failures.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindPrecondition
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition_failed"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is the error type every service method returns.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if len(e.Details) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Details, "; "))
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err; errors not raised by this package are internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func validationError(op string, details []string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: "validation failed", Details: details}
}

func preconditionError(op, msg string) *Error {
	return &Error{Kind: KindPrecondition, Op: op, Message: msg}
}

func conflictError(op, msg string) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: msg}
}

func notFoundError(op, msg string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: msg}
}

// storeError maps a store failure. Sentinels keep their meaning; anything else is logged
// and reported as internal.
func storeError(logger *zap.Logger, op string, err error, notFound, conflict string) *Error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &Error{Kind: KindNotFound, Op: op, Message: notFound, Err: err}
	case errors.Is(err, store.ErrConflict):
		return &Error{Kind: KindConflict, Op: op, Message: conflict, Err: err}
	case errors.Is(err, store.ErrReference):
		return &Error{Kind: KindValidation, Op: op, Message: "referenced record does not exist", Err: err}
	default:
		logger.Error("Store operation failed", zap.String("op", op), zap.Error(err))
		return &Error{Kind: KindInternal, Op: op, Message: fmt.Sprintf("%s failed", op), Err: err}
	}
}
