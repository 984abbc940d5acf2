package domain

import (
	"errors"
	"fmt"
)

// ErrorKind — стабильный код ошибки, который отдается клиенту вместе с сообщением.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindNotFound         ErrorKind = "not_found"
	KindConflict         ErrorKind = "conflict"
	KindForbidden        ErrorKind = "forbidden"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindInvalidOperation ErrorKind = "invalid_operation"
	KindDependency       ErrorKind = "dependency"
)

// Error несет код и человекочитаемое сообщение; внутренняя причина не попадает в ответ.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf возвращает код ошибки; для неклассифицированных ошибок считаем Dependency.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindDependency
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
