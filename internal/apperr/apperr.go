package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindServer Kind = iota
	KindValidation
	KindConflict
	KindUnauthenticated
	KindInvalidCredentials
	KindForbidden
	KindNotFound
	KindAccountDeactivated
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindAccountDeactivated:
		return "account_deactivated"
	default:
		return "server"
	}
}

// Error es un fallo con mensaje apto para el cliente.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Validation(msg string) *Error         { return New(KindValidation, msg) }
func Conflict(msg string) *Error           { return New(KindConflict, msg) }
func Unauthenticated(msg string) *Error    { return New(KindUnauthenticated, msg) }
func InvalidCredentials(msg string) *Error { return New(KindInvalidCredentials, msg) }
func Forbidden(msg string) *Error          { return New(KindForbidden, msg) }
func NotFound(msg string) *Error           { return New(KindNotFound, msg) }

func AccountDeactivated() *Error {
	return New(KindAccountDeactivated, "Account is deactivated")
}

// Server envuelve un error interno; el mensaje al cliente es genérico.
func Server(err error) *Error {
	return &Error{Kind: KindServer, Message: "Server error", Err: err}
}

// KindOf devuelve KindServer para errores que no son *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

// Is permite comparar por tipo: errors.Is(err, apperr.New(apperr.KindNotFound, "")).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Kind == e.Kind
}

// Message devuelve el texto seguro para la respuesta.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindServer {
		return e.Message
	}
	return "Server error"
}
