// Package apperrors classifies the failures the escrow core surfaces so
// handlers can tell "already processed" apart from "bad request".
package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind int

const (
	// Validation: bad input shape or range, rejected before any write.
	Validation Kind = iota + 1
	// StateConflict: the operation is not valid in the record's current state.
	StateConflict
	// Authorization: the acting party holds the wrong role for the operation.
	Authorization
	// NotFound: the referenced record does not exist.
	NotFound
)

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

func Validationf(format string, args ...interface{}) error {
	return &Error{Kind: Validation, Msg: fmt.Sprintf(format, args...)}
}

func StateConflictf(format string, args ...interface{}) error {
	return &Error{Kind: StateConflict, Msg: fmt.Sprintf(format, args...)}
}

func Authorizationf(format string, args ...interface{}) error {
	return &Error{Kind: Authorization, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) error {
	return &Error{Kind: NotFound, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the classification of err, or 0 for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// HTTPStatus maps an error to the response code its class deserves.
// Unclassified errors are treated as internal.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case Validation:
		return fiber.StatusBadRequest
	case StateConflict:
		return fiber.StatusConflict
	case Authorization:
		return fiber.StatusForbidden
	case NotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}
