package errors

import (
	"errors"
	"fmt"
)

// Taxonomy shared by every service. Specific errors wrap one of these so callers
// can branch with errors.Is on either level.
var (
	ErrNotFound               = errors.New("not found")
	ErrAccessDenied           = errors.New("access denied")
	ErrConflict               = errors.New("conflict")
	ErrAlreadyInTerminalState = errors.New("already in terminal state")
	ErrValidation             = errors.New("validation failed")
	ErrDeliveryFailure        = errors.New("delivery failure")
)

var (
	ErrSelfReference   = fmt.Errorf("%w: actor and target must differ", ErrValidation)
	ErrChatExists      = fmt.Errorf("%w: chat already exists", ErrConflict)
	ErrSelfRead        = fmt.Errorf("%w: cannot mark own message as read", ErrValidation)
	ErrAlreadyRead     = fmt.Errorf("%w: message already read", ErrAlreadyInTerminalState)
	ErrAlreadyReviewed = fmt.Errorf("%w: verification request already reviewed", ErrAlreadyInTerminalState)
)

// Validation wraps ErrValidation with a message for the caller.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// NotFound wraps ErrNotFound with the name of the missing entity.
func NotFound(entity string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, entity)
}

// Conflict wraps ErrConflict with a message for the caller.
func Conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}
