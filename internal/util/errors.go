package util

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailRegistered      = errors.New("email already registered")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrCourseNotFound       = errors.New("course not found")
	ErrTestNotFound         = errors.New("test not found")
	ErrTestNotActive        = errors.New("test not active or not accessible")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrNotEnrolled          = errors.New("student not enrolled in course")
	ErrTestAlreadySubmitted = errors.New("test already submitted")
	ErrAttemptNotCompleted  = errors.New("attempt not completed yet")
)

// ValidationError reports a malformed test or question definition at creation
// time, as opposed to a runtime evaluation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
