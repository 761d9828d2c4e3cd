// Package apperror содержит категории ошибок предметной области.
//
// Каждая конкретная ошибка оборачивает одну из категорий, поэтому
// errors.Is(err, apperror.ErrConflict) работает для любой ошибки конфликта.
package apperror

import (
	"errors"
	"fmt"
)

// Категории
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication error")
	ErrAuthorization  = errors.New("authorization error")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
)

// Error ошибка с сообщением и категорией
type Error struct {
	kind  error
	msg   string
	cause error
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

// Kind возвращает категорию ошибки
func (e *Error) Kind() error { return e.kind }

func newf(kind error, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error { return newf(ErrValidation, format, args...) }

// InvalidInput помечает ошибку проверки полей (например criterio.FieldErrors) как ValidationError
func InvalidInput(err error) error {
	if err == nil {
		return nil
	}
	return &Error{kind: ErrValidation, msg: err.Error(), cause: err}
}

func Authentication(format string, args ...any) error {
	return newf(ErrAuthentication, format, args...)
}

func Authorization(format string, args ...any) error {
	return newf(ErrAuthorization, format, args...)
}

func NotFound(format string, args ...any) error { return newf(ErrNotFound, format, args...) }

func Conflict(format string, args ...any) error { return newf(ErrConflict, format, args...) }

// KindOf возвращает категорию ошибки или nil для внутренних ошибок
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrAuthentication, ErrAuthorization, ErrNotFound, ErrConflict} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Конкретные ошибки
var (
	ErrUserNotFound     = NotFound("user not found")
	ErrTutorNotFound    = NotFound("tutor not found")
	ErrSlotNotFound     = NotFound("slot not found")
	ErrSessionNotFound  = NotFound("session not found")
	ErrSubjectNotFound  = NotFound("subject not found")
	ErrClassNotFound    = NotFound("class not found")
	ErrTemplateNotFound = NotFound("availability template not found")

	ErrInvalidTimeRange = Validation("start time must be before end time")
	ErrSlotInPast       = Validation("slot starts in the past")
	ErrInvalidRating    = Validation("rating must be between 1 and 5")

	ErrInvalidCredentials = Authentication("invalid email or password")
	ErrInvalidToken       = Authentication("invalid or expired token")
	ErrTokenRevoked       = Authentication("token has been revoked")

	ErrNotSlotOwner    = Authorization("slot belongs to another tutor")
	ErrNotSessionParty = Authorization("user is not a participant of this session")
	ErrNotSessionOwner = Authorization("only the student of this session can review it")
	ErrForbiddenRole   = Authorization("role is not allowed to perform this action")

	ErrSlotNotAvailable   = Conflict("slot is not available")
	ErrSlotOverlap        = Conflict("slot overlaps an existing slot")
	ErrSlotNotBooked      = Conflict("slot is not booked")
	ErrSessionStarted     = Conflict("session has already started")
	ErrSessionNotComplete = Conflict("session is not completed yet")
	ErrAlreadyReviewed    = Conflict("session has already been reviewed")
	ErrUserExists         = Conflict("username or email already taken")
	ErrDuplicate          = Conflict("record already exists")
	ErrRoleInUse          = Conflict("role cannot change while the user has slots or sessions")
)
