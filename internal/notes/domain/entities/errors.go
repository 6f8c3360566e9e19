package entities

import (
	"context"
	"errors"
	"fmt"
)

// Базовые виды ошибок. Конкретные ошибки домена оборачивают один из них,
// поэтому вид проверяется через errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrGone            = errors.New("gone")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrUnavailable     = errors.New("unavailable")
)

// Error - ошибка домена с видом и сообщением для клиента.
type Error struct {
	kind error
	msg  string
}

// NewError создает ошибку домена вида kind.
func NewError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Ошибки заметок.
var (
	ErrNoteNotFound       = NewError(ErrNotFound, "note not found")
	ErrAttachmentNotFound = NewError(ErrNotFound, "attachment not found")
	ErrEmptyTitle         = NewError(ErrInvalidArgument, "title is required")
	ErrTitleTooLong       = NewError(ErrInvalidArgument, fmt.Sprintf("title must be at most %d characters", MaxTitleLength))
	ErrContentTooLong     = NewError(ErrInvalidArgument, fmt.Sprintf("content must be at most %d characters", MaxContentLength))
	ErrTooManyTags        = NewError(ErrInvalidArgument, fmt.Sprintf("a note can have at most %d tags", MaxTags))
	ErrTagTooLong         = NewError(ErrInvalidArgument, fmt.Sprintf("a tag must be at most %d characters", MaxTagLength))
	ErrAttachmentTooLarge = NewError(ErrInvalidArgument, fmt.Sprintf("attachment must be at most %d bytes", MaxAttachmentSize))
	ErrEmptyAttachment    = NewError(ErrInvalidArgument, "attachment is empty")
	ErrReminderInPast     = NewError(ErrInvalidArgument, "reminder must be in the future")
	ErrInvalidReminder    = NewError(ErrInvalidArgument, "invalid reminder status")
)

// Ошибки доступа и совместной работы.
var (
	ErrNotOwner           = NewError(ErrForbidden, "only the note owner can perform this operation")
	ErrNoAccess           = NewError(ErrForbidden, "you do not have access to this note")
	ErrReadOnlyAccess     = NewError(ErrForbidden, "view permission does not allow changes")
	ErrEditorRestricted   = NewError(ErrForbidden, "editors may change only title, content and tags")
	ErrGrantNotFound      = NewError(ErrNotFound, "share invitation not found")
	ErrUserNotFound       = NewError(ErrNotFound, "user not found")
	ErrSelfShare          = NewError(ErrInvalidArgument, "a note cannot be shared with its owner")
	ErrInvalidPermission  = NewError(ErrInvalidArgument, "permission must be one of: view, edit")
	ErrInvalidGrantStatus = NewError(ErrInvalidArgument, "grant status must be one of: pending, accepted")
	ErrInvalidDecision    = NewError(ErrInvalidArgument, "decision must be one of: accept, reject")
	ErrInvalidEmail       = NewError(ErrInvalidArgument, "invalid email format")
	ErrAlreadyShared      = NewError(ErrConflict, "note is already shared with this user")
	ErrLinkNotFound       = NewError(ErrNotFound, "share link not found")
	ErrLinkExpired        = NewError(ErrGone, "share link has expired")
	ErrInvalidLinkTTL     = NewError(ErrInvalidArgument, "link ttl must be a positive number of hours")
)

// Ошибки истории версий.
var (
	ErrVersionNotFound = NewError(ErrNotFound, "version not found")
)

// Kind - стабильный машиночитаемый вид ошибки.
type Kind string

// Виды ошибок.
const (
	KindNotFound        Kind = "not_found"
	KindGone            Kind = "gone"
	KindForbidden       Kind = "forbidden"
	KindInvalidArgument Kind = "invalid_argument"
	KindConflict        Kind = "conflict"
	KindUnavailable     Kind = "unavailable"
	KindInternal        Kind = "internal"
)

// KindOf определяет вид ошибки. Истекший дедлайн считается Unavailable.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrGone):
		return KindGone
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		return KindUnavailable
	default:
		return KindInternal
	}
}

// Unavailable помечает сбой внешней зависимости как повторяемый.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
