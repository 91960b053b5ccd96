package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Error kinds. Handlers map them to HTTP statuses with errors.Is and echo the specific message.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var (
	ErrUserNotFound     = newError(ErrNotFound, "user not found")
	ErrStudentNotFound  = newError(ErrNotFound, "student not found")
	ErrClassNotFound    = newError(ErrNotFound, "class not found")
	ErrGroupNotFound    = newError(ErrNotFound, "group not found")
	ErrBatchNotFound    = newError(ErrNotFound, "tuition batch not found")
	ErrTuitionNotFound  = newError(ErrNotFound, "tuition record not found")
	ErrExamNotFound     = newError(ErrNotFound, "exam not found")
	ErrMaterialNotFound = newError(ErrNotFound, "material not found")
	ErrMembershipAbsent = newError(ErrNotFound, "student is not in this group")

	ErrEmailTaken      = newError(ErrConflict, "email already registered")
	ErrAlreadyEnrolled = newError(ErrConflict, "student already enrolled in this class")
	ErrAlreadyInGroup  = newError(ErrConflict, "student already belongs to a group in this class")
	ErrDuplicateRecord = newError(ErrConflict, "record already exists")

	ErrUnknownClass       = newError(ErrValidation, "unknown class id")
	ErrUnknownStudent     = newError(ErrValidation, "unknown student id")
	ErrNotEnrolled        = newError(ErrValidation, "student is not enrolled in the group's class")
	ErrGroupMismatch      = newError(ErrValidation, "groups belong to different classes")
	ErrScoreOutOfRange    = newError(ErrValidation, "score must be between 0 and the exam max score")
	ErrInvalidDateRange   = newError(ErrValidation, "end date must not precede start date")
	ErrPasswordRequired   = newError(ErrValidation, "current password is required to change the password")
	ErrFileRequired       = newError(ErrValidation, "a file or file_url is required")
	ErrFileTypeNotAllowed = newError(ErrValidation, "file type not allowed")

	ErrWrongPassword = newError(ErrInvalidCredentials, "current password is incorrect")
)

// ErrFileTooLarge is reported with 413 rather than as a validation failure.
var ErrFileTooLarge = errors.New("file exceeds maximum allowed size")

// kindError carries a client-facing message while unwrapping to its kind.
type kindError struct {
	kind error
	msg  string
}

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func validationError(format string, args ...interface{}) error {
	return newError(ErrValidation, fmt.Sprintf(format, args...))
}

// isUniqueViolation recognises unique-constraint failures from gorm's translator or from PostgreSQL directly.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsValidation reports whether err is a validation failure, including validator tag errors.
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidation) {
		return true
	}
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}
