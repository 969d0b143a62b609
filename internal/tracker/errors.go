package tracker

import "fmt"

// Error is a stable, machine-readable error class. Two errors match under
// errors.Is when their codes are equal, so classes survive the HTTP boundary.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithMessage returns a new Error with the same Code and the given message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Code: e.Code, Message: msg}
}

// WithMessagef returns a new Error with a formatted message.
func (e *Error) WithMessagef(format string, args ...any) *Error {
	return &Error{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrAlreadyActive         = &Error{Code: "E_ALREADY_ACTIVE"}
	ErrNoSession             = &Error{Code: "E_NO_SESSION"}
	ErrAlreadyPaused         = &Error{Code: "E_ALREADY_PAUSED"}
	ErrRecordNotFound        = &Error{Code: "E_RECORD_NOT_FOUND"}
	ErrLockAcquisitionFailed = &Error{Code: "E_LOCK_ACQUISITION_FAILED"}
)

var classes = map[string]*Error{
	ErrAlreadyActive.Code:         ErrAlreadyActive,
	ErrNoSession.Code:             ErrNoSession,
	ErrAlreadyPaused.Code:         ErrAlreadyPaused,
	ErrRecordNotFound.Code:        ErrRecordNotFound,
	ErrLockAcquisitionFailed.Code: ErrLockAcquisitionFailed,
}

// Lookup returns the error class registered for code.
func Lookup(code string) (*Error, bool) {
	e, ok := classes[code]
	return e, ok
}
