package api

import (
	"errors"
	"net/http"

	"github.com/Tiliavir/screen-time-tracker/internal/tracker"
)

// Error classes of the command surface, in addition to the tracker's.
var (
	ErrUnknownSignal = &tracker.Error{Code: "E_UNKNOWN_SIGNAL"}
	ErrInvalidDay    = &tracker.Error{Code: "E_INVALID_DAY"}
	ErrUnavailable   = &tracker.Error{Code: "E_UNAVAILABLE"}
	ErrInternal      = &tracker.Error{Code: "E_INTERNAL"}
)

var surfaceClasses = map[string]*tracker.Error{
	ErrUnknownSignal.Code: ErrUnknownSignal,
	ErrInvalidDay.Code:    ErrInvalidDay,
	ErrUnavailable.Code:   ErrUnavailable,
	ErrInternal.Code:      ErrInternal,
}

// lookupClass resolves a wire code to its class.
func lookupClass(code string) (*tracker.Error, bool) {
	if e, ok := tracker.Lookup(code); ok {
		return e, true
	}
	e, ok := surfaceClasses[code]
	return e, ok
}

// classify returns the HTTP status, wire code and message for err.
func classify(err error) (int, string, string) {
	var te *tracker.Error
	if !errors.As(err, &te) {
		return http.StatusInternalServerError, ErrInternal.Code, err.Error()
	}
	msg := te.Message
	if msg == "" {
		msg = te.Code
	}
	switch te.Code {
	case tracker.ErrAlreadyActive.Code, tracker.ErrNoSession.Code, tracker.ErrAlreadyPaused.Code:
		return http.StatusConflict, te.Code, msg
	case tracker.ErrRecordNotFound.Code:
		return http.StatusNotFound, te.Code, msg
	case ErrUnknownSignal.Code, ErrInvalidDay.Code:
		return http.StatusBadRequest, te.Code, msg
	case ErrUnavailable.Code:
		return http.StatusServiceUnavailable, te.Code, msg
	default:
		return http.StatusInternalServerError, te.Code, msg
	}
}
