package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error. Callers compare with errors.Is against the
// sentinel values below.
type Kind string

const (
	KindInvalidTransition    Kind = "invalid_transition"
	KindUnknownEventType     Kind = "unknown_event_type"
	KindDealNotFound         Kind = "deal_not_found"
	KindStepNotFound         Kind = "step_not_found"
	KindDocumentNotFound     Kind = "document_not_found"
	KindNotificationNotFound Kind = "notification_not_found"
	KindJobNotFound          Kind = "job_not_found"
	KindValidation           Kind = "validation"
	KindConflict             Kind = "conflict"
	KindForbidden            Kind = "forbidden"
)

// Error is the domain error type with structured metadata.
type Error struct {
	Kind    Kind
	Message string
	Meta    map[string]string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidTransition    = &Error{Kind: KindInvalidTransition, Message: "invalid transition"}
	ErrUnknownEventType     = &Error{Kind: KindUnknownEventType, Message: "unknown event type"}
	ErrDealNotFound         = &Error{Kind: KindDealNotFound, Message: "deal not found"}
	ErrStepNotFound         = &Error{Kind: KindStepNotFound, Message: "step not found"}
	ErrDocumentNotFound     = &Error{Kind: KindDocumentNotFound, Message: "document not found"}
	ErrNotificationNotFound = &Error{Kind: KindNotificationNotFound, Message: "notification not found"}
	ErrJobNotFound          = &Error{Kind: KindJobNotFound, Message: "job not found"}
	ErrValidation           = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrConflict             = &Error{Kind: KindConflict, Message: "deal was modified concurrently"}
	ErrForbidden            = &Error{Kind: KindForbidden, Message: "forbidden"}
)

// Errorf builds an error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithMeta builds an error carrying key/value context for callers.
func WithMeta(kind Kind, message string, meta map[string]string) *Error {
	return &Error{Kind: kind, Message: message, Meta: meta}
}

// KindOf returns the kind of err, or "" when err is not a domain error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
