// Package errs defines the error taxonomy shared by the scoring engine and
// its collaborators.
//
// Callers match on the sentinel kinds with errors.Is and read context
// (group, session, field) through errors.As on *Error.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds.
var (
	// ErrValidation marks malformed or out-of-range input. Nothing is written.
	ErrValidation = errors.New("validation failed")
	// ErrIncompleteSession marks ranking attempted on a session without exactly four entries.
	ErrIncompleteSession = errors.New("incomplete session")
	// ErrDuplicateSession marks a session identifier that already exists in the group.
	ErrDuplicateSession = errors.New("duplicate session")
	// ErrSessionNotFound marks an update, delete or read on an absent session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrGroupNotFound marks an unknown group slug.
	ErrGroupNotFound = errors.New("group not found")
)

// Error carries a kind plus the context needed to render a user-facing message.
type Error struct {
	Op        string
	Kind      error
	Group     string
	SessionID string
	Field     string
	Msg       string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Group != "" {
		b.WriteString(" group=")
		b.WriteString(e.Group)
	}
	if e.SessionID != "" {
		b.WriteString(" session=")
		b.WriteString(e.SessionID)
	}
	if e.Field != "" {
		b.WriteString(" field=")
		b.WriteString(e.Field)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Message renders the error for an end user: the explicit message when one
// was given, otherwise the kind phrased with the group and session it concerns.
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	switch {
	case errors.Is(e.Kind, ErrDuplicateSession) && e.SessionID != "":
		return fmt.Sprintf("session %q already exists in group %q", e.SessionID, e.Group)
	case errors.Is(e.Kind, ErrSessionNotFound) && e.SessionID != "":
		return fmt.Sprintf("session %q not found in group %q", e.SessionID, e.Group)
	case errors.Is(e.Kind, ErrGroupNotFound) && e.Group != "":
		return fmt.Sprintf("group %q not found", e.Group)
	}

	var b strings.Builder
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Group != "" {
		fmt.Fprintf(&b, " (group %q", e.Group)
		if e.SessionID != "" {
			fmt.Fprintf(&b, ", session %q", e.SessionID)
		}
		b.WriteString(")")
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Validation builds a validation error for a single offending field.
func Validation(op, group, sessionID, field, msg string) *Error {
	return &Error{Op: op, Kind: ErrValidation, Group: group, SessionID: sessionID, Field: field, Msg: msg}
}

// Kind builds an error of the given kind with session context.
func Kind(op string, kind error, group, sessionID string) *Error {
	return &Error{Op: op, Kind: kind, Group: group, SessionID: sessionID}
}

// Field returns the offending field recorded on err, if any.
func Field(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
