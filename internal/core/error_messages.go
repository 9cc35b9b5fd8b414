// Error codes reference
//
// Every error shown to a user carries a code for support reference. Typed
// errors are recognised first; anything else is matched against a pattern
// table.
//
// # Typed errors
//
//	LOAD001 - Source could not be loaded (names the attempted location)
//	VAL001  - Validation failed (names the field)
//	CONF001 - A record with this ID already exists
//	GW001   - Database request failed (backend message shown verbatim)
//	GW002   - Record not found
//	DS001   - Unknown dataset
//	AUTH001 - Not signed in as an editor
//	RO001   - Operation not available for this data source
//
// # Patterns
//
//	DB001   - "duplicate key"
//	NET001  - "connection refused", "no such host"
//	REQ001  - "context canceled"
//	REQ002  - "context deadline exceeded", "timeout"
//	RATE001 - "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Check the application logs for the
// original technical error.

package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/bondweb/internal/gateway"
	"github.com/JonMunkholm/bondweb/internal/tabular"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. The first match wins, so specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Choose a different ID",
			Code:    "DB001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the data source",
			Action:  "Please try again in a few moments",
			Code:    "NET001",
		},
	},
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "Unable to reach the data source",
			Action:  "Check the configured data location",
			Code:    "NET001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again later",
			Code:    "REQ002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again later",
			Code:    "REQ002",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(ValidationError{Field: "name", Message: "is required"})
//	// msg.Code == "VAL001"
//	// msg.Message == "name: is required"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	var (
		loadErr     *tabular.LoadError
		validErr    ValidationError
		conflictErr ConflictError
		gwErr       *gateway.GatewayError
	)

	switch {
	case errors.As(err, &validErr):
		return UserMessage{
			Message: validErr.Error(),
			Action:  "Correct the value and submit again",
			Code:    "VAL001",
		}, true
	case errors.As(err, &conflictErr):
		return UserMessage{
			Message: fmt.Sprintf("A record with ID %q already exists", conflictErr.ID),
			Action:  "Choose a different ID",
			Code:    "CONF001",
		}, true
	case errors.Is(err, ErrNotFound), errors.Is(err, gateway.ErrNotFound):
		return UserMessage{
			Message: "Record not found",
			Action:  "It may have been deleted. Return to the list and try again",
			Code:    "GW002",
		}, true
	case errors.As(err, &gwErr):
		msg := gwErr.Detail
		if msg == "" {
			msg = "The database request failed"
		}
		return UserMessage{
			Message: msg,
			Action:  "Please try again",
			Code:    "GW001",
		}, true
	case errors.As(err, &loadErr):
		return UserMessage{
			Message: fmt.Sprintf("Could not load data from %s", loadErr.Location),
			Action:  "Check that the source is reachable and retry",
			Code:    "LOAD001",
		}, true
	case errors.Is(err, ErrUnknownDataset):
		return UserMessage{
			Message: "Unknown dataset",
			Action:  "Pick a dataset from the home page",
			Code:    "DS001",
		}, true
	case errors.Is(err, ErrUnauthorized):
		return UserMessage{
			Message: "You must be signed in as an editor",
			Action:  "Sign in on the admin page and try again",
			Code:    "AUTH001",
		}, true
	case errors.Is(err, ErrUnsupported):
		return UserMessage{
			Message: "This operation is not available for the current data source",
			Action:  "Edit the database directly or switch to the csv backend",
			Code:    "RO001",
		}, true
	}
	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with its user-facing message.
type UserError struct {
	Err error
	Msg UserMessage
}

// NewUserError returns nil for a nil err.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{Err: err, Msg: MapError(err)}
}

func (e *UserError) Error() string {
	return e.Msg.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}
