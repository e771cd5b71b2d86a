package coordinator

import "errors"

var (
	// ErrMalformedCommand is returned for a wrong argument count or type.
	ErrMalformedCommand = errors.New("malformed command")
	// ErrNothingStaged is returned by Approve when no proposal is pending.
	ErrNothingStaged = errors.New("no transaction is waiting for approval")
	// ErrUnknownParticipant is returned when a participant has no replica.
	ErrUnknownParticipant = errors.New("unknown participant")
	// ErrBadCredentials is returned when a login does not match the participant table.
	ErrBadCredentials = errors.New("invalid user name or password")
	// ErrNameTaken is returned when a participant is already online.
	ErrNameTaken = errors.New("user name unavailable")
	// ErrNotLoggedIn is returned for a command sent before a successful login.
	ErrNotLoggedIn = errors.New("log in first")
)
