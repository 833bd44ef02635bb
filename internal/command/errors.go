package command

import "errors"

// Domain errors for the command package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, command.ErrCommandNotFound) {
//	    // handle not found case
//	}
var (
	// ErrCommandNotFound is returned when a command ID does not exist.
	ErrCommandNotFound = errors.New("command: not found")

	// ErrInvalidAction is returned when an action is not start or stop.
	ErrInvalidAction = errors.New("command: invalid action")

	// ErrInvalidTrigger is returned when a trigger source is not recognised.
	ErrInvalidTrigger = errors.New("command: invalid trigger")
)
