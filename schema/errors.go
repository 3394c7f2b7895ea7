package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrTabNotFound indicates a requested tab no longer exists.
	ErrTabNotFound = errors.New("tab not found")
	// ErrGroupNotFound indicates a requested tab group no longer exists.
	ErrGroupNotFound = errors.New("group not found")
	// ErrNoActiveTab indicates no active tab could be resolved.
	ErrNoActiveTab = errors.New("no active tab")
	// ErrUnknownCommand indicates an unrecognized keyboard command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUnknownMethod indicates an unrecognized bridge method.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrBridgeClosed indicates the browser connection is gone.
	ErrBridgeClosed = errors.New("bridge closed")
	// ErrInvalidGroupName indicates an empty or oversized group name.
	ErrInvalidGroupName = errors.New("invalid group name")
)
