package bridge

import "errors"

var (
	// ErrInvalidTransition is returned when an attempt is made to transition the connection
	// state to a state not reachable from the current one.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrTaskManagerStopped is returned when a task is started after the task manager was stopped.
	ErrTaskManagerStopped = errors.New("task manager already stopped")

	// ErrTaskExists is returned when an interval task with the same name is already running.
	ErrTaskExists = errors.New("task already exists")
)
