package session

import "errors"

var (
	// ErrNotFound is returned for an unknown session ID.
	ErrNotFound = errors.New("session not found")
	// ErrDefaultSession is returned when ending the default session.
	ErrDefaultSession = errors.New("the default session cannot be ended")
	// ErrInvalidGoal is returned for a negative goal.
	ErrInvalidGoal = errors.New("goal must not be negative")
)
