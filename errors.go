package main

import "errors"

// Recoverable conditions surfaced through the management API. There is no
// fatal error class in the engine itself.
var (
	ErrAppTableFull    = errors.New("app table full")
	ErrNotifyQueueFull = errors.New("notification queue full")
	ErrSystemApp       = errors.New("system apps cannot be removed")
	ErrAppNotFound     = errors.New("app not found")
	ErrBadIndicator    = errors.New("indicator id out of range")
)
