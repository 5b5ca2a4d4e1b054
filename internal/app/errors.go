package service

import "errors"

// Sentinel kinds for service lifecycle errors.
var (
	ErrNotStarted = errors.New("rating service not started")
	ErrNoDatabase = errors.New("rating service has no database")
)
