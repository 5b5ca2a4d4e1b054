package model

import "errors"

// Sentinel kinds shared across the engine. Callers match with errors.Is.
var (
	ErrInvalidEvent = errors.New("invalid event")
	ErrPersistence  = errors.New("persistence failure")
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("duplicate finalization")
)
