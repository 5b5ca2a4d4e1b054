package repository

import (
	"errors"

	"github.com/okian/pulse/internal/domain/model"
)

// Sentinel kinds for rating storage. The first two alias the domain kinds
// so callers may match either.
var (
	ErrNotFound      = model.ErrNotFound
	ErrDuplicate     = model.ErrDuplicate
	ErrUnknownDriver = errors.New("unknown storage driver")
)
