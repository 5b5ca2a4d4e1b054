package scoring

import "errors"

// ErrSourceUnavailable wraps any failure to read a component's data source.
var ErrSourceUnavailable = errors.New("score source unavailable")
