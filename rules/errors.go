package rules

import "errors"

// ErrInvalidConfig is the root of every malformed-strategy error. These
// are fatal and abort the run.
var ErrInvalidConfig = errors.New("invalid strategy configuration")
