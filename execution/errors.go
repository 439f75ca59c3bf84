package execution

import (
	"fmt"

	"github.com/rustyeddy/rulesim/rules"
)

// Configuration failures raised while executing. All of them match
// rules.ErrInvalidConfig under errors.Is.
var (
	ErrUnsupportedInstrument = fmt.Errorf("%w: unsupported instrument type", rules.ErrInvalidConfig)
	ErrNotImplemented        = fmt.Errorf("%w: not implemented", rules.ErrInvalidConfig)
	ErrUnsupportedStrike     = fmt.Errorf("%w: unsupported strike calculation", rules.ErrInvalidConfig)
	ErrNoTargetCost          = fmt.Errorf("%w: solved strike needs a target cost", rules.ErrInvalidConfig)
)
