package counter

import "errors"

var (
	// ErrIncompleteSample is returned when a body was detected but a joint
	// needed for the angle or the alignment check is missing. The frame is
	// skipped and the state is left unchanged.
	ErrIncompleteSample = errors.New("incomplete landmark sample")

	// ErrInvalidThresholds is returned for threshold sets whose up and down
	// ranges overlap or fall outside [0,180].
	ErrInvalidThresholds = errors.New("invalid rep thresholds")
)
