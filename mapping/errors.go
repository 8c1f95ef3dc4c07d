package mapping

import (
	"errors"

	"github.com/hupe1980/fixeltrack/internal/resource"
)

var (
	// ErrIndexOutOfRange is returned when a streamline index lies outside [0, n).
	ErrIndexOutOfRange = errors.New("streamline index out of range")

	// ErrDuplicateIndex is returned when two streamlines carry the same index.
	ErrDuplicateIndex = errors.New("duplicate streamline index")

	// ErrMemoryLimitExceeded is returned when the contribution lists outgrow the memory limit.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded

	// ErrInvalidStepSize is returned for a non-positive step size.
	ErrInvalidStepSize = errors.New("step size must be positive")
)
