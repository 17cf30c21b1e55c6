package core

import "errors"

var (
	// ErrInvalidRegion is returned for rectangle hints with left>=right,
	// top>=bottom or coordinates outside [0,100].
	ErrInvalidRegion = errors.New("invalid region hint")
	// ErrInvalidImage is returned for missing, empty or oversized uploads.
	ErrInvalidImage = errors.New("invalid image")
	// ErrInvalidRequest wraps validation failures of recolor parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrAcceleratorUnavailable marks any failure of an optional model path.
	// It never leaves the optional-path boundary as a user-facing failure.
	ErrAcceleratorUnavailable = errors.New("accelerator unavailable")
)
