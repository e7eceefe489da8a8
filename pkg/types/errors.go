package types

import "errors"

// Standard errors returned by the registry and entity methods. Callers
// match them with errors.Is and map them to CLI exit codes.
var (
	// ErrNotFound is returned when a run ID does not exist in the registry.
	ErrNotFound = errors.New("run not found")

	// ErrStoreDetached is returned when an operation is attempted on a
	// store that is not attached.
	ErrStoreDetached = errors.New("store is not attached")

	// ErrAlreadyAttached is returned when Attach is called on an
	// already-attached store.
	ErrAlreadyAttached = errors.New("store is already attached")

	// ErrInvalidState is returned when a run state value is not recognized.
	ErrInvalidState = errors.New("invalid run state")

	// ErrInvalidTransition is returned when a run state transition is not
	// allowed from the current state.
	ErrInvalidTransition = errors.New("invalid run state transition")

	// ErrInvalidKind is returned when a run kind is not recognized.
	ErrInvalidKind = errors.New("invalid run kind")
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

// Metrics validation errors.
var (
	ErrConfusionNotSquare  = errors.New("confusion matrix must be square")
	ErrConfusionNegative   = errors.New("confusion matrix must not contain negative counts")
	ErrLabelMapMismatch    = errors.New("label map size does not match confusion matrix")
	ErrLossHistoryMismatch = errors.New("train and val loss histories have different lengths")
)
