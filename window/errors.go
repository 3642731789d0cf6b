package window

import "github.com/pkg/errors"

var (
	// ErrInvalidConfiguration prevents a window from being built.
	ErrInvalidConfiguration = errors.New("invalid window configuration")
	// ErrKeyExtraction is reported per event, the event is left out of the batch.
	ErrKeyExtraction = errors.New("key extraction failed")
	// ErrSchedulerArm is fatal to the window, it can no longer expire batches.
	ErrSchedulerArm = errors.New("failed to arm batch boundary")
)

func invalidConfiguration(format string, args ...any) error {
	return errors.WithMessagef(ErrInvalidConfiguration, format, args...)
}
