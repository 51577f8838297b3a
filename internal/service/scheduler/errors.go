package scheduler

import "errors"

var (
	// ErrDataUnavailable marks a cycle skipped because the label store failed
	// or had nothing to train on.
	ErrDataUnavailable = errors.New("training data unavailable")
	// ErrTrainingFailed marks a cycle whose Train call failed or panicked.
	ErrTrainingFailed = errors.New("training failed")
	// ErrPublishFailed marks a cycle whose model could not be published.
	ErrPublishFailed = errors.New("model publish failed")
	// ErrTimerNotArmed is returned when enabling a scheduler that was
	// started disabled. A restart is needed to arm its timer.
	ErrTimerNotArmed = errors.New("scheduler timer is not armed; restart with scheduling enabled")
	// ErrInvalidInterval is returned by SetInterval for a non-positive interval.
	ErrInvalidInterval = errors.New("interval must be positive")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("scheduler already started")

	errNoLabels = errors.New("no labels available")
)
