package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBrightness indicates brightness is outside [1,100]
	ErrInvalidBrightness = errors.New("brightness must be between 1 and 100")

	// ErrInvalidLampName indicates an empty lamp name
	ErrInvalidLampName = errors.New("lamp name cannot be empty")

	// ErrLampNotFound indicates requested lamp doesn't exist
	ErrLampNotFound = errors.New("lamp not found")

	// ErrDuplicateLampName indicates another lamp already has the name
	ErrDuplicateLampName = errors.New("lamp name already exists")

	// ErrPeriodNotFound indicates the lamp has no working periods
	ErrPeriodNotFound = errors.New("working period not found")

	// ErrSwitchUnavailable indicates the switch cannot be reached
	ErrSwitchUnavailable = errors.New("switch unavailable")
)

// Switch operations, as reported in SwitchError.Op
const (
	OpTurnOn        = "turn_on"
	OpTurnOff       = "turn_off"
	OpSetBrightness = "set_brightness"
)

// SwitchError is a fault reported by the hardware switch boundary.
type SwitchError struct {
	Op     string
	LampID int64
	Err    error
}

func (e *SwitchError) Error() string {
	return fmt.Sprintf("switch %s lamp %d: %v", e.Op, e.LampID, e.Err)
}

func (e *SwitchError) Unwrap() error {
	return e.Err
}

// ExternalError is returned when a mode change was reverted because
// the switch failed. Err is usually a *SwitchError.
type ExternalError struct {
	LampID int64
	Err    error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("lamp %d: external switch failed: %v", e.LampID, e.Err)
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

// IsExternal reports whether err is (or wraps) an ExternalError
func IsExternal(err error) bool {
	var ext *ExternalError
	return errors.As(err, &ext)
}
