package ports

import (
	"context"
)

// Switch controls the physical lamps
// This is a PORT - adapters (gRPC, MQTT, Mock) will implement it
//
// Calls are synchronous: a nil error means the change was applied.
// Failures should be reported as *domain.SwitchError.
type Switch interface {
	// TurnOn switches the lamp on
	TurnOn(ctx context.Context, lampID int64) error

	// TurnOff switches the lamp off
	TurnOff(ctx context.Context, lampID int64) error

	// SetBrightness sets the brightness percentage of the lamp
	SetBrightness(ctx context.Context, lampID int64, brightness int) error
}
