package domain

import (
	"strings"
	"time"
)

const (
	// MinBrightness and MaxBrightness bound a lamp's brightness percentage.
	// 0% is not allowed: a lamp that is off keeps its last setting.
	MinBrightness = 1
	MaxBrightness = 100

	// DefaultBrightness is used for lamps created without an explicit value.
	DefaultBrightness = 100
)

// Lamp represents a controllable light source
type Lamp struct {
	ID   int64
	Name string
	IsOn bool

	// LastSwitch is the time of the last on/off transition.
	// A brightness change is not a switch. Nil until the first transition.
	LastSwitch *time.Time

	Brightness int
}

// NewLamp creates a lamp that is off, with validation
func NewLamp(name string, brightness int) (*Lamp, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidLampName
	}
	if err := ValidateBrightness(brightness); err != nil {
		return nil, err
	}

	return &Lamp{
		Name:       name,
		Brightness: brightness,
	}, nil
}

// ValidateBrightness reports ErrInvalidBrightness for values outside [1,100]
func ValidateBrightness(brightness int) error {
	if brightness < MinBrightness || brightness > MaxBrightness {
		return ErrInvalidBrightness
	}
	return nil
}

// Clone returns a deep copy, so callers can't mutate stored state through it
func (l *Lamp) Clone() *Lamp {
	c := *l
	if l.LastSwitch != nil {
		ts := *l.LastSwitch
		c.LastSwitch = &ts
	}
	return &c
}

// State returns "on" or "off"
func (l *Lamp) State() string {
	if l.IsOn {
		return "on"
	}
	return "off"
}
