package mock

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/domain"
)

// Call is one recorded switch command
type Call struct {
	Op         string // one of the domain.Op* constants
	LampID     int64
	Brightness int
}

// FakeSwitch simulates the lamp controller for development and tests
// This implements the ports.Switch interface
//
// Every command is logged and recorded. Faults can be injected per operation.
type FakeSwitch struct {
	mu     sync.Mutex
	calls  []Call
	faults map[string]error
}

// NewFakeSwitch creates a switch that accepts every command
func NewFakeSwitch() *FakeSwitch {
	return &FakeSwitch{
		faults: make(map[string]error),
	}
}

// FailOn makes every subsequent call of op fail with err.
// A nil err clears the fault.
func (s *FakeSwitch) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// Calls returns the commands received so far, failed ones included
func (s *FakeSwitch) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsFor returns the recorded commands of one operation
func (s *FakeSwitch) CallsFor(op string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls and faults
func (s *FakeSwitch) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = nil
	s.faults = make(map[string]error)
}

// TurnOn records and logs the command
func (s *FakeSwitch) TurnOn(ctx context.Context, lampID int64) error {
	if err := s.record(ctx, Call{Op: domain.OpTurnOn, LampID: lampID}); err != nil {
		return err
	}
	log.Info().Int64("lamp_id", lampID).Msg("turned on lamp")
	return nil
}

// TurnOff records and logs the command
func (s *FakeSwitch) TurnOff(ctx context.Context, lampID int64) error {
	if err := s.record(ctx, Call{Op: domain.OpTurnOff, LampID: lampID}); err != nil {
		return err
	}
	log.Info().Int64("lamp_id", lampID).Msg("turned off lamp")
	return nil
}

// SetBrightness records and logs the command
func (s *FakeSwitch) SetBrightness(ctx context.Context, lampID int64, brightness int) error {
	if err := s.record(ctx, Call{Op: domain.OpSetBrightness, LampID: lampID, Brightness: brightness}); err != nil {
		return err
	}
	log.Info().
		Int64("lamp_id", lampID).
		Int("brightness", brightness).
		Msg("set lamp brightness")
	return nil
}

func (s *FakeSwitch) record(ctx context.Context, call Call) error {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	fault := s.faults[call.Op]
	s.mu.Unlock()

	if fault == nil {
		fault = ctx.Err()
	}
	if fault != nil {
		return &domain.SwitchError{Op: call.Op, LampID: call.LampID, Err: fault}
	}
	return nil
}
