package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/adapters/mock"
	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/domain"
)

func TestResyncer_SyncOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	desk := f.createLamp(t, "desk", 15)
	lab, _ := domain.NewLamp("lab", 60)
	lab.IsOn = true
	_ = f.repo.CreateLamp(ctx, lab)

	r := NewResyncer(f.repo, f.sw, time.Hour, time.Second)
	if failed := r.SyncOnce(ctx); failed != 0 {
		t.Fatalf("expected no failures, got %d", failed)
	}

	want := []mock.Call{
		{Op: domain.OpSetBrightness, LampID: desk.ID, Brightness: 15},
		{Op: domain.OpTurnOff, LampID: desk.ID},
		{Op: domain.OpSetBrightness, LampID: lab.ID, Brightness: 60},
		{Op: domain.OpTurnOn, LampID: lab.ID},
	}
	got := f.sw.Calls()
	if len(got) != len(want) {
		t.Fatalf("expected %d calls, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("call %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestResyncer_FaultsAreCounted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createLamp(t, "desk", 15)
	f.createLamp(t, "lab", 60)
	f.sw.FailOn(domain.OpTurnOff, errors.New("bus error"))

	r := NewResyncer(f.repo, f.sw, time.Hour, time.Second)
	if failed := r.SyncOnce(ctx); failed != 2 {
		t.Errorf("expected 2 failures, got %d", failed)
	}

	// resync never touches stored state
	lamps, _ := f.repo.ListLamps(ctx)
	for _, l := range lamps {
		if l.IsOn || l.LastSwitch != nil {
			t.Errorf("lamp %d changed by resync: %+v", l.ID, l)
		}
	}
}

func TestResyncer_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.createLamp(t, "desk", 15)

	ctx, cancel := context.WithCancel(context.Background())
	r := NewResyncer(f.repo, f.sw, time.Hour, time.Second)

	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	// the initial sync runs before the first tick
	deadline := time.After(2 * time.Second)
	for len(f.sw.Calls()) < 2 {
		select {
		case <-deadline:
			t.Fatal("initial resync did not happen")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("resyncer did not stop after cancel")
	}
}
