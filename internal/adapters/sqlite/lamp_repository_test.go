package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/quentinrf/plant-monitor/services/lamp-service/internal/domain"
)

func newTestRepo(t *testing.T) *LampRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := NewLampRepository(dbPath)
	if err != nil {
		t.Fatalf("failed to create SQLite repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createLamp(t *testing.T, repo *LampRepository, name string, brightness int) *domain.Lamp {
	t.Helper()
	lamp, err := domain.NewLamp(name, brightness)
	if err != nil {
		t.Fatalf("unexpected error creating lamp: %v", err)
	}
	if err := repo.CreateLamp(context.Background(), lamp); err != nil {
		t.Fatalf("CreateLamp failed: %v", err)
	}
	return lamp
}

func TestCreateAndGetLamp(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	lamp := createLamp(t, repo, "desk", 15)
	if lamp.ID == 0 {
		t.Fatal("expected ID to be set after create")
	}

	got, err := repo.GetLamp(ctx, lamp.ID)
	if err != nil {
		t.Fatalf("GetLamp failed: %v", err)
	}
	if got.Name != "desk" || got.Brightness != 15 || got.IsOn || got.LastSwitch != nil {
		t.Errorf("unexpected lamp: %+v", got)
	}

	byName, err := repo.GetLampByName(ctx, "desk")
	if err != nil {
		t.Fatalf("GetLampByName failed: %v", err)
	}
	if byName.ID != lamp.ID {
		t.Errorf("expected ID %d, got %d", lamp.ID, byName.ID)
	}
}

func TestGetLamp_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetLamp(context.Background(), 42)
	if err != domain.ErrLampNotFound {
		t.Errorf("expected ErrLampNotFound, got %v", err)
	}
}

func TestCreateLamp_DuplicateName(t *testing.T) {
	repo := newTestRepo(t)
	createLamp(t, repo, "desk", 15)

	dup, _ := domain.NewLamp("desk", 20)
	if err := repo.CreateLamp(context.Background(), dup); err != domain.ErrDuplicateLampName {
		t.Errorf("expected ErrDuplicateLampName, got %v", err)
	}
}

func TestListLamps_OrderedByID(t *testing.T) {
	repo := newTestRepo(t)
	for _, name := range []string{"c", "a", "b"} {
		createLamp(t, repo, name, 50)
	}

	lamps, err := repo.ListLamps(context.Background())
	if err != nil {
		t.Fatalf("ListLamps failed: %v", err)
	}
	if len(lamps) != 3 {
		t.Fatalf("expected 3 lamps, got %d", len(lamps))
	}
	for i := 1; i < len(lamps); i++ {
		if lamps[i-1].ID >= lamps[i].ID {
			t.Errorf("lamps not ordered by id: %d before %d", lamps[i-1].ID, lamps[i].ID)
		}
	}
}

func TestWithinTx_CommitRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	lamp := createLamp(t, repo, "desk", 15)

	// nanoseconds must survive storage
	now := time.Date(2024, 3, 1, 10, 0, 0, 123456789, time.UTC)

	err := repo.WithinTx(ctx, func(tx domain.LampTx) error {
		l, err := tx.GetLamp(ctx, lamp.ID)
		if err != nil {
			return err
		}
		l.IsOn = true
		l.LastSwitch = &now
		if err := tx.SaveLamp(ctx, l); err != nil {
			return err
		}
		p, _ := domain.NewWorkingPeriod(l.ID, now, l.Brightness)
		return tx.CreatePeriod(ctx, p)
	})
	if err != nil {
		t.Fatalf("WithinTx failed: %v", err)
	}

	got, _ := repo.GetLamp(ctx, lamp.ID)
	if !got.IsOn {
		t.Error("expected lamp to be on")
	}
	if got.LastSwitch == nil || !got.LastSwitch.Equal(now) {
		t.Errorf("expected last switch %v, got %v", now, got.LastSwitch)
	}

	periods, err := repo.ListPeriods(ctx, lamp.ID)
	if err != nil {
		t.Fatalf("ListPeriods failed: %v", err)
	}
	if len(periods) != 1 {
		t.Fatalf("expected 1 period, got %d", len(periods))
	}
	if !periods[0].Start.Equal(now) || !periods[0].IsOpen() {
		t.Errorf("unexpected period: %+v", periods[0])
	}
}

func TestWithinTx_RollbackOnError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	lamp := createLamp(t, repo, "desk", 15)

	boom := errors.New("boom")
	err := repo.WithinTx(ctx, func(tx domain.LampTx) error {
		l, _ := tx.GetLamp(ctx, lamp.ID)
		l.Brightness = 90
		if err := tx.SaveLamp(ctx, l); err != nil {
			return err
		}
		p, _ := domain.NewWorkingPeriod(l.ID, time.Now(), 90)
		if err := tx.CreatePeriod(ctx, p); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := repo.GetLamp(ctx, lamp.ID)
	if got.Brightness != 15 {
		t.Errorf("expected brightness rolled back to 15, got %d", got.Brightness)
	}
	periods, _ := repo.ListPeriods(ctx, lamp.ID)
	if len(periods) != 0 {
		t.Errorf("expected no periods after rollback, got %d", len(periods))
	}
}

func TestLastPeriod(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	lamp := createLamp(t, repo, "desk", 15)
	other := createLamp(t, repo, "lab", 50)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	// sub-second starts must still order correctly
	older := &domain.WorkingPeriod{LampID: lamp.ID, Brightness: 15, Start: base.Add(11 * time.Hour)}
	newer := &domain.WorkingPeriod{LampID: lamp.ID, Brightness: 15, Start: base.Add(11*time.Hour + 500*time.Millisecond)}
	foreign := &domain.WorkingPeriod{LampID: other.ID, Brightness: 50, Start: base.Add(20 * time.Hour)}
	for _, p := range []*domain.WorkingPeriod{newer, older, foreign} {
		if err := repo.AddPeriod(ctx, p); err != nil {
			t.Fatalf("AddPeriod failed: %v", err)
		}
	}

	err := repo.WithinTx(ctx, func(tx domain.LampTx) error {
		last, err := tx.LastPeriod(ctx, lamp.ID)
		if err != nil {
			return err
		}
		if last.ID != newer.ID {
			t.Errorf("expected period %d to be last, got %d", newer.ID, last.ID)
		}

		last.Close(base.Add(12 * time.Hour))
		return tx.SavePeriod(ctx, last)
	})
	if err != nil {
		t.Fatalf("WithinTx failed: %v", err)
	}

	periods, _ := repo.ListPeriods(ctx, lamp.ID)
	if len(periods) != 2 {
		t.Fatalf("expected 2 periods for lamp, got %d", len(periods))
	}
	if periods[1].End == nil || !periods[1].End.Equal(base.Add(12*time.Hour)) {
		t.Errorf("expected newest period closed at 12:00, got %+v", periods[1])
	}
}

func TestLastPeriod_None(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	lamp := createLamp(t, repo, "desk", 15)

	err := repo.WithinTx(ctx, func(tx domain.LampTx) error {
		_, err := tx.LastPeriod(ctx, lamp.ID)
		return err
	})
	if err != domain.ErrPeriodNotFound {
		t.Errorf("expected ErrPeriodNotFound, got %v", err)
	}
}

func TestAddPeriod_UnknownLampRejected(t *testing.T) {
	repo := newTestRepo(t)

	p := &domain.WorkingPeriod{LampID: 999, Brightness: 10, Start: time.Now()}
	if err := repo.AddPeriod(context.Background(), p); err == nil {
		t.Error("expected foreign key violation, got nil")
	}
}
