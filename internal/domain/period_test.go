package domain

import (
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2024, 3, 1, hour, min, 0, 0, time.UTC)
}

func closed(id, lampID int64, start, end time.Time) *WorkingPeriod {
	return &WorkingPeriod{ID: id, LampID: lampID, Brightness: 100, Start: start, End: &end}
}

func open(id, lampID int64, start time.Time) *WorkingPeriod {
	return &WorkingPeriod{ID: id, LampID: lampID, Brightness: 100, Start: start}
}

func TestNewWorkingPeriod(t *testing.T) {
	p, err := NewWorkingPeriod(1, at(10, 0), 77)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.IsOpen() {
		t.Error("new period should be open")
	}
	if p.Brightness != 77 {
		t.Errorf("expected brightness 77, got %d", p.Brightness)
	}

	if _, err := NewWorkingPeriod(1, at(10, 0), 0); err != ErrInvalidBrightness {
		t.Errorf("expected ErrInvalidBrightness, got %v", err)
	}
}

func TestWorkingPeriod_Duration(t *testing.T) {
	tests := []struct {
		name   string
		period *WorkingPeriod
		now    time.Time
		want   time.Duration
	}{
		{
			name:   "closed period ignores now",
			period: closed(1, 1, at(10, 0), at(11, 30)),
			now:    at(20, 0),
			want:   90 * time.Minute,
		},
		{
			name:   "open period runs until now",
			period: open(1, 1, at(10, 0)),
			now:    at(10, 45),
			want:   45 * time.Minute,
		},
		{
			name:   "clock behind start is zero",
			period: open(1, 1, at(10, 0)),
			now:    at(9, 0),
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.period.Duration(tt.now); got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestActivePeriod(t *testing.T) {
	abandoned := open(1, 1, at(8, 0))
	last := closed(2, 1, at(9, 0), at(10, 0))

	if p := ActivePeriod([]*WorkingPeriod{abandoned, last}); p != nil {
		t.Errorf("expected no active period when last is closed, got %+v", p)
	}

	current := open(3, 1, at(11, 0))
	if p := ActivePeriod([]*WorkingPeriod{abandoned, last, current}); p != current {
		t.Errorf("expected period 3 to be active, got %+v", p)
	}

	if p := ActivePeriod(nil); p != nil {
		t.Errorf("expected nil for no periods, got %+v", p)
	}
}

func TestAbandonedPeriods(t *testing.T) {
	abandoned := open(1, 1, at(8, 0))
	current := open(2, 1, at(11, 0))

	got := AbandonedPeriods([]*WorkingPeriod{current, abandoned})
	if len(got) != 1 || got[0] != abandoned {
		t.Errorf("expected only period 1 to be abandoned, got %v", got)
	}
}

func TestLastPeriod_TieBreaksOnID(t *testing.T) {
	first := closed(1, 1, at(10, 0), at(10, 0))
	second := open(2, 1, at(10, 0))

	if p := LastPeriod([]*WorkingPeriod{second, first}); p != second {
		t.Errorf("expected later inserted period to be last, got %+v", p)
	}
}

func TestTotalWorkingTime(t *testing.T) {
	now := at(16, 0)

	tests := []struct {
		name    string
		periods []*WorkingPeriod
		want    time.Duration
	}{
		{
			name: "no periods",
			want: 0,
		},
		{
			name: "closed periods only",
			periods: []*WorkingPeriod{
				closed(1, 1, at(10, 0), at(11, 0)),
				closed(2, 1, at(13, 0), at(15, 0)),
			},
			want: 3 * time.Hour,
		},
		{
			name: "open last period counts until now",
			periods: []*WorkingPeriod{
				open(1, 1, at(13, 0)),
			},
			want: 3 * time.Hour,
		},
		{
			name: "closed plus active",
			periods: []*WorkingPeriod{
				closed(1, 1, at(10, 0), at(11, 0)),
				open(2, 1, at(15, 30)),
			},
			want: 90 * time.Minute,
		},
		{
			name: "abandoned period is excluded",
			periods: []*WorkingPeriod{
				open(1, 1, at(9, 0)),
				closed(2, 1, at(10, 0), at(11, 0)),
			},
			want: time.Hour,
		},
		{
			name: "abandoned period excluded next to active",
			periods: []*WorkingPeriod{
				open(1, 1, at(9, 0)),
				open(2, 1, at(15, 0)),
			},
			want: time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TotalWorkingTime(tt.periods, now); got != tt.want {
				t.Errorf("TotalWorkingTime() = %v, want %v", got, tt.want)
			}
		})
	}
}
