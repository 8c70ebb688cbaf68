package domain

import (
	"time"
)

// WorkingPeriod is a period when a lamp was on with a certain brightness.
//
// Kinds of periods for a lamp:
//
//   - closed: End is set
//   - open: End is nil
//   - last: the period with the maximum Start (open or closed)
//   - active: the last period if it is open, otherwise none
//   - abandoned: an open period that is not the last one
//
// Abandoned periods may legitimately exist in storage. They are tolerated
// and ignored by active-state reasoning and by TotalWorkingTime.
type WorkingPeriod struct {
	ID         int64
	LampID     int64
	Brightness int
	Start      time.Time
	End        *time.Time
}

// NewWorkingPeriod creates an open period starting at start
func NewWorkingPeriod(lampID int64, start time.Time, brightness int) (*WorkingPeriod, error) {
	if err := ValidateBrightness(brightness); err != nil {
		return nil, err
	}

	return &WorkingPeriod{
		LampID:     lampID,
		Brightness: brightness,
		Start:      start,
	}, nil
}

// IsOpen returns true while the period has no end
func (p *WorkingPeriod) IsOpen() bool {
	return p.End == nil
}

// Close sets the end of the period
func (p *WorkingPeriod) Close(at time.Time) {
	p.End = &at
}

// Duration returns end - start, using now as the end of an open period.
func (p *WorkingPeriod) Duration(now time.Time) time.Duration {
	end := now
	if p.End != nil {
		end = *p.End
	}
	d := end.Sub(p.Start)
	if d < 0 {
		return 0
	}
	return d
}

// Clone returns a deep copy of the period
func (p *WorkingPeriod) Clone() *WorkingPeriod {
	c := *p
	if p.End != nil {
		end := *p.End
		c.End = &end
	}
	return &c
}

// LastPeriod returns the period with the maximum start, or nil.
// Ties are broken by the higher ID, i.e. the one inserted later.
func LastPeriod(periods []*WorkingPeriod) *WorkingPeriod {
	var last *WorkingPeriod
	for _, p := range periods {
		if last == nil || p.Start.After(last.Start) || (p.Start.Equal(last.Start) && p.ID > last.ID) {
			last = p
		}
	}
	return last
}

// ActivePeriod returns the last period if it is open, or nil
func ActivePeriod(periods []*WorkingPeriod) *WorkingPeriod {
	last := LastPeriod(periods)
	if last == nil || !last.IsOpen() {
		return nil
	}
	return last
}

// AbandonedPeriods returns the open periods that are not the last period
func AbandonedPeriods(periods []*WorkingPeriod) []*WorkingPeriod {
	last := LastPeriod(periods)

	var abandoned []*WorkingPeriod
	for _, p := range periods {
		if p.IsOpen() && p != last {
			abandoned = append(abandoned, p)
		}
	}
	return abandoned
}

// TotalWorkingTime sums the durations of all closed periods and, if the last
// period is open, its duration up to now. Abandoned periods don't count.
// All periods are expected to belong to the same lamp.
func TotalWorkingTime(periods []*WorkingPeriod, now time.Time) time.Duration {
	var total time.Duration
	for _, p := range periods {
		if !p.IsOpen() {
			total += p.Duration(now)
		}
	}

	if active := ActivePeriod(periods); active != nil {
		total += active.Duration(now)
	}
	return total
}
