package schedule_test

import (
	"testing"
	"time"

	"github.com/okwach/wablast-backend/internal/model"
	"github.com/okwach/wablast-backend/internal/schedule"
)

// Monday 2026-03-02 is a known fixed point for weekday math.
func mondayAt(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func weeklyCampaign() *model.Campaign {
	return &model.Campaign{
		Frequency:  model.FrequencyWeekly,
		TimesOfDay: []string{"09:00", "15:00"},
		Weekdays:   []int64{1, 3, 5}, // Mon, Wed, Fri
	}
}

func TestWeeklySameDayLaterTime(t *testing.T) {
	next := schedule.NextRun(weeklyCampaign(), mondayAt(10, 0))
	if next == nil {
		t.Fatal("expected a next run, got nil")
	}
	want := mondayAt(15, 0)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, *next)
	}
}

func TestWeeklyAdvancesToNextAllowedDay(t *testing.T) {
	next := schedule.NextRun(weeklyCampaign(), mondayAt(16, 0))
	if next == nil {
		t.Fatal("expected a next run, got nil")
	}
	// Wednesday 09:00
	want := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, *next)
	}
}

func TestWeeklySkipsDisallowedToday(t *testing.T) {
	c := weeklyCampaign()
	c.Weekdays = []int64{3} // Wednesday only
	next := schedule.NextRun(c, mondayAt(8, 0))
	if next == nil {
		t.Fatal("expected a next run, got nil")
	}
	want := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, *next)
	}
}

func TestDailyRollsToTomorrow(t *testing.T) {
	c := &model.Campaign{
		Frequency:  model.FrequencyDaily,
		TimesOfDay: []string{"08:00"},
	}
	next := schedule.NextRun(c, mondayAt(8, 30))
	if next == nil {
		t.Fatal("expected a next run, got nil")
	}
	want := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, *next)
	}
}

func TestDailyExactTimeIsNotStrictlyLater(t *testing.T) {
	c := &model.Campaign{
		Frequency:  model.FrequencyDaily,
		TimesOfDay: []string{"08:00"},
	}
	next := schedule.NextRun(c, mondayAt(8, 0))
	if next == nil {
		t.Fatal("expected a next run, got nil")
	}
	want := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected tomorrow %v, got %v", want, *next)
	}
}

func TestOnceAlwaysReturnsNil(t *testing.T) {
	c := &model.Campaign{
		Frequency:  model.FrequencyOnce,
		TimesOfDay: []string{"09:00"},
	}
	for _, now := range []time.Time{mondayAt(0, 0), mondayAt(12, 0), mondayAt(23, 59)} {
		if next := schedule.NextRun(c, now); next != nil {
			t.Errorf("expected nil for once campaign at %v, got %v", now, *next)
		}
	}
}

func TestWeeklyEmptyWeekdaysReturnsNil(t *testing.T) {
	c := weeklyCampaign()
	c.Weekdays = nil
	if next := schedule.NextRun(c, mondayAt(10, 0)); next != nil {
		t.Errorf("expected nil for weekly campaign with no weekdays, got %v", *next)
	}
}

func TestEmptyTimesReturnsNil(t *testing.T) {
	c := &model.Campaign{Frequency: model.FrequencyDaily}
	if next := schedule.NextRun(c, mondayAt(10, 0)); next != nil {
		t.Errorf("expected nil for campaign with no times, got %v", *next)
	}
}

func TestMalformedTimesAreSkipped(t *testing.T) {
	c := &model.Campaign{
		Frequency:  model.FrequencyDaily,
		TimesOfDay: []string{"not-a-time", "14:30"},
	}
	next := schedule.NextRun(c, mondayAt(10, 0))
	if next == nil {
		t.Fatal("expected a next run, got nil")
	}
	want := mondayAt(14, 30)
	if !next.Equal(want) {
		t.Errorf("expected %v, got %v", want, *next)
	}
}

func TestTimesAreSortedBeforeUse(t *testing.T) {
	c := &model.Campaign{
		Frequency:  model.FrequencyDaily,
		TimesOfDay: []string{"18:00", "07:00"},
	}
	next := schedule.NextRun(c, mondayAt(6, 0))
	if next == nil {
		t.Fatal("expected a next run, got nil")
	}
	want := mondayAt(7, 0)
	if !next.Equal(want) {
		t.Errorf("expected earliest time %v, got %v", want, *next)
	}
}

func TestFirstRunForOnceCampaign(t *testing.T) {
	c := &model.Campaign{
		Frequency:  model.FrequencyOnce,
		TimesOfDay: []string{"09:00"},
	}

	next := schedule.FirstRun(c, mondayAt(8, 0))
	if next == nil {
		t.Fatal("expected a first run, got nil")
	}
	if !next.Equal(mondayAt(9, 0)) {
		t.Errorf("expected today 09:00, got %v", *next)
	}

	next = schedule.FirstRun(c, mondayAt(10, 0))
	if next == nil {
		t.Fatal("expected a first run, got nil")
	}
	want := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("expected tomorrow 09:00, got %v", *next)
	}
}

func TestNextRunIsAlwaysStrictlyFuture(t *testing.T) {
	c := weeklyCampaign()
	for hour := 0; hour < 24; hour++ {
		now := mondayAt(hour, 17)
		next := schedule.NextRun(c, now)
		if next == nil {
			t.Fatalf("expected a next run at hour %d, got nil", hour)
		}
		if !next.After(now) {
			t.Errorf("next run %v is not strictly after now %v", *next, now)
		}
		if wd := int(next.Weekday()); wd != 1 && wd != 3 && wd != 5 {
			t.Errorf("next run %v falls on disallowed weekday %d", *next, wd)
		}
	}
}
