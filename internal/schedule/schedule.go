// internal/schedule/schedule.go
package schedule

import (
    "sort"
    "time"

    "github.com/okwach/wablast-backend/internal/model"
)

// maxScanDays bounds the day-by-day scan so an empty weekday set can
// never loop forever.
const maxScanDays = 8

type clockTime struct {
    hour   int
    minute int
}

// NextRun computes the next execution instant for a campaign, or nil when
// no further occurrence exists.
//
// A "once" campaign always gets nil: its single occurrence is consumed by
// the caller on first firing. A campaign with no times of day, or a weekly
// campaign with no allowed weekdays, is malformed and also gets nil.
func NextRun(c *model.Campaign, now time.Time) *time.Time {
    if c.Frequency == model.FrequencyOnce {
        return nil
    }

    times := parseTimes(c.TimesOfDay)
    if len(times) == 0 {
        return nil
    }

    weekdays := allowedWeekdays(c)
    if c.Frequency == model.FrequencyWeekly && len(weekdays) == 0 {
        return nil
    }

    for day := 0; day <= maxScanDays; day++ {
        d := now.AddDate(0, 0, day)
        if c.Frequency == model.FrequencyWeekly && !weekdays[int(d.Weekday())] {
            continue
        }
        for _, t := range times {
            candidate := time.Date(d.Year(), d.Month(), d.Day(), t.hour, t.minute, 0, 0, now.Location())
            if candidate.After(now) {
                return &candidate
            }
        }
    }
    return nil
}

// FirstRun computes the initial next_run_at for a freshly created (or
// resumed) campaign. Unlike NextRun it also handles "once" campaigns,
// which fire at their first configured time of day still ahead of now
// (today or tomorrow).
func FirstRun(c *model.Campaign, now time.Time) *time.Time {
    if c.Frequency != model.FrequencyOnce {
        return NextRun(c, now)
    }

    times := parseTimes(c.TimesOfDay)
    if len(times) == 0 {
        return nil
    }
    for day := 0; day <= 1; day++ {
        d := now.AddDate(0, 0, day)
        for _, t := range times {
            candidate := time.Date(d.Year(), d.Month(), d.Day(), t.hour, t.minute, 0, 0, now.Location())
            if candidate.After(now) {
                return &candidate
            }
        }
    }
    return nil
}

// parseTimes parses "HH:MM" strings, drops anything malformed, and
// returns the result sorted ascending.
func parseTimes(raw []string) []clockTime {
    times := make([]clockTime, 0, len(raw))
    for _, s := range raw {
        parsed, err := time.Parse("15:04", s)
        if err != nil {
            continue
        }
        times = append(times, clockTime{hour: parsed.Hour(), minute: parsed.Minute()})
    }
    sort.Slice(times, func(i, j int) bool {
        if times[i].hour != times[j].hour {
            return times[i].hour < times[j].hour
        }
        return times[i].minute < times[j].minute
    })
    return times
}

func allowedWeekdays(c *model.Campaign) map[int]bool {
    allowed := map[int]bool{}
    for _, wd := range c.Weekdays {
        if wd >= 0 && wd <= 6 {
            allowed[int(wd)] = true
        }
    }
    return allowed
}
