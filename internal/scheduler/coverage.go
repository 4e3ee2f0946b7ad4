package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"realestate-watch/internal/crawljob"
)

// DefaultDispatchSpec ticks every minute of the day. Wall-clock hour ranges
// miss part of the window on nights with a daylight saving change.
const DefaultDispatchSpec = "* * * * *"

// CheckCoverage reports an error when the dispatch spec leaves a gap longer
// than tolerance anywhere inside a nightly window, which would let planned
// items expire unscraped. It checks the first night after from and every
// night of the following year whose window crosses a UTC offset change.
func CheckCoverage(spec string, loc *time.Location, window, tolerance time.Duration, from time.Time) error {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("invalid dispatch cron spec %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.Local
	}

	start := crawljob.NextMidnight(from, loc)
	for night := 0; night < 366; night++ {
		end := start.Add(window)
		_, startOffset := start.Zone()
		_, endOffset := end.Zone()
		if night == 0 || startOffset != endOffset {
			if err := checkNight(sched, start, end, tolerance); err != nil {
				return fmt.Errorf("dispatch cron spec %q does not cover the %s window: %w", spec, window, err)
			}
		}
		start = crawljob.NextMidnight(start, loc)
	}
	return nil
}

// checkNight walks the ticks in [start, end]. Every item in the window is
// due for tolerance after its scheduled time, so consecutive ticks may be at
// most tolerance apart.
func checkNight(sched cron.Schedule, start, end time.Time, tolerance time.Duration) error {
	prev := start
	tick := sched.Next(start.Add(-time.Nanosecond))
	for {
		if tick.IsZero() || tick.Sub(prev) > tolerance {
			return fmt.Errorf("no tick within %s after %s", tolerance, prev.Format(time.RFC3339))
		}
		if !tick.Before(end) {
			return nil
		}
		prev = tick
		tick = sched.Next(tick)
	}
}
