package crawljob

import (
	"context"
	"errors"
	"math"
	"time"
)

// PlanResult describes what a nightly plan scheduled.
type PlanResult struct {
	// Empty is true when nothing was scheduled tonight.
	Empty bool
	// FeedUnavailable is true when Empty was caused by a feed failure.
	FeedUnavailable bool
	Lower           int64
	Upper           int64
	Count           int
	// Skipped counts feed IDs ignored because they lie beyond MaxBatch.
	Skipped     int
	WindowStart time.Time
	Interval    time.Duration
}

// PlanNightlyBatch schedules every ID between the watermark and the current
// feed maximum across the next execution window. The new batch replaces any
// jobs left from the previous night.
func (s *Scheduler) PlanNightlyBatch(ctx context.Context, state State, now time.Time) (State, PlanResult, error) {
	if !state.Initialized {
		return state, PlanResult{}, ErrNotBootstrapped
	}

	ids, err := s.FetchKnownIDs(ctx)
	if len(ids) == 0 {
		result := PlanResult{Empty: true, FeedUnavailable: errors.Is(err, ErrFeedUnavailable)}
		s.logger.Warn("no listing ids in feed; skipping tonight", "feed_unavailable", result.FeedUnavailable)
		return state, result, nil
	}

	lower, _ := state.NextLowerBound()
	upper, skipped := s.batchUpper(ids, lower)
	if skipped > 0 {
		s.logger.Warn("ignoring feed ids beyond batch cap",
			"lower", lower, "max_batch", s.opts.MaxBatch, "skipped", skipped, "feed_max", ids[len(ids)-1])
	}

	next := state.Clone()
	if lower > upper {
		next.Jobs = []WorkItem{}
		s.logger.Info("no new listing ids since last plan", "lower", lower, "upper", upper)
		return next, PlanResult{Empty: true, Lower: lower, Upper: upper, Skipped: skipped}, nil
	}

	start := NextMidnight(now, s.opts.Location)
	next.Jobs = Spread(lower, upper, start, s.opts.Window)
	next.LastWatermark = int64Ptr(upper)

	result := PlanResult{
		Lower:       lower,
		Upper:       upper,
		Count:       len(next.Jobs),
		Skipped:     skipped,
		WindowStart: start,
		Interval:    spacing(len(next.Jobs), s.opts.Window),
	}
	s.logger.Info("nightly batch planned",
		"lower", lower, "upper", upper, "count", result.Count,
		"window_start", start, "interval", result.Interval,
	)
	return next, result, nil
}

// batchUpper returns the highest feed ID the batch starting at lower may
// include, and how many feed IDs lie beyond that cap. ids must be sorted.
func (s *Scheduler) batchUpper(ids []int64, lower int64) (int64, int) {
	upper := ids[len(ids)-1]
	if s.opts.MaxBatch <= 0 || upper < lower {
		return upper, 0
	}
	limit := int64(math.MaxInt64)
	if lower <= math.MaxInt64-int64(s.opts.MaxBatch) {
		limit = lower + int64(s.opts.MaxBatch) - 1
	}
	skipped := 0
	for i := len(ids) - 1; i >= 0 && ids[i] > limit; i-- {
		skipped++
	}
	if skipped == len(ids) {
		return lower - 1, skipped
	}
	return ids[len(ids)-1-skipped], skipped
}

// NextMidnight returns the first midnight in loc strictly after now.
func NextMidnight(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

// Spread builds one pending item per ID in [lower, upper], evenly spaced
// over window in ascending ID order. A single item lands on start.
func Spread(lower, upper int64, start time.Time, window time.Duration) []WorkItem {
	if lower > upper {
		return []WorkItem{}
	}
	count := int(upper - lower + 1)
	interval := spacing(count, window)

	items := make([]WorkItem, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, WorkItem{
			ExternalID:    lower + int64(i),
			ScheduledTime: start.Add(time.Duration(i) * interval),
		})
	}
	return items
}

func spacing(count int, window time.Duration) time.Duration {
	if count <= 1 {
		return 0
	}
	return window / time.Duration(count)
}
