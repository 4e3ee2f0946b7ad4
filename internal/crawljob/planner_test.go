package crawljob

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var planNow = time.Date(2025, 6, 10, 23, 59, 0, 0, time.UTC)

func TestNextMidnight(t *testing.T) {
	got := NextMidnight(planNow, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC), got)

	// exactly at midnight the window opens on the following day
	atMidnight := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC), NextMidnight(atMidnight, time.UTC))

	zagreb := time.FixedZone("CEST", 2*60*60)
	got = NextMidnight(time.Date(2025, 6, 10, 22, 30, 0, 0, time.UTC), zagreb)
	assert.Equal(t, time.Date(2025, 6, 12, 0, 0, 0, 0, zagreb), got)
}

func TestSpread(t *testing.T) {
	start := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	t.Run("EvenSpacing", func(t *testing.T) {
		items := Spread(1, 5, start, 18000*time.Second)
		require.Len(t, items, 5)

		offsets := []time.Duration{0, 3600 * time.Second, 7200 * time.Second, 10800 * time.Second, 14400 * time.Second}
		for i, item := range items {
			assert.Equal(t, int64(i+1), item.ExternalID)
			assert.Equal(t, start.Add(offsets[i]), item.ScheduledTime)
			assert.False(t, item.Completed)
		}
	})

	t.Run("SingleItemAtWindowStart", func(t *testing.T) {
		items := Spread(42, 42, start, 5*time.Hour)
		require.Len(t, items, 1)
		assert.Equal(t, start, items[0].ScheduledTime)
	})

	t.Run("EmptyRange", func(t *testing.T) {
		assert.Empty(t, Spread(10, 9, start, 5*time.Hour))
	})
}

func TestPlanNightlyBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("NotBootstrapped", func(t *testing.T) {
		s := newTestScheduler(&fakeFeed{ids: idRange(1, 3)}, &fakeScraper{})

		next, _, err := s.PlanNightlyBatch(ctx, State{}, planNow)
		require.ErrorIs(t, err, ErrNotBootstrapped)
		assert.Empty(t, next.Jobs)
	})

	t.Run("FirstCycleStartsAtInitialWatermark", func(t *testing.T) {
		s := newTestScheduler(&fakeFeed{ids: idRange(100, 107)}, &fakeScraper{})

		next, res, err := s.PlanNightlyBatch(ctx, initializedState(100), planNow)
		require.NoError(t, err)
		assert.False(t, res.Empty)
		assert.Equal(t, int64(100), res.Lower)
		assert.Equal(t, int64(107), res.Upper)
		assert.Equal(t, 8, res.Count)
		assert.Equal(t, 2250*time.Second, res.Interval)
		require.Len(t, next.Jobs, 8)
		assert.Equal(t, int64(107), *next.LastWatermark)
		assert.Equal(t, NextMidnight(planNow, time.UTC), next.Jobs[0].ScheduledTime)
	})

	t.Run("EmptyFeedLeavesStateUntouched", func(t *testing.T) {
		s := newTestScheduler(&fakeFeed{}, &fakeScraper{})
		state := initializedState(100)
		state.LastWatermark = int64Ptr(107)
		state.Jobs = Spread(100, 107, planNow, time.Hour)

		next, res, err := s.PlanNightlyBatch(ctx, state, planNow)
		require.NoError(t, err)
		assert.True(t, res.Empty)
		assert.False(t, res.FeedUnavailable)
		assert.Equal(t, state, next)
	})

	t.Run("UnavailableFeedIsEmptyPlan", func(t *testing.T) {
		s := newTestScheduler(&fakeFeed{err: errBoom}, &fakeScraper{})
		state := initializedState(100)

		next, res, err := s.PlanNightlyBatch(ctx, state, planNow)
		require.NoError(t, err)
		assert.True(t, res.Empty)
		assert.True(t, res.FeedUnavailable)
		assert.Equal(t, state, next)
	})

	t.Run("NoNewIDsClearsJobs", func(t *testing.T) {
		s := newTestScheduler(&fakeFeed{ids: idRange(100, 107)}, &fakeScraper{})
		state := initializedState(100)
		state.LastWatermark = int64Ptr(107)
		state.Jobs = Spread(100, 107, planNow, time.Hour)

		next, res, err := s.PlanNightlyBatch(ctx, state, planNow)
		require.NoError(t, err)
		assert.True(t, res.Empty)
		assert.Empty(t, next.Jobs)
		assert.Equal(t, int64(107), *next.LastWatermark)
		assert.Len(t, state.Jobs, 8, "input state must not be mutated")
	})

	t.Run("OutlierIDBeyondBatchCapIsIgnored", func(t *testing.T) {
		feed := &fakeFeed{ids: append(idRange(100, 104), 999999999999)}
		opts := testOptions()
		opts.MaxBatch = 10
		s := New(feed, &fakeScraper{}, opts, WithLogger(discardLogger()))

		next, res, err := s.PlanNightlyBatch(ctx, initializedState(100), planNow)
		require.NoError(t, err)
		assert.Equal(t, int64(104), res.Upper)
		assert.Equal(t, 5, res.Count)
		assert.Equal(t, 1, res.Skipped)
		assert.Len(t, next.Jobs, 5)
		assert.Equal(t, int64(104), *next.LastWatermark)
	})

	t.Run("DenseRangeIsTruncatedAtBatchCap", func(t *testing.T) {
		opts := testOptions()
		opts.MaxBatch = 3
		s := New(&fakeFeed{ids: idRange(100, 107)}, &fakeScraper{}, opts, WithLogger(discardLogger()))

		next, res, err := s.PlanNightlyBatch(ctx, initializedState(100), planNow)
		require.NoError(t, err)
		assert.Equal(t, int64(102), res.Upper)
		assert.Equal(t, 5, res.Skipped)
		assert.Equal(t, int64(103), mustLowerBound(t, next))
	})

	t.Run("OnlyOutliersPlansNothing", func(t *testing.T) {
		opts := testOptions()
		opts.MaxBatch = 10
		s := New(&fakeFeed{ids: []int64{50, 999999999999}}, &fakeScraper{}, opts, WithLogger(discardLogger()))
		state := initializedState(100)
		state.LastWatermark = int64Ptr(120)

		next, res, err := s.PlanNightlyBatch(ctx, state, planNow)
		require.NoError(t, err)
		assert.True(t, res.Empty)
		assert.Equal(t, 1, res.Skipped)
		assert.Empty(t, next.Jobs)
		assert.Equal(t, int64(120), *next.LastWatermark)
	})
}

func mustLowerBound(t *testing.T, state State) int64 {
	t.Helper()
	lower, ok := state.NextLowerBound()
	require.True(t, ok)
	return lower
}

func TestWatermarkPartitionsFeed(t *testing.T) {
	ctx := context.Background()
	feed := &fakeFeed{}
	s := newTestScheduler(feed, &fakeScraper{})

	feed.ids = []int64{500}
	state, err := s.Bootstrap(ctx, State{})
	require.NoError(t, err)

	seen := map[int64]int{}
	var last int64
	now := planNow
	for _, upper := range []int64{505, 505, 512, 513, 540} {
		feed.ids = idRange(480, upper)

		var res PlanResult
		state, res, err = s.PlanNightlyBatch(ctx, state, now)
		require.NoError(t, err)
		require.NotNil(t, state.LastWatermark)
		assert.GreaterOrEqual(t, *state.LastWatermark, last)
		last = *state.LastWatermark

		if !res.Empty {
			for _, job := range state.Jobs {
				seen[job.ExternalID]++
			}
		}
		now = now.Add(24 * time.Hour)
	}

	for id := int64(500); id <= 540; id++ {
		assert.Equal(t, 1, seen[id], "id %d scheduled %d times", id, seen[id])
	}
	assert.Len(t, seen, 41)
}

func TestPlanEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	feed := &fakeFeed{ids: idRange(100, 100)}
	s := newTestScheduler(feed, &fakeScraper{})

	state, err := s.Bootstrap(ctx, State{})
	require.NoError(t, err)
	assert.Equal(t, int64(100), *state.InitialWatermark)

	feed.ids = idRange(100, 107)
	state, res, err := s.PlanNightlyBatch(ctx, state, planNow)
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Lower)
	assert.Equal(t, int64(107), res.Upper)
	require.Len(t, state.Jobs, 8)
	start := NextMidnight(planNow, time.UTC)
	assert.Equal(t, start.Add(5*time.Hour-5*time.Hour/8), state.Jobs[7].ScheduledTime)
	assert.Equal(t, int64(107), *state.LastWatermark)

	feed.ids = idRange(100, 110)
	state, res, err = s.PlanNightlyBatch(ctx, state, planNow.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(108), res.Lower)
	assert.Equal(t, int64(110), res.Upper)
	require.Len(t, state.Jobs, 3)
	assert.Equal(t, []int64{108, 109, 110}, []int64{state.Jobs[0].ExternalID, state.Jobs[1].ExternalID, state.Jobs[2].ExternalID})
	assert.Equal(t, int64(110), *state.LastWatermark)
}
