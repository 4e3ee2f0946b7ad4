package crawljob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchKnownIDs(t *testing.T) {
	t.Run("SortsAndDedupes", func(t *testing.T) {
		s := newTestScheduler(&fakeFeed{ids: []int64{105, 101, 103, 101}}, &fakeScraper{})

		ids, err := s.FetchKnownIDs(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []int64{101, 103, 105}, ids)
	})

	t.Run("FeedFailureIsSoft", func(t *testing.T) {
		s := newTestScheduler(&fakeFeed{err: errBoom}, &fakeScraper{})

		ids, err := s.FetchKnownIDs(context.Background())
		require.ErrorIs(t, err, ErrFeedUnavailable)
		require.ErrorIs(t, err, errBoom)
		assert.Empty(t, ids)
	})
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()

	t.Run("SetsInitialWatermarkToMinimum", func(t *testing.T) {
		s := newTestScheduler(&fakeFeed{ids: []int64{120, 100, 110}}, &fakeScraper{})

		next, err := s.Bootstrap(ctx, State{})
		require.NoError(t, err)
		assert.True(t, next.Initialized)
		require.NotNil(t, next.InitialWatermark)
		assert.Equal(t, int64(100), *next.InitialWatermark)
		assert.Nil(t, next.LastWatermark)
	})

	t.Run("RejectsSecondCall", func(t *testing.T) {
		s := newTestScheduler(&fakeFeed{ids: []int64{50}}, &fakeScraper{})
		state := initializedState(100)

		next, err := s.Bootstrap(ctx, state)
		require.ErrorIs(t, err, ErrAlreadyInitialized)
		assert.Equal(t, int64(100), *next.InitialWatermark)
	})

	t.Run("EmptyFeed", func(t *testing.T) {
		s := newTestScheduler(&fakeFeed{}, &fakeScraper{})

		next, err := s.Bootstrap(ctx, State{})
		require.ErrorIs(t, err, ErrEmptyFeed)
		assert.False(t, next.Initialized)
		assert.Nil(t, next.InitialWatermark)
	})

	t.Run("UnreachableFeed", func(t *testing.T) {
		s := newTestScheduler(&fakeFeed{err: errBoom}, &fakeScraper{})

		next, err := s.Bootstrap(ctx, State{})
		require.ErrorIs(t, err, ErrEmptyFeed)
		require.ErrorIs(t, err, ErrFeedUnavailable)
		assert.False(t, next.Initialized)
	})
}
