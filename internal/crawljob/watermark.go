package crawljob

import (
	"context"
	"fmt"
	"slices"
)

// FetchKnownIDs returns the sorted, de-duplicated IDs visible in the feed.
// A feed failure yields no IDs and an error wrapping ErrFeedUnavailable.
func (s *Scheduler) FetchKnownIDs(ctx context.Context) ([]int64, error) {
	fetchCtx := ctx
	if s.opts.FeedTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.opts.FeedTimeout)
		defer cancel()
	}

	ids, err := s.feed.FetchIDs(fetchCtx)
	if err != nil {
		s.logger.Warn("feed fetch failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}

	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out), nil
}

// Bootstrap records the lowest feed ID as the initial watermark. It runs
// once; the state is returned unchanged on any error.
func (s *Scheduler) Bootstrap(ctx context.Context, state State) (State, error) {
	if state.Initialized {
		return state, ErrAlreadyInitialized
	}

	ids, err := s.FetchKnownIDs(ctx)
	if len(ids) == 0 {
		if err != nil {
			return state, fmt.Errorf("%w: %w", ErrEmptyFeed, err)
		}
		return state, ErrEmptyFeed
	}

	next := state.Clone()
	next.InitialWatermark = int64Ptr(ids[0])
	next.Initialized = true
	s.logger.Info("scheduler initialized", "initial_watermark", ids[0], "feed_ids", len(ids))
	return next, nil
}
