package crawljob

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

type fakeFeed struct {
	ids []int64
	err error
}

func (f *fakeFeed) FetchIDs(context.Context) ([]int64, error) {
	return f.ids, f.err
}

func idRange(lo, hi int64) []int64 {
	ids := make([]int64, 0, hi-lo+1)
	for id := lo; id <= hi; id++ {
		ids = append(ids, id)
	}
	return ids
}

type fakeScraper struct {
	mu    sync.Mutex
	calls []int64
	fail  map[int64]error
}

func (f *fakeScraper) Scrape(_ context.Context, externalID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, externalID)
	return f.fail[externalID]
}

type memStore struct {
	state   State
	saves   int
	loadErr error
}

func (m *memStore) Load(context.Context) (State, error) {
	if m.loadErr != nil {
		return State{}, m.loadErr
	}
	return m.state.Clone(), nil
}

func (m *memStore) Save(_ context.Context, state State) error {
	m.state = state.Clone()
	m.saves++
	return nil
}

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Location = time.UTC
	return opts
}

func newTestScheduler(feed FeedSource, scraper Scraper) *Scheduler {
	return New(feed, scraper, testOptions(),
		WithLogger(discardLogger()),
		WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
}

func initializedState(initial int64) State {
	return State{Initialized: true, InitialWatermark: int64Ptr(initial)}
}
