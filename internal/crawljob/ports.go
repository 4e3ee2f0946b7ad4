package crawljob

import "context"

// FeedSource lists the external listing IDs currently visible upstream.
type FeedSource interface {
	FetchIDs(ctx context.Context) ([]int64, error)
}

// Scraper fetches and ingests a single listing.
type Scraper interface {
	Scrape(ctx context.Context, externalID int64) error
}

// ScraperFunc adapts a plain function to Scraper.
type ScraperFunc func(ctx context.Context, externalID int64) error

func (f ScraperFunc) Scrape(ctx context.Context, externalID int64) error {
	return f(ctx, externalID)
}

// StateStore persists State between invocations. Load returns the zero
// State when nothing has been saved yet.
type StateStore interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

// Locker is implemented by stores that can guard a load-mutate-save cycle
// against a concurrent process.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}
