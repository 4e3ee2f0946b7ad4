package crawljob

import (
	"errors"
	"fmt"
)

var (
	// ErrFeedUnavailable means the upstream feed could not be fetched or parsed.
	ErrFeedUnavailable = errors.New("feed unavailable")
	// ErrEmptyFeed means the feed was reachable but listed no IDs.
	ErrEmptyFeed = errors.New("feed returned no listing ids")
	// ErrAlreadyInitialized is returned by a second bootstrap.
	ErrAlreadyInitialized = errors.New("scheduler already initialized")
	// ErrNotBootstrapped is returned when planning runs before bootstrap.
	ErrNotBootstrapped = errors.New("scheduler not bootstrapped")
	// ErrStoreCorrupt means persisted state exists but cannot be trusted.
	ErrStoreCorrupt = errors.New("scheduler state corrupt")
)

// ItemFailure records a scrape that failed for one external ID.
type ItemFailure struct {
	ExternalID int64
	Err        error
}

func (f ItemFailure) Error() string {
	return fmt.Sprintf("scrape %d: %v", f.ExternalID, f.Err)
}

func (f ItemFailure) Unwrap() error {
	return f.Err
}
