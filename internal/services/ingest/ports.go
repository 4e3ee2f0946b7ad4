package ingest

import (
	"context"

	"realestate-watch/internal/model"
)

type ListingFetcher interface {
	Fetch(ctx context.Context, externalID int64) (model.ScrapedListing, error)
}

type Notifier interface {
	SendAlert(listing model.ScrapedListing)
}
