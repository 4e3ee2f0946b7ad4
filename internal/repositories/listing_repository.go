package repositories

import (
	"context"
	"errors"

	"realestate-watch/internal/model"
)

var ErrNotFound = errors.New("record not found")

type ListingRepository interface {
	// CreateIfNotExists stores the listing unless its external ID is already
	// known; created reports whether a new row was written.
	CreateIfNotExists(ctx context.Context, input model.ListingCreate) (listing model.Listing, created bool, err error)
	GetByExternalID(ctx context.Context, externalID int64) (model.Listing, error)
}
