package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"realestate-watch/internal/model"
	"realestate-watch/internal/repositories"
)

// DBTX is the subset of pgxpool.Pool and pgx.Tx the repository needs.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type ListingRepository struct {
	db DBTX
}

var _ repositories.ListingRepository = (*ListingRepository)(nil)

func NewListingRepository(db DBTX) *ListingRepository {
	return &ListingRepository{db: db}
}

const listingColumns = `id_int, external_id, title, link,
	property_type, transaction_type, county, municipality, place,
	price, currency, area, number_of_rooms, number_of_parking_spaces,
	view, garden, number_of_bathrooms, garage, near_transport, near_beach,
	floor, elevator, croatian_description, english_description, german_description,
	created_at`

const createListingIfNotExists = `
INSERT INTO properties (
	external_id, title, link,
	property_type, transaction_type, county, municipality, place,
	price, currency, area, number_of_rooms, number_of_parking_spaces,
	view, garden, number_of_bathrooms, garage, near_transport, near_beach,
	floor, elevator, croatian_description, english_description, german_description
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
	$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
)
ON CONFLICT (external_id) DO NOTHING
RETURNING ` + listingColumns

const getListingByExternalID = `SELECT ` + listingColumns + ` FROM properties WHERE external_id = $1`

func (r *ListingRepository) CreateIfNotExists(ctx context.Context, input model.ListingCreate) (model.Listing, bool, error) {
	d := input.ListingDetails
	row := r.db.QueryRow(ctx, createListingIfNotExists,
		input.ExternalID, input.Title, input.Link,
		d.PropertyType, d.TransactionType, d.County, d.Municipality, d.Place,
		d.Price, d.Currency, d.Area, d.Rooms, d.ParkingSpaces,
		d.View, d.Garden, d.Bathrooms, d.Garage, d.NearTransport, d.NearBeach,
		d.Floor, d.Elevator, d.DescriptionHR, d.DescriptionEN, d.DescriptionDE,
	)

	listing, err := scanListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Listing{}, false, nil
	}
	if err != nil {
		return model.Listing{}, false, fmt.Errorf("insert listing %d: %w", input.ExternalID, err)
	}
	return listing, true, nil
}

func (r *ListingRepository) GetByExternalID(ctx context.Context, externalID int64) (model.Listing, error) {
	listing, err := scanListing(r.db.QueryRow(ctx, getListingByExternalID, externalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Listing{}, repositories.ErrNotFound
	}
	if err != nil {
		return model.Listing{}, fmt.Errorf("get listing %d: %w", externalID, err)
	}
	return listing, nil
}

func scanListing(row pgx.Row) (model.Listing, error) {
	var l model.Listing
	d := &l.ListingDetails
	err := row.Scan(
		&l.ID, &l.ExternalID, &l.Title, &l.Link,
		&d.PropertyType, &d.TransactionType, &d.County, &d.Municipality, &d.Place,
		&d.Price, &d.Currency, &d.Area, &d.Rooms, &d.ParkingSpaces,
		&d.View, &d.Garden, &d.Bathrooms, &d.Garage, &d.NearTransport, &d.NearBeach,
		&d.Floor, &d.Elevator, &d.DescriptionHR, &d.DescriptionEN, &d.DescriptionDE,
		&l.CreatedAt,
	)
	return l, err
}
