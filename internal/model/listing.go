package model

import "time"

type Listing struct {
	ID         int32  `json:"id"`
	ExternalID int64  `json:"external_id"`
	Title      string `json:"title"`
	Link       string `json:"link"`
	ListingDetails
	CreatedAt time.Time `json:"created_at"`
}

type ListingCreate struct {
	ExternalID int64
	Title      string
	Link       string
	ListingDetails
}

// ListingDetails are the fields extracted from a listing's detail page.
type ListingDetails struct {
	PropertyType    string `json:"property_type,omitempty"`
	TransactionType string `json:"transaction_type,omitempty"`
	County          string `json:"county,omitempty"`
	Municipality    string `json:"municipality,omitempty"`
	Place           string `json:"place,omitempty"`
	Price           int64  `json:"price,omitempty"`
	Currency        string `json:"currency,omitempty"`
	Area            int64  `json:"area,omitempty"`
	Rooms           int64  `json:"rooms,omitempty"`
	ParkingSpaces   int64  `json:"parking_spaces,omitempty"`
	View            string `json:"view,omitempty"`
	Garden          string `json:"garden,omitempty"`
	Bathrooms       int64  `json:"bathrooms,omitempty"`
	Garage          string `json:"garage,omitempty"`
	NearTransport   string `json:"near_transport,omitempty"`
	NearBeach       string `json:"near_beach,omitempty"`
	Floor           int64  `json:"floor,omitempty"`
	Elevator        string `json:"elevator,omitempty"`
	DescriptionHR   string `json:"description_hr,omitempty"`
	DescriptionEN   string `json:"description_en,omitempty"`
	DescriptionDE   string `json:"description_de,omitempty"`
}
