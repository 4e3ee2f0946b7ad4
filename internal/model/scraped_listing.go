package model

type ScrapedListing struct {
	ExternalID int64
	Title      string
	Link       string
	ListingDetails
}

func (s ScrapedListing) ToCreate() ListingCreate {
	return ListingCreate{
		ExternalID:     s.ExternalID,
		Title:          s.Title,
		Link:           s.Link,
		ListingDetails: s.ListingDetails,
	}
}
