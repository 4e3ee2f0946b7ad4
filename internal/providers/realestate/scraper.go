package realestate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"realestate-watch/internal/model"
	"realestate-watch/internal/providers/common"
)

const (
	DefaultURLTemplate = "http://www.realestatecroatia.com/hrv/detail.asp?id={id}"
	userAgent          = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	requestTimeout     = 30 * time.Second

	titleSelector       = "h4"
	priceSelector       = "h3"
	detailRowSelector   = "table tr"
	descriptionSelector = "div.opis"
)

// ErrNotFound is returned when the listing page does not exist (anymore).
var ErrNotFound = errors.New("listing not found")

// Scraper fetches a listing detail page and extracts its fields.
type Scraper struct {
	client      *http.Client
	urlTemplate string
	logger      *slog.Logger
}

func NewScraper(client *http.Client, urlTemplate string, logger *slog.Logger) *Scraper {
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{client: client, urlTemplate: urlTemplate, logger: logger.With("source", "realestate")}
}

func (s *Scraper) URL(externalID int64) string {
	return strings.ReplaceAll(s.urlTemplate, "{id}", strconv.FormatInt(externalID, 10))
}

func (s *Scraper) Fetch(ctx context.Context, externalID int64) (model.ScrapedListing, error) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	link := s.URL(externalID)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, link, nil)
	if err != nil {
		return model.ScrapedListing{}, err
	}
	req.Header.Set("User-Agent", userAgent)

	s.logger.Debug("fetching listing", "external_id", externalID, "url", link)
	resp, err := s.client.Do(req)
	if err != nil {
		return model.ScrapedListing{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return model.ScrapedListing{}, fmt.Errorf("%w: %d", ErrNotFound, externalID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return model.ScrapedListing{}, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return model.ScrapedListing{}, err
	}

	listing, err := ExtractListing(doc, externalID)
	if err != nil {
		return model.ScrapedListing{}, err
	}
	listing.Link = link
	return listing, nil
}

// ExtractListing reads the listing fields out of a detail page.
func ExtractListing(doc *goquery.Document, externalID int64) (model.ScrapedListing, error) {
	title := common.CleanText(doc.Find(titleSelector).First().Text())
	if title == "" {
		return model.ScrapedListing{}, fmt.Errorf("%w: %d has no title", ErrNotFound, externalID)
	}

	listing := model.ScrapedListing{ExternalID: externalID, Title: title}
	d := &listing.ListingDetails

	var loc common.Location
	d.PropertyType, d.TransactionType, loc = common.SplitTitle(title)
	d.County, d.Municipality, d.Place = loc.County, loc.Municipality, loc.Place

	doc.Find(priceSelector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		price, currency := common.ExtractPrice(sel.Text())
		if price == 0 || currency == "" {
			return true
		}
		d.Price, d.Currency = price, currency
		return false
	})

	doc.Find(detailRowSelector).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.TrimSuffix(common.CleanText(cells.Eq(0).Text()), ":")
		value := common.CleanText(cells.Eq(1).Text())
		applyDetail(d, label, value)
	})

	descriptions := doc.Find(descriptionSelector)
	descriptionFields := []*string{&d.DescriptionHR, &d.DescriptionEN, &d.DescriptionDE}
	descriptions.Each(func(i int, sel *goquery.Selection) {
		if i < len(descriptionFields) {
			*descriptionFields[i] = common.CleanText(sel.Text())
		}
	})

	return listing, nil
}

func applyDetail(d *model.ListingDetails, label, value string) {
	if value == "" || value == "-" {
		return
	}
	switch label {
	case "Površina":
		d.Area = common.ExtractNumber(value)
	case "Broj soba":
		d.Rooms = common.ExtractNumber(value)
	case "Broj parkirnih mjesta":
		d.ParkingSpaces = common.ExtractNumber(value)
	case "Pogled":
		d.View = value
	case "Okućnica":
		d.Garden = value
	case "Broj kupaona":
		d.Bathrooms = common.ExtractNumber(value)
	case "Garaža":
		d.Garage = value
	case "Blizina transporta":
		d.NearTransport = value
	case "Blizina plaže":
		d.NearBeach = value
	case "Kat":
		d.Floor = common.ExtractNumber(value)
	case "Lift":
		d.Elevator = value
	}
}
