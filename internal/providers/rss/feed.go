package rss

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
)

const (
	DefaultFeedURL = "https://www.realestatecroatia.com/hrv/rss.asp"
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Feed reads listing IDs from the upstream RSS feed.
type Feed struct {
	client *http.Client
	url    string
	logger *slog.Logger
}

func NewFeed(client *http.Client, feedURL string, logger *slog.Logger) *Feed {
	if feedURL == "" {
		feedURL = DefaultFeedURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{client: client, url: feedURL, logger: logger.With("source", "rss")}
}

// Entry is one <item> of the feed.
type Entry struct {
	ID        int64
	Title     string
	Link      string
	Published string
}

type document struct {
	Channel struct {
		Items []item `xml:"item"`
	} `xml:"channel"`
}

type item struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
	GUID    string `xml:"guid"`
}

// FetchIDs returns the listing IDs of all feed entries.
func (f *Feed) FetchIDs(ctx context.Context) ([]int64, error) {
	entries, err := f.Entries(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids, nil
}

// Entries fetches the feed and returns the entries carrying a numeric listing ID.
func (f *Feed) Entries(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	decoder := xml.NewDecoder(resp.Body)
	decoder.CharsetReader = charset.NewReaderLabel
	var doc document
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("xml parse error: %w", err)
	}

	entries := make([]Entry, 0, len(doc.Channel.Items))
	for _, it := range doc.Channel.Items {
		link := strings.TrimSpace(it.Link)
		if link == "" {
			link = strings.TrimSpace(it.GUID)
		}
		id, ok := ListingID(link)
		if !ok {
			f.logger.Debug("skipping entry without listing id", "link", link)
			continue
		}
		entries = append(entries, Entry{
			ID:        id,
			Title:     strings.TrimSpace(it.Title),
			Link:      link,
			Published: strings.TrimSpace(it.PubDate),
		})
	}

	f.logger.Info("feed fetched", "items", len(doc.Channel.Items), "ids", len(entries))
	return entries, nil
}

// ListingID extracts the numeric id query parameter from a listing link.
func ListingID(link string) (int64, bool) {
	raw := ""
	if u, err := url.Parse(link); err == nil {
		raw = u.Query().Get("id")
	}
	if raw == "" {
		if idx := strings.LastIndex(link, "id="); idx >= 0 {
			raw = link[idx+len("id="):]
		}
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
