package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"realestate-watch/internal/crawljob"
	"realestate-watch/internal/repositories"
)

// Service is the crawl scheduler's scrape action: fetch one listing, store
// it unless already known, and alert about new ones.
type Service struct {
	fetcher  ListingFetcher
	repo     repositories.ListingRepository
	notifier Notifier
	logger   *slog.Logger

	mu    sync.Mutex
	stats Stats
}

var _ crawljob.Scraper = (*Service)(nil)

// Stats counts scrape outcomes since the process started.
type Stats struct {
	Fetched    int `json:"fetched"`
	Saved      int `json:"saved"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

func NewService(fetcher ListingFetcher, repo repositories.ListingRepository, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{fetcher: fetcher, repo: repo, notifier: notifier, logger: logger}
}

func (s *Service) Scrape(ctx context.Context, externalID int64) error {
	listing, err := s.fetcher.Fetch(ctx, externalID)
	if err != nil {
		s.count(func(st *Stats) { st.Failed++ })
		return fmt.Errorf("fetch listing: %w", err)
	}
	s.count(func(st *Stats) { st.Fetched++ })

	saved, created, err := s.repo.CreateIfNotExists(ctx, listing.ToCreate())
	if err != nil {
		s.count(func(st *Stats) { st.Failed++ })
		return fmt.Errorf("store listing: %w", err)
	}
	if !created {
		s.count(func(st *Stats) { st.Duplicates++ })
		s.logger.Info("listing already stored", "external_id", externalID)
		return nil
	}

	s.count(func(st *Stats) { st.Saved++ })
	s.logger.Info("listing stored",
		"external_id", saved.ExternalID, "title", saved.Title, "price", saved.Price, "currency", saved.Currency,
	)
	if s.notifier != nil {
		listing.Link = saved.Link
		s.notifier.SendAlert(listing)
	}
	return nil
}

func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Service) count(fn func(*Stats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}
