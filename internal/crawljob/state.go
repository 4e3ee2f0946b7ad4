package crawljob

import (
	"fmt"
	"time"
)

// State is the single persisted aggregate of the crawl scheduler.
type State struct {
	Initialized      bool       `json:"initialized"`
	InitialWatermark *int64     `json:"initial_watermark"`
	LastWatermark    *int64     `json:"last_watermark"`
	Jobs             []WorkItem `json:"jobs"`
}

// WorkItem is one scheduled scrape of a single listing.
type WorkItem struct {
	ExternalID    int64     `json:"external_id"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Completed     bool      `json:"completed"`
}

// Clone returns a deep copy so operations never alias the caller's jobs slice.
func (s State) Clone() State {
	out := State{Initialized: s.Initialized}
	if s.InitialWatermark != nil {
		v := *s.InitialWatermark
		out.InitialWatermark = &v
	}
	if s.LastWatermark != nil {
		v := *s.LastWatermark
		out.LastWatermark = &v
	}
	if s.Jobs != nil {
		out.Jobs = make([]WorkItem, len(s.Jobs))
		copy(out.Jobs, s.Jobs)
	}
	return out
}

// NextLowerBound is the first external ID the next nightly plan would schedule.
func (s State) NextLowerBound() (int64, bool) {
	if s.LastWatermark != nil {
		return *s.LastWatermark + 1, true
	}
	if s.InitialWatermark != nil {
		return *s.InitialWatermark, true
	}
	return 0, false
}

// Validate rejects a loaded state whose watermarks or jobs are inconsistent.
func (s State) Validate() error {
	if s.Initialized && s.InitialWatermark == nil {
		return fmt.Errorf("%w: initialized without initial watermark", ErrStoreCorrupt)
	}
	if !s.Initialized && s.LastWatermark != nil {
		return fmt.Errorf("%w: last watermark set before bootstrap", ErrStoreCorrupt)
	}
	if s.InitialWatermark != nil && s.LastWatermark != nil && *s.LastWatermark < *s.InitialWatermark {
		return fmt.Errorf("%w: last watermark %d below initial watermark %d",
			ErrStoreCorrupt, *s.LastWatermark, *s.InitialWatermark)
	}
	for i, job := range s.Jobs {
		if job.ScheduledTime.IsZero() {
			return fmt.Errorf("%w: job %d (external id %d) has no scheduled time", ErrStoreCorrupt, i, job.ExternalID)
		}
	}
	return nil
}

func int64Ptr(v int64) *int64 {
	return &v
}
