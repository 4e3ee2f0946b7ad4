package crawljob

import (
	"context"
	"fmt"
	"time"
)

// RunSummary reports one dispatch tick.
type RunSummary struct {
	Due      int
	Ran      int
	Failures []ItemFailure
}

// Checkpoint persists intermediate state during a dispatch tick.
type Checkpoint func(ctx context.Context, state State) error

// RunDue scrapes every due item in scheduled order, one at a time, pausing
// a random throttle delay between consecutive scrapes. A failed scrape is
// logged and recorded, and the item is still marked completed. When
// checkpoint is non-nil it is called after each item. Cancelling ctx stops
// the tick and leaves the remaining items, including one whose scrape was
// cut short, pending.
func (s *Scheduler) RunDue(ctx context.Context, state State, now time.Time, checkpoint Checkpoint) (State, RunSummary) {
	due := DueItems(state, now, s.opts.Tolerance)
	summary := RunSummary{Due: len(due)}
	if len(due) == 0 {
		return state, summary
	}

	next := state.Clone()
	for i, item := range due {
		if i > 0 {
			delay := s.jitter(s.opts.ThrottleMin, s.opts.ThrottleMax)
			if err := s.sleep(ctx, delay); err != nil {
				s.logger.Warn("dispatch interrupted", "remaining", len(due)-i, "error", err)
				break
			}
		}
		if err := ctx.Err(); err != nil {
			s.logger.Warn("dispatch interrupted", "remaining", len(due)-i, "error", err)
			break
		}

		if err := s.scrapeOne(ctx, item.ExternalID); err != nil {
			if ctx.Err() != nil {
				s.logger.Warn("dispatch interrupted mid-scrape; item left pending",
					"external_id", item.ExternalID, "remaining", len(due)-i, "error", err)
				break
			}
			s.logger.Error("scrape failed", "external_id", item.ExternalID, "error", err)
			summary.Failures = append(summary.Failures, ItemFailure{ExternalID: item.ExternalID, Err: err})
		} else {
			s.logger.Debug("scrape completed", "external_id", item.ExternalID)
		}

		markCompleted(next.Jobs, item.ExternalID)
		summary.Ran++

		if checkpoint != nil {
			if err := checkpoint(ctx, next); err != nil {
				s.logger.Error("checkpoint failed", "external_id", item.ExternalID, "error", err)
			}
		}
	}

	s.logger.Info("dispatch tick finished", "due", summary.Due, "ran", summary.Ran, "failed", len(summary.Failures))
	return next, summary
}

func (s *Scheduler) scrapeOne(ctx context.Context, externalID int64) (err error) {
	scrapeCtx := ctx
	if s.opts.ScrapeTimeout > 0 {
		var cancel context.CancelFunc
		scrapeCtx, cancel = context.WithTimeout(ctx, s.opts.ScrapeTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scraper panic: %v", r)
		}
	}()
	return s.scraper.Scrape(scrapeCtx, externalID)
}
