package crawljob

import (
	"slices"
	"time"
)

// DueItems returns the pending items whose window [scheduled, scheduled+tolerance]
// contains now, ordered by scheduled time. Items whose window passed between
// two ticks are never returned.
func DueItems(state State, now time.Time, tolerance time.Duration) []WorkItem {
	var due []WorkItem
	for _, job := range state.Jobs {
		if job.Completed {
			continue
		}
		if now.Before(job.ScheduledTime) || now.After(job.ScheduledTime.Add(tolerance)) {
			continue
		}
		due = append(due, job)
	}
	slices.SortStableFunc(due, func(a, b WorkItem) int {
		return a.ScheduledTime.Compare(b.ScheduledTime)
	})
	return due
}

// MarkCompleted flags every item for externalID as completed. Marking an
// already completed or unknown ID is a no-op.
func MarkCompleted(state State, externalID int64) State {
	next := state.Clone()
	markCompleted(next.Jobs, externalID)
	return next
}

func markCompleted(jobs []WorkItem, externalID int64) {
	for i := range jobs {
		if jobs[i].ExternalID == externalID {
			jobs[i].Completed = true
		}
	}
}
