package crawljob

import "time"

// Prune drops completed items scheduled before now-horizon and returns how
// many were removed. Pending items are kept regardless of age.
func Prune(state State, now time.Time, horizon time.Duration) (State, int) {
	cutoff := now.Add(-horizon)
	next := state.Clone()

	kept := next.Jobs[:0]
	for _, job := range next.Jobs {
		if job.Completed && job.ScheduledTime.Before(cutoff) {
			continue
		}
		kept = append(kept, job)
	}
	removed := len(next.Jobs) - len(kept)
	next.Jobs = kept
	return next, removed
}
