package crawljob

import "time"

// Status is a read-only snapshot of the scheduler state.
type Status struct {
	Initialized      bool       `json:"initialized"`
	InitialWatermark *int64     `json:"initial_watermark"`
	LastWatermark    *int64     `json:"last_watermark"`
	NextLowerBound   *int64     `json:"next_lower_bound"`
	TotalJobs        int        `json:"total_jobs"`
	CompletedJobs    int        `json:"completed_jobs"`
	PendingJobs      int        `json:"pending_jobs"`
	NextDue          *time.Time `json:"next_due,omitempty"`
}

func Snapshot(state State) Status {
	st := Status{
		Initialized: state.Initialized,
		TotalJobs:   len(state.Jobs),
	}
	if state.InitialWatermark != nil {
		st.InitialWatermark = int64Ptr(*state.InitialWatermark)
	}
	if state.LastWatermark != nil {
		st.LastWatermark = int64Ptr(*state.LastWatermark)
	}
	if lower, ok := state.NextLowerBound(); ok {
		st.NextLowerBound = int64Ptr(lower)
	}

	for _, job := range state.Jobs {
		if job.Completed {
			st.CompletedJobs++
			continue
		}
		if st.NextDue == nil || job.ScheduledTime.Before(*st.NextDue) {
			t := job.ScheduledTime
			st.NextDue = &t
		}
	}
	st.PendingJobs = st.TotalJobs - st.CompletedJobs
	return st
}
