package exam

import "time"

// Status is derived from the exam window and the clock on every read.
// It is never persisted, so it cannot go stale.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusRunning   Status = "running"
	StatusEnded     Status = "ended"
)

// StatusAt maps an exam window and an instant to a status. Both window
// boundaries are inclusive: now == opensAt and now == closesAt are Running.
func StatusAt(now, opensAt, closesAt time.Time) Status {
	if now.Before(opensAt) {
		return StatusScheduled
	}
	if now.After(closesAt) {
		return StatusEnded
	}
	return StatusRunning
}

// StatusOf resolves the status of e at now.
func (e Examination) StatusOf(now time.Time) Status {
	return StatusAt(now, e.OpensAt, e.ClosesAt)
}
