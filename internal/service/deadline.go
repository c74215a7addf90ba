package service

import "time"

// DeadlineVerdict is the outcome of classifying a submission against the
// exam window.
type DeadlineVerdict struct {
	ExpiresAt time.Time
	IsLate    bool
	Status    string // "submitted" or "expired"
}

// ClassifySubmission derives the attempt window from the client-reported
// start time and the exam duration, then classifies the submission. A
// submission exactly at the boundary is on time; only strictly-after is
// late. IsLate is the clock comparison alone. The client's timerExpired
// flag forces the expired status regardless of the clock, which covers
// clients whose local countdown fired before the server's reckoning, but
// it never makes a submission read as late.
func ClassifySubmission(startedAt time.Time, durationMinutes int, submittedAt time.Time, timerExpired bool) DeadlineVerdict {
	expiresAt := startedAt.Add(time.Duration(durationMinutes) * time.Minute)
	late := submittedAt.After(expiresAt)

	status := "submitted"
	if late || timerExpired {
		status = "expired"
	}
	return DeadlineVerdict{
		ExpiresAt: expiresAt,
		IsLate:    late,
		Status:    status,
	}
}
