package services

import (
	"time"

	"github.com/leyuan/points-mall/models"
)

// Eligibility statuses reported to clients. Only "available" allows a new
// submission.
const (
	EligibilityAvailable    = "available"
	EligibilityPending      = "pending"
	EligibilityCompleted    = "completed"
	EligibilityLimitReached = "limit_reached"
	EligibilityNotStarted   = "not_started"
	EligibilityEnded        = "ended"
	EligibilityInactive     = "not_active"
)

// Participation summarizes a user's prior submissions for one activity.
type Participation struct {
	// Total is the count of non-rejected submissions, all time. A rejected
	// submission does not consume a "once" slot; the user may try again.
	Total int
	// Today is the count of all submissions created today, rejected ones
	// included.
	Today int
	// HasPending reports whether an unaudited submission exists.
	HasPending bool
}

// Eligibility is the adjudication result for one user and activity.
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Status   string `json:"status"`
}

// Evaluate adjudicates whether a user may submit to an activity right now.
// It is a pure function of its inputs: now is injected so daily windows are
// deterministic under test. Checks are ordered so the most specific blocker
// wins: lifecycle and time window first, then a pending submission, then the
// frequency policy.
func Evaluate(a *models.Activity, p Participation, now time.Time) Eligibility {
	if a.Status != models.ActivityStatusActive {
		return Eligibility{Status: EligibilityInactive}
	}
	if a.StartTime != nil && now.Before(*a.StartTime) {
		return Eligibility{Status: EligibilityNotStarted}
	}
	if a.EndTime != nil && now.After(*a.EndTime) {
		return Eligibility{Status: EligibilityEnded}
	}
	if p.HasPending {
		return Eligibility{Status: EligibilityPending}
	}

	switch a.FrequencyType {
	case models.FrequencyOnce:
		if p.Total >= 1 {
			return Eligibility{Status: EligibilityCompleted}
		}
	case models.FrequencyDaily:
		limit := a.MaxParticipations
		if limit <= 0 {
			limit = 1
		}
		if p.Today >= limit {
			return Eligibility{Status: EligibilityLimitReached}
		}
	}
	// "unlimited" carries no terminal cap; MaxParticipations only bounds
	// the daily window.

	return Eligibility{Eligible: true, Status: EligibilityAvailable}
}

// DayBounds returns the local-midnight bounds [start, end) of the day
// containing t. Submission counting and Evaluate share these bounds so the
// daily window is consistent between the read and the adjudication.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.Add(24 * time.Hour)
}
