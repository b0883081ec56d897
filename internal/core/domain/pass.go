package domain

import "time"

// ApprovalStatus represents the approval state of a pass request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// Valid reports whether s is one of the three known approval states.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// Decided reports whether an approver has already acted on the pass.
func (s ApprovalStatus) Decided() bool {
	return s == ApprovalApproved || s == ApprovalRejected
}

// Display returns the human label shown next to a pass.
func (s ApprovalStatus) Display() string {
	switch s {
	case ApprovalPending:
		return "Pending"
	case ApprovalApproved:
		return "Approved"
	case ApprovalRejected:
		return "Rejected"
	}
	return string(s)
}

// Pass is a student's request to move between two rooms for a bounded time.
//
// ID is empty until the store persists the pass. StartTime stays nil until the
// approval workflow starts the pass; Duration is nil when the student did not
// ask for a specific length.
type Pass struct {
	ID        string         `json:"id"`
	Author    string         `json:"author"`
	FromRoom  string         `json:"from_room"`
	ToRoom    string         `json:"to_room"`
	CreatedAt time.Time      `json:"created_at"`
	Approved  ApprovalStatus `json:"approved"`
	StartTime *time.Time     `json:"start_time,omitempty"`
	Duration  *int           `json:"duration,omitempty"`
	Active    bool           `json:"active"`
	SchoolID  string         `json:"school_id,omitempty"`
}

// DurationMinutes returns the requested duration, or zero when none was set.
func (p Pass) DurationMinutes() int {
	if p.Duration == nil {
		return 0
	}
	return *p.Duration
}

// DisplayStart is the instant shown next to a pass in the history lists: the
// start time once the pass has run, otherwise the moment it was requested.
func (p Pass) DisplayStart() time.Time {
	if p.StartTime != nil {
		return *p.StartTime
	}
	return p.CreatedAt
}

// CountdownStart is the instant the active countdown runs from. A pass that
// has not been stamped with a start time yet counts from now, so it shows its
// full duration.
func (p Pass) CountdownStart(now time.Time) time.Time {
	if p.StartTime != nil {
		return *p.StartTime
	}
	return now
}

// Progress computes the countdown of the active pass at now.
func (p Pass) Progress(now time.Time) Progress {
	return ComputeProgress(p.CountdownStart(now), p.DurationMinutes(), now)
}

// NewPendingPass builds the record a student submits. CreatedAt is left zero:
// the store assigns it.
func NewPendingPass(author, from, to string, duration *int, schoolID string) *Pass {
	var d *int
	if duration != nil {
		v := *duration
		d = &v
	}
	return &Pass{
		Author:   author,
		FromRoom: from,
		ToRoom:   to,
		Approved: ApprovalPending,
		Duration: d,
		Active:   false,
		SchoolID: schoolID,
	}
}
