// Package domain holds the pure lead lifecycle rules. It has no side
// effects and no storage dependencies; the conversion orchestrator and the
// generic field-update path consume it.
package domain

// Status is a lead lifecycle state.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusQualified Status = "qualified"
	StatusConverted Status = "converted"
	StatusLost      Status = "lost"
)

// Priority is a lead triage level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ActivityType classifies a lead activity entry.
type ActivityType string

const (
	ActivityCall    ActivityType = "call"
	ActivityEmail   ActivityType = "email"
	ActivityMeeting ActivityType = "meeting"
	ActivityNote    ActivityType = "note"
	ActivityTask    ActivityType = "task"
)

// IsValidStatus reports whether value is one of the five lifecycle states.
// The validator is deliberately permissive: ordering between non-terminal
// states is trusted to the caller. The one hard invariant, that a lead with
// a converted customer cannot be converted again, is enforced by the
// conversion orchestrator, not here.
func IsValidStatus(value string) bool {
	switch Status(value) {
	case StatusNew, StatusContacted, StatusQualified, StatusConverted, StatusLost:
		return true
	}
	return false
}

// IsValidPriority reports whether value is a known priority.
func IsValidPriority(value string) bool {
	switch Priority(value) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// IsValidActivityType reports whether value is a known activity type.
func IsValidActivityType(value string) bool {
	switch ActivityType(value) {
	case ActivityCall, ActivityEmail, ActivityMeeting, ActivityNote, ActivityTask:
		return true
	}
	return false
}

// DidStatusChange reports whether a transition from oldStatus to newStatus
// is a real change worth notifying about. It is false when newStatus is
// empty or equal to oldStatus, which suppresses redundant notifications.
func DidStatusChange(oldStatus, newStatus string) bool {
	if newStatus == "" {
		return false
	}
	return oldStatus != newStatus
}

// IsTerminal reports whether s admits no further forward status changes.
// Archival can still flip a lead's active flag independent of status.
func (s Status) IsTerminal() bool {
	return s == StatusConverted || s == StatusLost
}

// TouchesContact reports whether an activity of type t counts as contact
// with the prospect, updating the lead's last-contacted timestamp.
func (t ActivityType) TouchesContact() bool {
	return t == ActivityCall || t == ActivityEmail || t == ActivityMeeting
}
