package scheduler

import "time"

// DisplayStatus is the status shown for a meeting at a given instant.
type DisplayStatus string

const (
	DisplayUpcoming   DisplayStatus = "upcoming"
	DisplayInProgress DisplayStatus = "in-progress"
	DisplayEnded      DisplayStatus = "ended"
	DisplayCancelled  DisplayStatus = "cancelled"
	DisplayCompleted  DisplayStatus = "completed"
)

// ResolveStatus derives the display status of a meeting. Terminal stored
// states win; otherwise the status follows the clock, with both the start and
// the end instant counted as in progress.
func ResolveStatus(now, start, end time.Time, stored MeetingStatus) DisplayStatus {
	switch {
	case stored == MeetingCancelled:
		return DisplayCancelled
	case stored == MeetingCompleted:
		return DisplayCompleted
	case now.Before(start):
		return DisplayUpcoming
	case !now.After(end):
		return DisplayInProgress
	default:
		return DisplayEnded
	}
}
