package scheduler

import "time"

// CheckInStatus classifies an attendance record.
type CheckInStatus string

const (
	CheckInNormal CheckInStatus = "normal"
	CheckInLate   CheckInStatus = "late"
	// CheckInAbsent is never produced by EvaluateCheckIn; it exists for
	// records written by other processes.
	CheckInAbsent CheckInStatus = "absent"
)

// Valid reports whether s is a known check-in status.
func (s CheckInStatus) Valid() bool {
	switch s {
	case CheckInNormal, CheckInLate, CheckInAbsent:
		return true
	}
	return false
}

// EvaluateCheckIn returns late when checkedInAt is strictly after the meeting
// start and normal otherwise.
func EvaluateCheckIn(checkedInAt, meetingStart time.Time) CheckInStatus {
	if checkedInAt.After(meetingStart) {
		return CheckInLate
	}
	return CheckInNormal
}
