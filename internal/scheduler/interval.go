package scheduler

import "time"

// ValidateInterval reports whether [start, end) is an acceptable meeting
// interval: ordered, grid-aligned at both ends and a positive whole number of
// slots long.
func ValidateInterval(start, end time.Time) bool {
	return CheckInterval(start, end) == nil
}

// CheckInterval is ValidateInterval returning the first rule that failed.
func CheckInterval(start, end time.Time) error {
	if !start.Before(end) {
		return ErrIntervalOrder
	}
	if !gridAligned(start) || !gridAligned(end) {
		return ErrIntervalAlignment
	}
	minutes := int64(end.Sub(start) / time.Minute)
	step := int64(SlotInterval / time.Minute)
	if minutes <= 0 || minutes%step != 0 {
		return ErrIntervalDuration
	}
	return nil
}

// gridAligned requires a whole minute on the half hour.
func gridAligned(t time.Time) bool {
	if t.Second() != 0 || t.Nanosecond() != 0 {
		return false
	}
	m := t.Minute()
	return m == 0 || m == 30
}
