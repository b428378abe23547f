package scheduler

import (
	"fmt"
	"strconv"
	"time"
)

const (
	// SlotInterval is the spacing between two consecutive grid slots.
	SlotInterval = 30 * time.Minute
	// SlotsPerDay is the number of grid slots in a calendar day.
	SlotsPerDay = 48
)

// Slots returns the ordered labels of every grid slot in a day, "00:00"
// through "23:30". A new slice is returned on each call.
func Slots() []string {
	slots := make([]string, 0, SlotsPerDay)
	for i := 0; i < SlotsPerDay; i++ {
		minutes := i * int(SlotInterval/time.Minute)
		slots = append(slots, fmt.Sprintf("%02d:%02d", minutes/60, minutes%60))
	}
	return slots
}

// ParseSlot converts a "HH:MM" label into its offset from midnight. Labels
// produced by Slots are accepted, plus "24:00" for the end of the day.
func ParseSlot(label string) (time.Duration, error) {
	if len(label) != 5 || label[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, label)
	}
	hour, herr := strconv.Atoi(label[:2])
	minute, merr := strconv.Atoi(label[3:])
	if herr != nil || merr != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, label)
	}
	if hour == 24 && minute == 0 {
		return 24 * time.Hour, nil
	}
	if hour < 0 || hour > 23 || (minute != 0 && minute != 30) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSlot, label)
	}
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute, nil
}

// SlotTime places a slot label on the calendar day of day, in day's location.
func SlotTime(day time.Time, label string) (time.Time, error) {
	offset, err := ParseSlot(label)
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay(day).Add(offset), nil
}

// StartOfDay truncates t to midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DayBounds returns the half-open range [midnight, next midnight) containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	y, m, d := start.Date()
	return start, time.Date(y, m, d+1, 0, 0, 0, 0, start.Location())
}
