package scheduler

import "time"

// MeetingStatus is the stored lifecycle state of a meeting.
type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingCancelled MeetingStatus = "cancelled"
	MeetingCompleted MeetingStatus = "completed"
)

// Valid reports whether s is a known lifecycle state.
func (s MeetingStatus) Valid() bool {
	switch s {
	case MeetingScheduled, MeetingCancelled, MeetingCompleted:
		return true
	}
	return false
}

// Booking is the minimal view of a meeting needed for conflict detection.
type Booking struct {
	ID     int64
	RoomID int64
	Start  time.Time
	End    time.Time
	Status MeetingStatus
}

// Overlaps is the half-open interval test: [s1, e1) and [s2, e2) share at
// least one instant. Intervals that only touch do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && e1.After(s2)
}

// HasConflict reports whether [start, end) in roomID overlaps any scheduled
// booking of the same room.
func HasConflict(roomID int64, start, end time.Time, existing []Booking) bool {
	return len(Conflicts(Booking{RoomID: roomID, Start: start, End: end}, existing)) > 0
}

// Conflicts returns the scheduled bookings in candidate's room that overlap
// it, in input order. A booking sharing candidate's non-zero ID is skipped so
// that an edited meeting never collides with its previous self.
func Conflicts(candidate Booking, existing []Booking) []Booking {
	var out []Booking
	for _, b := range existing {
		if b.Status != MeetingScheduled || b.RoomID != candidate.RoomID {
			continue
		}
		if candidate.ID != 0 && b.ID == candidate.ID {
			continue
		}
		if Overlaps(candidate.Start, candidate.End, b.Start, b.End) {
			out = append(out, b)
		}
	}
	return out
}

// SlotBooked reports whether the instant at lies inside any booked interval.
// The start of a booking is inside it, the end is not.
func SlotBooked(at time.Time, booked []Booking) bool {
	for _, b := range booked {
		if !at.Before(b.Start) && at.Before(b.End) {
			return true
		}
	}
	return false
}

// PickCrossesBooking reports whether any grid slot strictly between start and
// end falls inside a booked interval. It catches a pick that starts before a
// booking and ends after it even though neither endpoint is booked.
func PickCrossesBooking(start, end time.Time, booked []Booking) bool {
	for at := start.Add(SlotInterval); at.Before(end); at = at.Add(SlotInterval) {
		if SlotBooked(at, booked) {
			return true
		}
	}
	return false
}

// ValidatePick checks a slot-by-slot selection made on day against the
// bookings already shown for that day. It returns the chosen interval when
// the pick is acceptable.
func ValidatePick(day time.Time, startLabel, endLabel string, booked []Booking) (time.Time, time.Time, error) {
	start, err := SlotTime(day, startLabel)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := SlotTime(day, endLabel)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := CheckInterval(start, end); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if SlotBooked(start, booked) {
		return time.Time{}, time.Time{}, ErrSlotConflict
	}
	if PickCrossesBooking(start, end, booked) {
		return time.Time{}, time.Time{}, ErrSlotStraddle
	}
	for _, b := range booked {
		if Overlaps(start, end, b.Start, b.End) {
			return time.Time{}, time.Time{}, ErrSlotConflict
		}
	}
	return start, end, nil
}

// DaySlot is one grid slot of a day with its booking state.
type DaySlot struct {
	Label  string
	Start  time.Time
	Booked bool
}

// DayGrid lays the 48 slots of day out against the booked intervals.
func DayGrid(day time.Time, booked []Booking) []DaySlot {
	base := StartOfDay(day)
	labels := Slots()
	grid := make([]DaySlot, 0, len(labels))
	for i, label := range labels {
		at := base.Add(time.Duration(i) * SlotInterval)
		grid = append(grid, DaySlot{Label: label, Start: at, Booked: SlotBooked(at, booked)})
	}
	return grid
}
