package scheduler

import "errors"

var (
	// ErrIntervalOrder reports an interval whose start is not before its end.
	ErrIntervalOrder = errors.New("scheduler: start must be before end")
	// ErrIntervalAlignment reports a start or end off the 30-minute grid.
	ErrIntervalAlignment = errors.New("scheduler: times must be aligned to the 30-minute grid")
	// ErrIntervalDuration reports a duration that is not a positive multiple of 30 minutes.
	ErrIntervalDuration = errors.New("scheduler: duration must be a positive multiple of 30 minutes")
	// ErrInvalidSlot reports a slot label that is not part of the grid.
	ErrInvalidSlot = errors.New("scheduler: invalid slot label")
	// ErrSlotConflict reports a slot pick overlapping an existing booking.
	ErrSlotConflict = errors.New("scheduler: time range overlaps an existing booking")
	// ErrSlotStraddle reports a slot pick that spans an existing booking.
	ErrSlotStraddle = errors.New("scheduler: time range spans an existing booking")
)
