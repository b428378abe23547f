// Package scheduler holds the room reservation rules shared by the booking
// path and the interactive slot picker: the 30-minute time grid, interval
// validation, conflict detection, display status resolution, check-in
// evaluation and the invitation credential policy.
//
// Every function in this package is pure. Callers load records from storage
// and pass them in; nothing here performs I/O or reads the wall clock.
package scheduler
