package coordination

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrLockTimeout is returned when a room lock cannot be obtained before the
// context is done.
var ErrLockTimeout = errors.New("coordination: timed out waiting for room lock")

// Locker grants exclusive access to a room for the duration of a
// check-then-write sequence. release must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, roomID int64) (release func(), err error)
}

// LocalLocker is a per-room mutex valid within a single process.
type LocalLocker struct {
	mu    sync.Mutex
	rooms map[int64]*roomSlot
}

type roomSlot struct {
	ch      chan struct{}
	waiters int
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{rooms: make(map[int64]*roomSlot)}
}

// Acquire blocks until the room is free or ctx is done.
func (l *LocalLocker) Acquire(ctx context.Context, roomID int64) (func(), error) {
	l.mu.Lock()
	slot, ok := l.rooms[roomID]
	if !ok {
		slot = &roomSlot{ch: make(chan struct{}, 1)}
		l.rooms[roomID] = slot
	}
	slot.waiters++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.leave(roomID, slot)
		return nil, fmt.Errorf("%w: room %d: %v", ErrLockTimeout, roomID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.leave(roomID, slot)
		})
	}, nil
}

// leave drops the slot once nobody holds or waits for it.
func (l *LocalLocker) leave(roomID int64, slot *roomSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.waiters--
	if slot.waiters == 0 {
		delete(l.rooms, roomID)
	}
}
