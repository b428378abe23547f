package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/meeting-booking/internal/persistence"
)

// RoomRepository captures the persistence operations needed by the service.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room persistence.Room) (persistence.Room, error)
	UpdateRoom(ctx context.Context, room persistence.Room) (persistence.Room, error)
	GetRoom(ctx context.Context, id int64) (persistence.Room, error)
	ListRooms(ctx context.Context) ([]persistence.Room, error)
	DeleteRoom(ctx context.Context, id int64) error
	ReplaceRooms(ctx context.Context, rooms []persistence.Room) ([]persistence.Room, error)
}

// defaultRoomCapacities seeds rooms 1..8.
var defaultRoomCapacities = []int{10, 15, 20, 25, 30, 35, 40, 50}

// RoomService orchestrates validation and persistence for rooms.
type RoomService struct {
	rooms  RoomRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomRepository, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomRepository, now func() time.Time, logger *slog.Logger) *RoomService {
	if now == nil {
		now = time.Now
	}
	return &RoomService{rooms: rooms, now: now, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates input and persists a new room.
func (s *RoomService) CreateRoom(ctx context.Context, input RoomInput) (room Room, err error) {
	if s == nil || s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom", "room_number", input.Number)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	vErr := validateRoomInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	model := persistence.Room{
		Number:     input.Number,
		Name:       strings.TrimSpace(input.Name),
		Capacity:   input.Capacity,
		Facilities: normalizeOptionalString(input.Facilities),
		Status:     roomStatusOrDefault(input.Status),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var persisted persistence.Room
	persisted, err = s.rooms.CreateRoom(ctx, model)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	room = toRoom(persisted)
	return
}

// UpdateRoom validates input and updates an existing room.
func (s *RoomService) UpdateRoom(ctx context.Context, roomID int64, input RoomInput) (room Room, err error) {
	if s == nil || s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom", "room_id", roomID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room updated")
	}()

	var existing persistence.Room
	existing, err = s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	vErr := validateRoomInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Number = input.Number
	updated.Name = strings.TrimSpace(input.Name)
	updated.Capacity = input.Capacity
	updated.Facilities = normalizeOptionalString(input.Facilities)
	updated.Status = roomStatusOrDefault(input.Status)
	updated.UpdatedAt = s.now()

	var persisted persistence.Room
	persisted, err = s.rooms.UpdateRoom(ctx, updated)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	room = toRoom(persisted)
	return
}

// GetRoom returns a single room.
func (s *RoomService) GetRoom(ctx context.Context, roomID int64) (Room, error) {
	if s == nil || s.rooms == nil {
		return Room{}, fmt.Errorf("room repository not configured")
	}
	model, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		err = mapRoomRepoError(err)
		if !errors.Is(err, ErrNotFound) {
			s.loggerWith(ctx, "GetRoom", "room_id", roomID).ErrorContext(ctx, "failed to get room", "error", err, "error_kind", ErrorKind(err))
		}
		return Room{}, err
	}
	return toRoom(model), nil
}

// ListRooms returns the catalog ordered by room number.
func (s *RoomService) ListRooms(ctx context.Context) (rooms []Room, err error) {
	if s == nil || s.rooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRooms")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).InfoContext(ctx, "rooms listed")
	}()

	var models []persistence.Room
	models, err = s.rooms.ListRooms(ctx)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	rooms = make([]Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toRoom(model))
	}
	return
}

// DeleteRoom removes a room that no meeting references.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID int64) error {
	if s == nil || s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteRoom", "room_id", roomID)

	if err := s.rooms.DeleteRoom(ctx, roomID); err != nil {
		err = mapRoomRepoError(err)
		logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "room deleted")
	return nil
}

// SeedDefaultRooms replaces the catalog with the eight standard rooms. It is
// refused with ErrInUse once any meeting has been booked.
func (s *RoomService) SeedDefaultRooms(ctx context.Context) (rooms []Room, err error) {
	if s == nil || s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "SeedDefaultRooms")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to seed rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).InfoContext(ctx, "default rooms seeded")
	}()

	now := s.now()
	seed := make([]persistence.Room, 0, len(defaultRoomCapacities))
	for i, capacity := range defaultRoomCapacities {
		number := i + 1
		seed = append(seed, persistence.Room{
			Number:    number,
			Name:      fmt.Sprintf("Meeting Room %d", number),
			Capacity:  capacity,
			Status:    persistence.RoomAvailable,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	var models []persistence.Room
	models, err = s.rooms.ReplaceRooms(ctx, seed)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	rooms = make([]Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toRoom(model))
	}
	return
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.Number <= 0 {
		vErr.add("room_number", "room number must be positive")
	}
	if input.Capacity <= 0 {
		vErr.add("capacity", "capacity must be positive")
	}
	switch input.Status {
	case "", persistence.RoomAvailable, persistence.RoomMaintenance:
	default:
		vErr.add("status", "status must be available or maintenance")
	}

	return vErr
}

func roomStatusOrDefault(status persistence.RoomStatus) persistence.RoomStatus {
	if status == "" {
		return persistence.RoomAvailable
	}
	return status
}

func mapRoomRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrInUse
	case errors.Is(err, persistence.ErrConstraintViolation):
		return newValidationError("room", "room violates a storage constraint")
	}
	return err
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
