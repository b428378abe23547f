package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/meeting-booking/internal/persistence"
)

const roomColumns = `id, room_number, name, capacity, facilities, status, created_at, updated_at`

// RoomRepository implements persistence.RoomRepository using SQLite
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewRoomRepository creates a new SQLite room repository
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

// CreateRoom inserts a new room and returns it with its assigned ID
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) (persistence.Room, error) {
	if err := validateRoom(room); err != nil {
		return persistence.Room{}, err
	}

	now := r.now().UTC().Truncate(time.Second)
	room.CreatedAt = now
	room.UpdatedAt = now
	if room.Status == "" {
		room.Status = persistence.RoomAvailable
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		created, err := r.insertRoom(ctx, tx, room)
		if err != nil {
			return err
		}
		room = created
		return nil
	})
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}
	return room, nil
}

// UpdateRoom updates an existing room
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) (persistence.Room, error) {
	if room.ID <= 0 {
		return persistence.Room{}, persistence.ErrNotFound
	}
	if err := validateRoom(room); err != nil {
		return persistence.Room{}, err
	}

	room.UpdatedAt = r.now().UTC().Truncate(time.Second)

	query := `
		UPDATE rooms
		SET room_number = ?, name = ?, capacity = ?, facilities = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		room.Number,
		room.Name,
		room.Capacity,
		nullString(room.Facilities),
		string(room.Status),
		formatTime(room.UpdatedAt),
		room.ID,
	)
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.Room{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.Room{}, persistence.ErrNotFound
	}

	return r.GetRoom(ctx, room.ID)
}

// GetRoom retrieves a room by ID
func (r *RoomRepository) GetRoom(ctx context.Context, id int64) (persistence.Room, error) {
	if id <= 0 {
		return persistence.Room{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}
	return room, nil
}

// GetRoomByNumber retrieves a room by its display number
func (r *RoomRepository) GetRoomByNumber(ctx context.Context, number int) (persistence.Room, error) {
	row := r.helper.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE room_number = ?`, number)
	room, err := scanRoom(row)
	if err != nil {
		return persistence.Room{}, r.mapper.MapError(err)
	}
	return room, nil
}

// ListRooms returns all rooms ordered by room number
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := r.helper.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY room_number ASC, id ASC`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return rooms, nil
}

// DeleteRoom removes a room. Rooms still referenced by meetings cannot be
// removed and yield ErrForeignKeyViolation.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM rooms WHERE id = ?", id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ReplaceRooms deletes the current catalog and inserts rooms in its place
func (r *RoomRepository) ReplaceRooms(ctx context.Context, rooms []persistence.Room) ([]persistence.Room, error) {
	for _, room := range rooms {
		if err := validateRoom(room); err != nil {
			return nil, err
		}
	}

	now := r.now().UTC().Truncate(time.Second)
	created := make([]persistence.Room, 0, len(rooms))

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var referenced int
		if err := r.helper.QueryRowTx(ctx, tx, "SELECT COUNT(*) FROM meetings").Scan(&referenced); err != nil {
			return err
		}
		if referenced > 0 {
			return fmt.Errorf("%w: %d meetings reference rooms", persistence.ErrForeignKeyViolation, referenced)
		}

		if _, err := r.helper.ExecTx(ctx, tx, "DELETE FROM rooms"); err != nil {
			return err
		}

		for _, room := range rooms {
			room.CreatedAt = now
			room.UpdatedAt = now
			if room.Status == "" {
				room.Status = persistence.RoomAvailable
			}
			inserted, err := r.insertRoom(ctx, tx, room)
			if err != nil {
				return err
			}
			created = append(created, inserted)
		}
		return nil
	})
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return created, nil
}

func (r *RoomRepository) insertRoom(ctx context.Context, tx *sql.Tx, room persistence.Room) (persistence.Room, error) {
	query := `
		INSERT INTO rooms (room_number, name, capacity, facilities, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.helper.ExecTx(ctx, tx, query,
		room.Number,
		room.Name,
		room.Capacity,
		nullString(room.Facilities),
		string(room.Status),
		formatTime(room.CreatedAt),
		formatTime(room.UpdatedAt),
	)
	if err != nil {
		return persistence.Room{}, err
	}
	if room.ID, err = result.LastInsertId(); err != nil {
		return persistence.Room{}, fmt.Errorf("failed to read room id: %w", err)
	}
	return room, nil
}

func validateRoom(room persistence.Room) error {
	if room.Number <= 0 || room.Capacity <= 0 || room.Name == "" {
		return persistence.ErrConstraintViolation
	}
	switch room.Status {
	case "", persistence.RoomAvailable, persistence.RoomMaintenance:
		return nil
	default:
		return persistence.ErrConstraintViolation
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (persistence.Room, error) {
	var (
		room                 persistence.Room
		facilities           sql.NullString
		status               string
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&room.ID,
		&room.Number,
		&room.Name,
		&room.Capacity,
		&facilities,
		&status,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Room{}, persistence.ErrNotFound
		}
		return persistence.Room{}, err
	}

	room.Facilities = stringPtr(facilities)
	room.Status = persistence.RoomStatus(status)

	var err error
	if room.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
