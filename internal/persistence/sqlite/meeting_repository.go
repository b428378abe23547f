package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/example/meeting-booking/internal/persistence"
	"github.com/example/meeting-booking/internal/scheduler"
)

const meetingColumns = `id, room_id, title, start_time, end_time, organizer_id, description, status, created_at, updated_at`

// MeetingRepository implements persistence.MeetingRepository using SQLite
type MeetingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
}

// NewMeetingRepository creates a new SQLite meeting repository
func NewMeetingRepository(pool *ConnectionPool) *MeetingRepository {
	return &MeetingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		now:    time.Now,
	}
}

// CreateMeeting inserts a meeting and its participation rows in one
// transaction. The overlap check runs inside the same transaction as the
// insert; the schema trigger backs it up for writers outside this type.
func (r *MeetingRepository) CreateMeeting(ctx context.Context, meeting persistence.Meeting, participantIDs []int64) (persistence.Meeting, error) {
	if err := validateMeeting(meeting); err != nil {
		return persistence.Meeting{}, err
	}

	now := r.now().UTC().Truncate(time.Second)
	meeting.Start = meeting.Start.UTC()
	meeting.End = meeting.End.UTC()
	meeting.Status = scheduler.MeetingScheduled
	meeting.CreatedAt = now
	meeting.UpdatedAt = now

	err := r.write(ctx, func(tx *sql.Tx) error {
		if err := r.ensureNoOverlap(ctx, tx, meeting); err != nil {
			return err
		}

		query := `
			INSERT INTO meetings (room_id, title, start_time, end_time, organizer_id, description, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		result, err := r.helper.ExecTx(ctx, tx, query,
			meeting.RoomID,
			meeting.Title,
			formatTime(meeting.Start),
			formatTime(meeting.End),
			meeting.OrganizerID,
			nullString(meeting.Description),
			string(meeting.Status),
			formatTime(meeting.CreatedAt),
			formatTime(meeting.UpdatedAt),
		)
		if err != nil {
			return err
		}
		if meeting.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read meeting id: %w", err)
		}

		if err := r.insertParticipants(ctx, tx, meeting.ID, participantIDs, now); err != nil {
			return err
		}
		meeting.Participants, err = r.loadParticipants(ctx, tx, meeting.ID)
		return err
	})
	if err != nil {
		return persistence.Meeting{}, r.mapper.MapError(err)
	}
	return meeting, nil
}

// UpdateMeeting rewrites a scheduled meeting and reconciles its participants.
// Participants who already checked in are kept even when absent from
// participantIDs so that attendance history survives edits.
func (r *MeetingRepository) UpdateMeeting(ctx context.Context, meeting persistence.Meeting, participantIDs []int64) (persistence.Meeting, error) {
	if meeting.ID <= 0 {
		return persistence.Meeting{}, persistence.ErrNotFound
	}
	if err := validateMeeting(meeting); err != nil {
		return persistence.Meeting{}, err
	}

	now := r.now().UTC().Truncate(time.Second)
	meeting.Start = meeting.Start.UTC()
	meeting.End = meeting.End.UTC()
	meeting.UpdatedAt = now

	err := r.write(ctx, func(tx *sql.Tx) error {
		current, err := scanMeeting(r.helper.QueryRowTx(ctx, tx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, meeting.ID))
		if err != nil {
			return err
		}
		if current.Status != scheduler.MeetingScheduled {
			return fmt.Errorf("%w: meeting %d is %s", persistence.ErrStatusChanged, meeting.ID, current.Status)
		}

		meeting.OrganizerID = current.OrganizerID
		meeting.Status = current.Status
		meeting.CreatedAt = current.CreatedAt

		if err := r.ensureNoOverlap(ctx, tx, meeting); err != nil {
			return err
		}

		query := `
			UPDATE meetings
			SET room_id = ?, title = ?, start_time = ?, end_time = ?, description = ?, updated_at = ?
			WHERE id = ? AND status = ?
		`
		if _, err := r.helper.ExecTx(ctx, tx, query,
			meeting.RoomID,
			meeting.Title,
			formatTime(meeting.Start),
			formatTime(meeting.End),
			nullString(meeting.Description),
			formatTime(meeting.UpdatedAt),
			meeting.ID,
			string(scheduler.MeetingScheduled),
		); err != nil {
			return err
		}

		if participantIDs != nil {
			if err := r.reconcileParticipants(ctx, tx, meeting.ID, participantIDs, now); err != nil {
				return err
			}
		}
		meeting.Participants, err = r.loadParticipants(ctx, tx, meeting.ID)
		return err
	})
	if err != nil {
		return persistence.Meeting{}, r.mapper.MapError(err)
	}
	return meeting, nil
}

// GetMeeting retrieves a meeting with its participants and check-ins
func (r *MeetingRepository) GetMeeting(ctx context.Context, id int64) (persistence.Meeting, error) {
	if id <= 0 {
		return persistence.Meeting{}, persistence.ErrNotFound
	}

	var meeting persistence.Meeting
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		meeting, err = scanMeeting(r.helper.QueryRowTx(ctx, tx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id))
		if err != nil {
			return err
		}
		if meeting.Participants, err = r.loadParticipants(ctx, tx, id); err != nil {
			return err
		}
		rows, err := r.helper.QueryTx(ctx, tx, `SELECT `+checkInColumns+` FROM check_ins WHERE meeting_id = ? ORDER BY check_in_time DESC, id DESC`, id)
		if err != nil {
			return err
		}
		meeting.CheckIns, err = collectCheckIns(rows)
		return err
	})
	if err != nil {
		return persistence.Meeting{}, r.mapper.MapError(err)
	}
	return meeting, nil
}

// ListMeetings lists meetings matching filter ordered by start time
func (r *MeetingRepository) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.RoomID != nil {
		conditions = append(conditions, "room_id = ?")
		args = append(args, *filter.RoomID)
	}
	if filter.From != nil {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "start_time < ?")
		args = append(args, formatTime(*filter.To))
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}

	query := `SELECT ` + meetingColumns + ` FROM meetings`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY start_time ASC, id ASC"

	return r.queryMeetings(ctx, query, args...)
}

// ListScheduledInRange returns the scheduled meetings of a room that overlap
// the half-open interval [from, to)
func (r *MeetingRepository) ListScheduledInRange(ctx context.Context, roomID int64, from, to time.Time) ([]persistence.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings
		WHERE room_id = ? AND status = ? AND start_time < ? AND end_time > ?
		ORDER BY start_time ASC, id ASC`
	return r.queryMeetings(ctx, query, roomID, string(scheduler.MeetingScheduled), formatTime(to), formatTime(from))
}

// SetMeetingStatus moves a meeting from one status to another
func (r *MeetingRepository) SetMeetingStatus(ctx context.Context, id int64, from, to scheduler.MeetingStatus, at time.Time) (persistence.Meeting, error) {
	if id <= 0 {
		return persistence.Meeting{}, persistence.ErrNotFound
	}
	if !to.Valid() {
		return persistence.Meeting{}, persistence.ErrConstraintViolation
	}

	var meeting persistence.Meeting
	err := r.write(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(ctx, tx,
			"UPDATE meetings SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
			string(to), formatTime(at), id, string(from))
		if err != nil {
			return err
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		meeting, err = scanMeeting(r.helper.QueryRowTx(ctx, tx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id))
		if err != nil {
			return err
		}
		if rowsAffected == 0 {
			return fmt.Errorf("%w: meeting %d is %s", persistence.ErrStatusChanged, id, meeting.Status)
		}
		return nil
	})
	if err != nil {
		return persistence.Meeting{}, r.mapper.MapError(err)
	}
	return meeting, nil
}

// ListEndedScheduled returns scheduled meetings whose end is at or before before
func (r *MeetingRepository) ListEndedScheduled(ctx context.Context, before time.Time) ([]persistence.Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings
		WHERE status = ? AND end_time <= ?
		ORDER BY end_time ASC, id ASC`
	return r.queryMeetings(ctx, query, string(scheduler.MeetingScheduled), formatTime(before))
}

func (r *MeetingRepository) ensureNoOverlap(ctx context.Context, tx *sql.Tx, meeting persistence.Meeting) error {
	query := `
		SELECT id FROM meetings
		WHERE room_id = ? AND status = ? AND id <> ? AND start_time < ? AND end_time > ?
		LIMIT 1
	`
	var clash int64
	err := r.helper.QueryRowTx(ctx, tx, query,
		meeting.RoomID,
		string(scheduler.MeetingScheduled),
		meeting.ID,
		formatTime(meeting.End),
		formatTime(meeting.Start),
	).Scan(&clash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return err
	default:
		return fmt.Errorf("%w: meeting %d", persistence.ErrOverlap, clash)
	}
}

func (r *MeetingRepository) insertParticipants(ctx context.Context, tx *sql.Tx, meetingID int64, memberIDs []int64, at time.Time) error {
	for _, memberID := range uniqueIDs(memberIDs) {
		if _, err := r.helper.ExecTx(ctx, tx,
			`INSERT OR IGNORE INTO meeting_participants (meeting_id, member_id, status, created_at) VALUES (?, ?, ?, ?)`,
			meetingID, memberID, string(persistence.ParticipantInvited), formatTime(at)); err != nil {
			return err
		}
	}
	return nil
}

func (r *MeetingRepository) reconcileParticipants(ctx context.Context, tx *sql.Tx, meetingID int64, memberIDs []int64, at time.Time) error {
	keep := uniqueIDs(memberIDs)

	query := `
		DELETE FROM meeting_participants
		WHERE meeting_id = ?
		  AND member_id NOT IN (SELECT member_id FROM check_ins WHERE meeting_id = ?)`
	args := []any{meetingID, meetingID}
	if len(keep) > 0 {
		placeholders := make([]string, len(keep))
		for i, id := range keep {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += ` AND member_id NOT IN (` + strings.Join(placeholders, ",") + `)`
	}
	if _, err := r.helper.ExecTx(ctx, tx, query, args...); err != nil {
		return err
	}
	return r.insertParticipants(ctx, tx, meetingID, keep, at)
}

func (r *MeetingRepository) loadParticipants(ctx context.Context, tx *sql.Tx, meetingID int64) ([]persistence.Participant, error) {
	rows, err := r.helper.QueryTx(ctx, tx,
		`SELECT meeting_id, member_id, status, created_at FROM meeting_participants WHERE meeting_id = ? ORDER BY member_id ASC`,
		meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []persistence.Participant
	for rows.Next() {
		var (
			p                 persistence.Participant
			status, createdAt string
		)
		if err := rows.Scan(&p.MeetingID, &p.MemberID, &status, &createdAt); err != nil {
			return nil, err
		}
		p.Status = persistence.ParticipantStatus(status)
		if p.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func (r *MeetingRepository) queryMeetings(ctx context.Context, query string, args ...any) ([]persistence.Meeting, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var meetings []persistence.Meeting
	for rows.Next() {
		meeting, err := scanMeeting(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		meetings = append(meetings, meeting)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return meetings, nil
}

func validateMeeting(meeting persistence.Meeting) error {
	if meeting.RoomID <= 0 || meeting.OrganizerID <= 0 || strings.TrimSpace(meeting.Title) == "" {
		return persistence.ErrConstraintViolation
	}
	if !meeting.End.After(meeting.Start) {
		return persistence.ErrConstraintViolation
	}
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func scanMeeting(row rowScanner) (persistence.Meeting, error) {
	var (
		meeting                                  persistence.Meeting
		description                              sql.NullString
		start, end, status, createdAt, updatedAt string
	)
	if err := row.Scan(
		&meeting.ID,
		&meeting.RoomID,
		&meeting.Title,
		&start,
		&end,
		&meeting.OrganizerID,
		&description,
		&status,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Meeting{}, persistence.ErrNotFound
		}
		return persistence.Meeting{}, err
	}

	meeting.Description = stringPtr(description)
	meeting.Status = scheduler.MeetingStatus(status)

	var err error
	if meeting.Start, err = parseTime("start_time", start); err != nil {
		return persistence.Meeting{}, err
	}
	if meeting.End, err = parseTime("end_time", end); err != nil {
		return persistence.Meeting{}, err
	}
	if meeting.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Meeting{}, err
	}
	if meeting.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Meeting{}, err
	}
	return meeting, nil
}

// write runs fn in a transaction, retrying when the database is busy.
func (r *MeetingRepository) write(ctx context.Context, fn TransactionFunc) error {
	return r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, fn)
	})
}
