package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/meeting-booking/internal/persistence"
	"github.com/example/meeting-booking/internal/scheduler"
)

const checkInColumns = `id, meeting_id, member_id, check_in_time, status, created_at`

// CheckInRepository implements persistence.CheckInRepository using SQLite
type CheckInRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
	now    func() time.Time
}

// NewCheckInRepository creates a new SQLite check-in repository
func NewCheckInRepository(pool *ConnectionPool) *CheckInRepository {
	return &CheckInRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
		now:    time.Now,
	}
}

// CreateCheckIn records attendance for a participant. The composite foreign
// key rejects non-participants and the unique key rejects a second check-in.
func (r *CheckInRepository) CreateCheckIn(ctx context.Context, checkIn persistence.CheckIn) (persistence.CheckIn, error) {
	if checkIn.MeetingID <= 0 || checkIn.MemberID <= 0 || !checkIn.Status.Valid() {
		return persistence.CheckIn{}, persistence.ErrConstraintViolation
	}

	checkIn.CheckedInAt = checkIn.CheckedInAt.UTC().Truncate(time.Second)
	checkIn.CreatedAt = r.now().UTC().Truncate(time.Second)

	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			return r.insertCheckIn(ctx, tx, &checkIn)
		})
	})
	if err != nil {
		return persistence.CheckIn{}, r.mapper.MapError(err)
	}
	return checkIn, nil
}

func (r *CheckInRepository) insertCheckIn(ctx context.Context, tx *sql.Tx, checkIn *persistence.CheckIn) error {
	var one int
	err := r.helper.QueryRowTx(ctx, tx,
		`SELECT 1 FROM meeting_participants WHERE meeting_id = ? AND member_id = ?`,
		checkIn.MeetingID, checkIn.MemberID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: member %d is not a participant of meeting %d",
			persistence.ErrForeignKeyViolation, checkIn.MemberID, checkIn.MeetingID)
	}
	if err != nil {
		return err
	}

	result, err := r.helper.ExecTx(ctx, tx,
		`INSERT INTO check_ins (meeting_id, member_id, check_in_time, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		checkIn.MeetingID,
		checkIn.MemberID,
		formatTime(checkIn.CheckedInAt),
		string(checkIn.Status),
		formatTime(checkIn.CreatedAt),
	)
	if err != nil {
		return err
	}
	checkIn.ID, err = result.LastInsertId()
	return err
}

// ListCheckIns returns check-ins newest first, optionally for one meeting
func (r *CheckInRepository) ListCheckIns(ctx context.Context, meetingID *int64) ([]persistence.CheckIn, error) {
	query := `SELECT ` + checkInColumns + ` FROM check_ins`
	var args []any
	if meetingID != nil {
		query += ` WHERE meeting_id = ?`
		args = append(args, *meetingID)
	}
	query += ` ORDER BY check_in_time DESC, id DESC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	checkIns, err := collectCheckIns(rows)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	return checkIns, nil
}

// collectCheckIns scans and closes rows.
func collectCheckIns(rows *sql.Rows) ([]persistence.CheckIn, error) {
	defer rows.Close()

	var checkIns []persistence.CheckIn
	for rows.Next() {
		var (
			c                          persistence.CheckIn
			checkedIn, status, created string
		)
		if err := rows.Scan(&c.ID, &c.MeetingID, &c.MemberID, &checkedIn, &status, &created); err != nil {
			return nil, err
		}
		c.Status = scheduler.CheckInStatus(status)

		var err error
		if c.CheckedInAt, err = parseTime("check_in_time", checkedIn); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = parseTime("created_at", created); err != nil {
			return nil, err
		}
		checkIns = append(checkIns, c)
	}
	return checkIns, rows.Err()
}
