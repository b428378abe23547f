package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/meeting-booking/internal/persistence"
)

const memberColumns = `id, name, email, mail_secret, department, position, created_at, updated_at`

// MemberRepository implements persistence.MemberRepository using SQLite
type MemberRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	now    func() time.Time
}

// NewMemberRepository creates a new SQLite member repository
func NewMemberRepository(pool *ConnectionPool) *MemberRepository {
	return &MemberRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

// CreateMember inserts a new member
func (r *MemberRepository) CreateMember(ctx context.Context, member persistence.Member) (persistence.Member, error) {
	member.Name = strings.TrimSpace(member.Name)
	member.Email = strings.TrimSpace(member.Email)
	if member.Name == "" || member.Email == "" {
		return persistence.Member{}, persistence.ErrConstraintViolation
	}

	now := r.now().UTC().Truncate(time.Second)
	member.CreatedAt = now
	member.UpdatedAt = now

	query := `
		INSERT INTO members (name, email, mail_secret, department, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.helper.Exec(ctx, query,
		member.Name,
		member.Email,
		nullBytes(member.MailSecret),
		nullString(member.Department),
		nullString(member.Position),
		formatTime(member.CreatedAt),
		formatTime(member.UpdatedAt),
	)
	if err != nil {
		return persistence.Member{}, r.mapper.MapError(err)
	}
	if member.ID, err = result.LastInsertId(); err != nil {
		return persistence.Member{}, fmt.Errorf("failed to read member id: %w", err)
	}
	return member, nil
}

// UpdateMember updates profile fields. The stored mail secret is replaced
// only when member carries a new one.
func (r *MemberRepository) UpdateMember(ctx context.Context, member persistence.Member) (persistence.Member, error) {
	if member.ID <= 0 {
		return persistence.Member{}, persistence.ErrNotFound
	}
	member.Name = strings.TrimSpace(member.Name)
	member.Email = strings.TrimSpace(member.Email)
	if member.Name == "" || member.Email == "" {
		return persistence.Member{}, persistence.ErrConstraintViolation
	}

	member.UpdatedAt = r.now().UTC().Truncate(time.Second)

	query := `
		UPDATE members
		SET name = ?, email = ?, mail_secret = COALESCE(?, mail_secret), department = ?, position = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		member.Name,
		member.Email,
		nullBytes(member.MailSecret),
		nullString(member.Department),
		nullString(member.Position),
		formatTime(member.UpdatedAt),
		member.ID,
	)
	if err != nil {
		return persistence.Member{}, r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.Member{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.Member{}, persistence.ErrNotFound
	}

	return r.GetMember(ctx, member.ID)
}

// GetMember retrieves a member by ID
func (r *MemberRepository) GetMember(ctx context.Context, id int64) (persistence.Member, error) {
	if id <= 0 {
		return persistence.Member{}, persistence.ErrNotFound
	}
	member, err := scanMember(r.helper.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id))
	if err != nil {
		return persistence.Member{}, r.mapper.MapError(err)
	}
	return member, nil
}

// GetMembers retrieves the members with the given IDs ordered by ID. Unknown
// IDs are silently absent from the result.
func (r *MemberRepository) GetMembers(ctx context.Context, ids []int64) ([]persistence.Member, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `SELECT ` + memberColumns + ` FROM members WHERE id IN (` + strings.Join(placeholders, ",") + `) ORDER BY id ASC`
	return r.queryMembers(ctx, query, args...)
}

// GetMemberByEmail retrieves a member by email, ignoring case
func (r *MemberRepository) GetMemberByEmail(ctx context.Context, email string) (persistence.Member, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return persistence.Member{}, persistence.ErrNotFound
	}
	member, err := scanMember(r.helper.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE email = ?`, email))
	if err != nil {
		return persistence.Member{}, r.mapper.MapError(err)
	}
	return member, nil
}

// ListMembers returns members ordered by name, optionally filtered by a
// substring of name or email
func (r *MemberRepository) ListMembers(ctx context.Context, filter persistence.MemberFilter) ([]persistence.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members`
	var args []any

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(search) + "%"
		query += ` WHERE name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\'`
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY name ASC, id ASC`

	return r.queryMembers(ctx, query, args...)
}

// DeleteMember removes a member. Members organizing meetings cannot be
// removed and yield ErrForeignKeyViolation.
func (r *MemberRepository) DeleteMember(ctx context.Context, id int64) error {
	if id <= 0 {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM members WHERE id = ?", id)
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

func (r *MemberRepository) queryMembers(ctx context.Context, query string, args ...any) ([]persistence.Member, error) {
	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var members []persistence.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return members, nil
}

func scanMember(row rowScanner) (persistence.Member, error) {
	var (
		member               persistence.Member
		secret               []byte
		department, position sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&member.ID,
		&member.Name,
		&member.Email,
		&secret,
		&department,
		&position,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Member{}, persistence.ErrNotFound
		}
		return persistence.Member{}, err
	}

	if len(secret) > 0 {
		member.MailSecret = secret
	}
	member.Department = stringPtr(department)
	member.Position = stringPtr(position)

	var err error
	if member.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Member{}, err
	}
	if member.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Member{}, err
	}
	return member, nil
}

// nullBytes maps an empty secret to NULL so that COALESCE keeps the old one.
func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
