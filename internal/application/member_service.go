package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/example/meeting-booking/internal/persistence"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// MemberRepository captures the persistence operations needed by the service.
type MemberRepository interface {
	CreateMember(ctx context.Context, member persistence.Member) (persistence.Member, error)
	UpdateMember(ctx context.Context, member persistence.Member) (persistence.Member, error)
	GetMember(ctx context.Context, id int64) (persistence.Member, error)
	GetMembers(ctx context.Context, ids []int64) ([]persistence.Member, error)
	ListMembers(ctx context.Context, filter persistence.MemberFilter) ([]persistence.Member, error)
	DeleteMember(ctx context.Context, id int64) error
}

// CredentialSealer protects mail credentials at rest.
type CredentialSealer interface {
	Seal(plaintext string) ([]byte, error)
	Open(sealed []byte) (string, error)
}

// MemberService manages the member directory.
type MemberService struct {
	members MemberRepository
	sealer  CredentialSealer
	now     func() time.Time
	logger  *slog.Logger
}

// NewMemberService constructs a member service with the provided dependencies.
func NewMemberService(members MemberRepository, sealer CredentialSealer, now func() time.Time) *MemberService {
	return NewMemberServiceWithLogger(members, sealer, now, nil)
}

// NewMemberServiceWithLogger constructs a member service with a specified logger.
func NewMemberServiceWithLogger(members MemberRepository, sealer CredentialSealer, now func() time.Time, logger *slog.Logger) *MemberService {
	if now == nil {
		now = time.Now
	}
	return &MemberService{members: members, sealer: sealer, now: now, logger: defaultLogger(logger)}
}

func (s *MemberService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MemberService", operation, attrs...)
}

// CreateMember validates input and registers a new member.
func (s *MemberService) CreateMember(ctx context.Context, input MemberInput) (member Member, err error) {
	if s == nil || s.members == nil {
		err = fmt.Errorf("member repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateMember")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create member", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("member_id", member.ID).InfoContext(ctx, "member created")
	}()

	vErr := validateMemberInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	model := persistence.Member{
		Name:       strings.TrimSpace(input.Name),
		Email:      strings.TrimSpace(input.Email),
		Department: normalizeOptionalString(input.Department),
		Position:   normalizeOptionalString(input.Position),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if input.MailSecret != nil {
		model.MailSecret, err = s.seal(*input.MailSecret)
		if err != nil {
			return
		}
	}

	var persisted persistence.Member
	persisted, err = s.members.CreateMember(ctx, model)
	if err != nil {
		err = mapMemberRepoError(err)
		return
	}

	member = toMember(persisted)
	return
}

// UpdateMember validates input and updates an existing member. The stored
// mail credential is replaced only when input carries a new one.
func (s *MemberService) UpdateMember(ctx context.Context, memberID int64, input MemberInput) (member Member, err error) {
	if s == nil || s.members == nil {
		err = fmt.Errorf("member repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateMember", "member_id", memberID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update member", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "member updated")
	}()

	var existing persistence.Member
	existing, err = s.members.GetMember(ctx, memberID)
	if err != nil {
		err = mapMemberRepoError(err)
		return
	}

	vErr := validateMemberInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Name = strings.TrimSpace(input.Name)
	updated.Email = strings.TrimSpace(input.Email)
	updated.Department = normalizeOptionalString(input.Department)
	updated.Position = normalizeOptionalString(input.Position)
	updated.UpdatedAt = s.now()
	// Storage keeps the current secret when none is supplied.
	updated.MailSecret = nil
	if input.MailSecret != nil {
		updated.MailSecret, err = s.seal(*input.MailSecret)
		if err != nil {
			return
		}
	}

	var persisted persistence.Member
	persisted, err = s.members.UpdateMember(ctx, updated)
	if err != nil {
		err = mapMemberRepoError(err)
		return
	}

	member = toMember(persisted)
	return
}

// GetMember returns a single member.
func (s *MemberService) GetMember(ctx context.Context, memberID int64) (Member, error) {
	if s == nil || s.members == nil {
		return Member{}, fmt.Errorf("member repository not configured")
	}
	model, err := s.members.GetMember(ctx, memberID)
	if err != nil {
		err = mapMemberRepoError(err)
		if !errors.Is(err, ErrNotFound) {
			s.loggerWith(ctx, "GetMember", "member_id", memberID).ErrorContext(ctx, "failed to get member", "error", err, "error_kind", ErrorKind(err))
		}
		return Member{}, err
	}
	return toMember(model), nil
}

// ListMembers returns members whose name or email contains search, ordered by name.
func (s *MemberService) ListMembers(ctx context.Context, search string) (members []Member, err error) {
	if s == nil || s.members == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListMembers")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list members", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(members)).InfoContext(ctx, "members listed")
	}()

	var models []persistence.Member
	models, err = s.members.ListMembers(ctx, persistence.MemberFilter{Search: strings.TrimSpace(search)})
	if err != nil {
		err = mapMemberRepoError(err)
		return
	}

	members = make([]Member, 0, len(models))
	for _, model := range models {
		members = append(members, toMember(model))
	}
	return
}

// DeleteMember removes a member that no meeting references.
func (s *MemberService) DeleteMember(ctx context.Context, memberID int64) error {
	if s == nil || s.members == nil {
		return fmt.Errorf("member repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteMember", "member_id", memberID)

	if err := s.members.DeleteMember(ctx, memberID); err != nil {
		err = mapMemberRepoError(err)
		logger.ErrorContext(ctx, "failed to delete member", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "member deleted")
	return nil
}

func (s *MemberService) seal(secret string) ([]byte, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, nil
	}
	if s.sealer == nil {
		return nil, fmt.Errorf("credential sealer not configured")
	}
	sealed, err := s.sealer.Seal(secret)
	if err != nil {
		return nil, fmt.Errorf("seal mail credential: %w", err)
	}
	return sealed, nil
}

func validateMemberInput(input MemberInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	email := strings.TrimSpace(input.Email)
	switch {
	case email == "":
		vErr.add("email", "email is required")
	case !emailPattern.MatchString(email):
		vErr.add("email", "email format is invalid")
	}

	return vErr
}

func mapMemberRepoError(err error) error {
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
		return newValidationError("member", "member violates a storage constraint")
	}
	return err
}
