package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/todolist/internal"
	userDatamodel "github.com/frahmantamala/todolist/internal/core/datamodel/user"
	"github.com/frahmantamala/todolist/internal/core/events"
	"github.com/frahmantamala/todolist/internal/credential"
	"github.com/frahmantamala/todolist/internal/role"
)

type RepositoryAPI interface {
	Create(ctx context.Context, u *userDatamodel.User) error
	Update(ctx context.Context, u *userDatamodel.User) error
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	GetByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
	UpdateLastSeen(ctx context.Context, id int64, seen time.Time) error
}

type RoleProvider interface {
	GetAll(ctx context.Context) ([]*role.Role, error)
	GetByID(ctx context.Context, id int64) (*role.Role, error)
	GetByName(ctx context.Context, name string) (*role.Role, error)
}

// ConfirmationTokens is the part of the token service account confirmation
// needs.
type ConfirmationTokens interface {
	IssueConfirmation(userID int64, ttl time.Duration) (string, error)
	RedeemConfirmation(token string) (int64, error)
}

type Config struct {
	AdminEmail      string
	ConfirmationTTL time.Duration
}

type Service struct {
	repo      RepositoryAPI
	roles     RoleProvider
	hasher    credential.Hasher
	tokens    ConfirmationTokens
	publisher events.Publisher
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryAPI, roles RoleProvider, hasher credential.Hasher, tokens ConfirmationTokens, publisher events.Publisher, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		roles:     roles,
		hasher:    hasher,
		tokens:    tokens,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an unconfirmed account and returns it together with a
// confirmation token for it.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*User, string, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}

	existing, err := s.repo.GetByEmail(ctx, dto.Email)
	if err != nil {
		return nil, "", internal.NewInternalError("failed to check email", err)
	}
	if existing != nil {
		return nil, "", internal.ErrEmailTaken
	}

	existing, err = s.repo.GetByUsername(ctx, dto.Username)
	if err != nil {
		return nil, "", internal.NewInternalError("failed to check username", err)
	}
	if existing != nil {
		return nil, "", internal.ErrUsernameTaken
	}

	roles, err := s.roles.GetAll(ctx)
	if err != nil {
		return nil, "", internal.NewInternalError("failed to load roles", err)
	}
	r := ResolveRole(dto.Email, RoleConfig{AdminEmail: s.cfg.AdminEmail}, roles)
	if r == nil {
		s.logger.Error("no role available for new account; run role bootstrap first")
		return nil, "", internal.ErrRoleNotFound
	}

	now := s.now()
	u := &User{
		Email:       dto.Email,
		Username:    dto.Username,
		MemberSince: now,
		LastSeen:    now,
	}
	u.SetRole(r)
	if err := u.SetPassword(s.hasher, dto.Password); err != nil {
		return nil, "", internal.NewInternalError("failed to hash password", err)
	}

	dm := ToDataModel(u)
	if err := s.repo.Create(ctx, dm); err != nil {
		return nil, "", internal.NewInternalError("failed to create user", err)
	}
	u.ID = dm.ID

	token, err := s.tokens.IssueConfirmation(u.ID, s.cfg.ConfirmationTTL)
	if err != nil {
		return nil, "", internal.NewInternalError("failed to issue confirmation token", err)
	}

	s.logger.Info("user registered", "user_id", u.ID, "username", u.Username, "role", r.Name)
	s.publish(ctx, events.NewUserRegisteredEvent(u.ID, u.Email, u.Username, token))

	return u, token, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	if row == nil {
		return nil, internal.ErrUserNotFound
	}
	return s.withRole(ctx, FromDataModel(row))
}

// Authenticate checks an email/password pair. Every failure, unknown email
// included, is reported as ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	row, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if row == nil {
		return nil, internal.ErrInvalidCredentials
	}

	u := FromDataModel(row)
	if !u.VerifyPassword(s.hasher, password) {
		s.logger.Warn("password verification failed", "user_id", u.ID)
		return nil, internal.ErrInvalidCredentials
	}
	s.upgradePassword(ctx, u, password)
	return s.withRole(ctx, u)
}

// upgradePassword rehashes with the current hasher when the stored hash is
// outdated. Failures are logged; the login itself already succeeded.
func (s *Service) upgradePassword(ctx context.Context, u *User, password string) {
	rehasher, ok := s.hasher.(credential.Rehasher)
	if !ok || !rehasher.NeedsRehash(u.PasswordHash) {
		return
	}

	previous := u.PasswordHash
	if err := u.SetPassword(s.hasher, password); err != nil {
		s.logger.Error("failed to rehash password", "user_id", u.ID, "error", err)
		return
	}
	if err := s.repo.Update(ctx, ToDataModel(u)); err != nil {
		u.PasswordHash = previous
		s.logger.Error("failed to store rehashed password", "user_id", u.ID, "error", err)
		return
	}
	s.logger.Info("password hash upgraded", "user_id", u.ID)
}

// Confirm redeems token for u. It reports false, without error, when the
// token is invalid, expired, or was issued for another account.
func (s *Service) Confirm(ctx context.Context, u *User, token string) (bool, error) {
	id, err := s.tokens.RedeemConfirmation(token)
	if err != nil || id != u.ID {
		s.logger.Warn("confirmation token rejected", "user_id", u.ID)
		return false, nil
	}
	if u.Confirmed {
		return true, nil
	}

	u.MarkConfirmed()
	if err := s.repo.Update(ctx, ToDataModel(u)); err != nil {
		return false, internal.NewInternalError("failed to confirm user", err)
	}

	s.logger.Info("user confirmed", "user_id", u.ID)
	s.publish(ctx, events.NewUserConfirmedEvent(u.ID))
	return true, nil
}

func (s *Service) ResendConfirmation(ctx context.Context, u *User) (string, error) {
	token, err := s.tokens.IssueConfirmation(u.ID, s.cfg.ConfirmationTTL)
	if err != nil {
		return "", internal.NewInternalError("failed to issue confirmation token", err)
	}
	s.publish(ctx, events.NewConfirmationRequestedEvent(u.ID, u.Email, u.Username, token))
	return token, nil
}

// Ping records activity for u.
func (s *Service) Ping(ctx context.Context, u *User) error {
	now := s.now()
	if err := s.repo.UpdateLastSeen(ctx, u.ID, now); err != nil {
		return err
	}
	u.LastSeen = now
	return nil
}

func (s *Service) AssignRole(ctx context.Context, userID int64, roleName string) (*User, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	r, err := s.roles.GetByName(ctx, roleName)
	if err != nil {
		return nil, err
	}

	u.SetRole(r)
	if err := s.repo.Update(ctx, ToDataModel(u)); err != nil {
		return nil, internal.NewInternalError("failed to assign role", err)
	}

	s.logger.Info("role assigned", "user_id", u.ID, "role", r.Name)
	s.publish(ctx, events.NewRoleAssignedEvent(u.ID, r.Name))
	return u, nil
}

// withRole attaches the stored role, falling back to the admin-email or
// default resolution for rows that have none.
func (s *Service) withRole(ctx context.Context, u *User) (*User, error) {
	if u.RoleID != nil {
		r, err := s.roles.GetByID(ctx, *u.RoleID)
		if err == nil {
			u.Role = r
			return u, nil
		}
		s.logger.Warn("stored role missing; resolving again", "user_id", u.ID, "role_id", *u.RoleID)
	}

	roles, err := s.roles.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	u.SetRole(ResolveRole(u.Email, RoleConfig{AdminEmail: s.cfg.AdminEmail}, roles))
	return u, nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Error("failed to publish event", "event_type", e.EventType(), "error", err)
	}
}
