package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nerrad567/taller-core/internal/tenant"
)

// maxNameLength bounds first and last names.
const maxNameLength = 100

// SignupRequest is the self-service registration payload.
type SignupRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// NewUser is an admin-created account.
type NewUser struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       Role   `json:"role"`
	WorkshopID int64  `json:"workshop_id"`
}

// Service implements account workflows on top of a UserRepository and a
// TokenIssuer.
type Service struct {
	users  UserRepository
	tokens *TokenIssuer
	logger *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a Service.
func NewService(users UserRepository, tokens *TokenIssuer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, tokens: tokens, logger: logger}
}

// Register creates a self-service account: role manager, no workshop yet.
func (s *Service) Register(ctx context.Context, req SignupRequest) (*User, error) {
	return s.CreateUser(ctx, NewUser{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Password:   req.Password,
		Role:       RoleManager,
		WorkshopID: tenant.UnassignedWorkshopID,
	})
}

// CreateUser validates and stores a new account.
func (s *Service) CreateUser(ctx context.Context, nu NewUser) (*User, error) {
	email, err := NormalizeEmail(nu.Email)
	if err != nil {
		return nil, err
	}
	first, last, err := validateNames(nu.FirstName, nu.LastName)
	if err != nil {
		return nil, err
	}
	if nu.Role == "" {
		nu.Role = RoleManager
	}
	if !IsValidRole(nu.Role) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, nu.Role)
	}
	if err := ValidatePassword(nu.Password); err != nil {
		return nil, err
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hash, err := HashPassword(nu.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		FirstName:      first,
		LastName:       last,
		Email:          email,
		HashedPassword: hash,
		Role:           nu.Role,
		WorkshopID:     nu.WorkshopID,
	}
	// The unique index still catches a concurrent signup for the same email.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created", "user_id", user.ID, "role", user.Role, "workshop_id", user.WorkshopID)
	return user, nil
}

// Authenticate checks credentials. Unknown email and wrong password yield
// the same ErrInvalidCredentials after comparable work. Hashes from an
// older algorithm or weaker parameters are upgraded in place.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		VerifyPassword(password, s.dummy())
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !VerifyPassword(password, user.HashedPassword) {
		return nil, ErrInvalidCredentials
	}

	if NeedsRehash(user.HashedPassword) {
		s.upgradeHash(ctx, user, password)
	}

	return user, nil
}

// Login authenticates and issues an access token.
func (s *Service) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	token, err := s.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// IssueToken signs a token for user at its current token version.
func (s *Service) IssueToken(user *User) (string, error) {
	return s.tokens.Issue(user.Email, user.ID, user.TokenVersion)
}

// ChangePassword verifies the old password, stores the new one and bumps
// token_version atomically, then returns a token for the new version.
// Every token issued before the change stops resolving.
func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	if !VerifyPassword(oldPassword, user.HashedPassword) {
		return "", ErrWrongPassword
	}
	if err := ValidatePassword(newPassword); err != nil {
		return "", err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return "", err
	}

	version, err := s.users.UpdatePassword(ctx, userID, user.HashedPassword, hash)
	if err != nil {
		return "", err
	}

	s.logger.Info("password changed", "user_id", userID, "token_version", version)
	return s.tokens.Issue(user.Email, user.ID, version)
}

// ResetPassword sets a password without the old one. Admin only.
func (s *Service) ResetPassword(ctx context.Context, userID int64, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	version, err := s.users.ResetPassword(ctx, userID, hash)
	if err != nil {
		return err
	}
	s.logger.Info("password reset", "user_id", userID, "token_version", version)
	return nil
}

// LogoutEverywhere revokes every token issued to the user so far.
func (s *Service) LogoutEverywhere(ctx context.Context, userID int64) error {
	version, err := s.users.BumpTokenVersion(ctx, userID)
	if err != nil {
		return err
	}
	s.logger.Info("all sessions revoked", "user_id", userID, "token_version", version)
	return nil
}

// UpdateUser applies a partial update. Only admins may touch role or
// workshop; callers enforce that. The last admin cannot be demoted.
func (s *Service) UpdateUser(ctx context.Context, id int64, patch UserPatch) (*User, error) {
	if patch.Email != nil {
		email, err := NormalizeEmail(*patch.Email)
		if err != nil {
			return nil, err
		}
		patch.Email = &email
	}
	if patch.FirstName != nil || patch.LastName != nil {
		if err := validateOptionalName(patch.FirstName); err != nil {
			return nil, err
		}
		if err := validateOptionalName(patch.LastName); err != nil {
			return nil, err
		}
	}
	if patch.Role != nil {
		if !IsValidRole(*patch.Role) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRole, *patch.Role)
		}
		if *patch.Role != RoleAdmin {
			if err := s.guardLastAdmin(ctx, id); err != nil {
				return nil, err
			}
		}
	}

	return s.users.Update(ctx, id, patch)
}

// DeleteUser removes an account. The last admin cannot be deleted.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if err := s.guardLastAdmin(ctx, id); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// guardLastAdmin fails when id is the only remaining admin.
func (s *Service) guardLastAdmin(ctx context.Context, id int64) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user.Role != RoleAdmin {
		return nil
	}
	admins, err := s.users.CountAdmins(ctx)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdmin
	}
	return nil
}

func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	hash, err := HashPassword(password)
	if err != nil {
		s.logger.Warn("password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	if err := s.users.SetPasswordHash(ctx, user.ID, user.HashedPassword, hash); err != nil {
		s.logger.Warn("password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	user.HashedPassword = hash
	s.logger.Info("password hash upgraded", "user_id", user.ID)
}

// dummy returns a valid hash used to equalise timing for unknown emails.
func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := HashPassword("taller-timing-equaliser")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func validateNames(first, last string) (string, string, error) {
	first = strings.TrimSpace(first)
	last = strings.TrimSpace(last)
	if first == "" || last == "" {
		return "", "", fmt.Errorf("%w: first_name and last_name are required", ErrInvalidUser)
	}
	if len(first) > maxNameLength || len(last) > maxNameLength {
		return "", "", fmt.Errorf("%w: names must be at most %d characters", ErrInvalidUser, maxNameLength)
	}
	return first, last, nil
}

func validateOptionalName(name *string) error {
	if name == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*name)
	if trimmed == "" || len(trimmed) > maxNameLength {
		return fmt.Errorf("%w: names must be 1-%d characters", ErrInvalidUser, maxNameLength)
	}
	*name = trimmed
	return nil
}
