package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nerrad567/taller-core/internal/infrastructure/database"
	"github.com/nerrad567/taller-core/internal/tenant"
)

// UserRepository defines the interface for user account persistence.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, scope tenant.Scope, page tenant.Page) ([]User, error)
	Update(ctx context.Context, id int64, patch UserPatch) (*User, error)
	UpdatePassword(ctx context.Context, id int64, currentHash, newHash string) (int, error)
	ResetPassword(ctx context.Context, id int64, newHash string) (int, error)
	SetPasswordHash(ctx context.Context, id int64, currentHash, newHash string) error
	BumpTokenVersion(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) error
	CountAdmins(ctx context.Context) (int, error)
}

// SQLUserRepository implements UserRepository on any supported driver.
type SQLUserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new SQL-backed user repository.
func NewUserRepository(db *database.DB) *SQLUserRepository {
	return &SQLUserRepository{db: db}
}

const userColumns = `id, first_name, last_name, email, hashed_password, role,
	workshop_id, token_version, created_at, updated_at`

// Create inserts a new user account and fills in ID and timestamps.
// A zero WorkshopID places the user in the unassigned workshop.
func (r *SQLUserRepository) Create(ctx context.Context, user *User) error {
	if user.WorkshopID == 0 {
		user.WorkshopID = tenant.UnassignedWorkshopID
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.TokenVersion = 0

	err := r.db.QueryRowxContext(ctx, r.db.Rebind(
		`INSERT INTO users (first_name, last_name, email, hashed_password, role, workshop_id, token_version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?) RETURNING id`),
		user.FirstName, user.LastName, user.Email, user.HashedPassword,
		string(user.Role), user.WorkshopID, now, now,
	).Scan(&user.ID)
	if err != nil {
		return classifyUserWriteError("creating user", err)
	}

	return nil
}

// GetByID retrieves a user by id.
func (r *SQLUserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetByEmail retrieves a user by (normalised) email.
func (r *SQLUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", strings.ToLower(email))
}

// EmailExists reports whether an account already uses email.
func (r *SQLUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind("SELECT COUNT(*) FROM users WHERE email = ?"), strings.ToLower(email)); err != nil {
		return false, fmt.Errorf("checking email: %w", err)
	}
	return n > 0, nil
}

// List returns users in the scope ordered by id.
func (r *SQLUserRepository) List(ctx context.Context, scope tenant.Scope, page tenant.Page) ([]User, error) {
	page = page.Normalize()
	where, args := new(tenant.Query).Scope(scope, "workshop_id").Where()
	args = append(args, page.Limit, page.Skip)

	users := []User{}
	query := "SELECT " + userColumns + " FROM users " + where + " ORDER BY id LIMIT ? OFFSET ?" //nolint:gosec // WHERE built from parameterised conditions
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Update applies the non-nil fields of patch and returns the updated row.
func (r *SQLUserRepository) Update(ctx context.Context, id int64, patch UserPatch) (*User, error) {
	var sets []string
	var args []any

	if patch.FirstName != nil {
		sets = append(sets, "first_name = ?")
		args = append(args, *patch.FirstName)
	}
	if patch.LastName != nil {
		sets = append(sets, "last_name = ?")
		args = append(args, *patch.LastName)
	}
	if patch.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, strings.ToLower(*patch.Email))
	}
	if patch.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, string(*patch.Role))
	}
	if patch.WorkshopID != nil {
		sets = append(sets, "workshop_id = ?")
		args = append(args, *patch.WorkshopID)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = ?" //nolint:gosec // column list is fixed above
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, classifyUserWriteError("updating user", err)
	}
	if err := requireRow(result); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// UpdatePassword replaces the hash and increments token_version in one
// atomic statement. currentHash must still be the stored hash, so a
// concurrent change between verification and write is detected and
// reported as ErrPasswordChanged. Returns the new token version.
func (r *SQLUserRepository) UpdatePassword(ctx context.Context, id int64, currentHash, newHash string) (int, error) {
	var version int
	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.QueryRowxContext(ctx, tx.Rebind(
			`UPDATE users SET hashed_password = ?, token_version = token_version + 1, updated_at = ?
			 WHERE id = ? AND hashed_password = ? RETURNING token_version`),
			newHash, time.Now().UTC(), id, currentHash,
		).Scan(&version)
		if errors.Is(err, sql.ErrNoRows) {
			var n int
			if err := tx.GetContext(ctx, &n, tx.Rebind("SELECT COUNT(*) FROM users WHERE id = ?"), id); err != nil {
				return fmt.Errorf("checking user: %w", err)
			}
			if n == 0 {
				return ErrUserNotFound
			}
			return ErrPasswordChanged
		}
		if err != nil {
			return fmt.Errorf("updating password: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}

// ResetPassword sets a new hash without checking the old one and
// increments token_version. Used by admins.
func (r *SQLUserRepository) ResetPassword(ctx context.Context, id int64, newHash string) (int, error) {
	var version int
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(
		`UPDATE users SET hashed_password = ?, token_version = token_version + 1, updated_at = ?
		 WHERE id = ? RETURNING token_version`),
		newHash, time.Now().UTC(), id,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("resetting password: %w", err)
	}
	return version, nil
}

// SetPasswordHash swaps in a re-encoded hash of the same password. It
// leaves token_version alone and is a no-op if the hash changed meanwhile.
func (r *SQLUserRepository) SetPasswordHash(ctx context.Context, id int64, currentHash, newHash string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(
		"UPDATE users SET hashed_password = ? WHERE id = ? AND hashed_password = ?"),
		newHash, id, currentHash,
	)
	if err != nil {
		return fmt.Errorf("upgrading password hash: %w", err)
	}
	return nil
}

// BumpTokenVersion increments token_version, revoking every token issued
// so far. Returns the new version.
func (r *SQLUserRepository) BumpTokenVersion(ctx context.Context, id int64) (int, error) {
	var version int
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(
		"UPDATE users SET token_version = token_version + 1, updated_at = ? WHERE id = ? RETURNING token_version"),
		time.Now().UTC(), id,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("bumping token version: %w", err)
	}
	return version, nil
}

// Delete removes a user account by id.
func (r *SQLUserRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return requireRow(result)
}

// CountAdmins returns the number of admin accounts.
func (r *SQLUserRepository) CountAdmins(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, r.db.Rebind("SELECT COUNT(*) FROM users WHERE role = ?"), string(RoleAdmin)); err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return count, nil
}

// getUser executes a query and scans a single user result.
func (r *SQLUserRepository) getUser(ctx context.Context, query string, args ...any) (*User, error) {
	var u User
	if err := r.db.GetContext(ctx, &u, r.db.Rebind(query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}
	return &u, nil
}

func requireRow(result sql.Result) error {
	return database.RequireRows(result, ErrUserNotFound)
}

func classifyUserWriteError(op string, err error) error {
	switch {
	case database.IsUniqueViolation(err):
		return ErrEmailExists
	case database.IsForeignKeyViolation(err):
		return tenant.ErrUnknownWorkshop
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
