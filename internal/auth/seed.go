package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for a generated admin password.
const seedPasswordBytes = 16

// BootstrapAdmin describes the first admin account.
type BootstrapAdmin struct {
	Email     string
	Password  string // generated when empty
	FirstName string
	LastName  string
}

// SeedAdmin creates the bootstrap admin on first boot, when no admin
// exists yet. A generated password is logged once and returned; it must be
// changed immediately. Returns "" when seeding was skipped or the password
// came from configuration.
func SeedAdmin(ctx context.Context, svc *Service, users UserRepository, admin BootstrapAdmin, logger *slog.Logger) (string, error) {
	count, err := users.CountAdmins(ctx)
	if err != nil {
		return "", fmt.Errorf("checking admin count: %w", err)
	}

	if count > 0 {
		logger.Info("admin exists, skipping bootstrap")
		return "", nil
	}

	password := admin.Password
	generated := password == ""
	if generated {
		passwordBytes := make([]byte, seedPasswordBytes)
		if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
			return "", fmt.Errorf("generating admin password: %w", err)
		}
		password = hex.EncodeToString(passwordBytes)
	}

	first, last := admin.FirstName, admin.LastName
	if first == "" {
		first = "Admin"
	}
	if last == "" {
		last = "Taller"
	}

	user, err := svc.CreateUser(ctx, NewUser{
		FirstName: first,
		LastName:  last,
		Email:     admin.Email,
		Password:  password,
		Role:      RoleAdmin,
	})
	if err != nil {
		return "", fmt.Errorf("creating bootstrap admin: %w", err)
	}

	if !generated {
		logger.Info("bootstrap admin created", "email", user.Email)
		return "", nil
	}

	// Logged under a key the handler does not redact: this is the only
	// place the operator can read it.
	logger.Warn("bootstrap admin created",
		"email", user.Email,
		"initial_password", password,
		"action_required", "change this password immediately",
	)

	return password, nil
}
