package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nerrad567/taller-core/internal/infrastructure/database/dbtest"
)

const testSecret = "test-secret-key-at-least-32-chars!"

// testRepo returns a user repository on a freshly migrated database.
func testRepo(t *testing.T) *SQLUserRepository {
	t.Helper()
	return NewUserRepository(dbtest.Open(t))
}

// testIssuer returns an HS256 issuer with the default TTL.
func testIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenConfig{Secret: testSecret, TTL: 30 * time.Minute})
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}
	return issuer
}

// testService wires a Service to a fresh database.
func testService(t *testing.T) (*Service, *SQLUserRepository, *TokenIssuer) {
	t.Helper()
	repo := testRepo(t)
	issuer := testIssuer(t)
	return NewService(repo, issuer, slog.New(slog.NewTextHandler(io.Discard, nil))), repo, issuer
}

// seedTestUser inserts a user with password "test-password" and returns it.
func seedTestUser(t *testing.T, repo *SQLUserRepository, email string, role Role, workshopID int64) *User {
	t.Helper()

	hash, err := HashPassword("test-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	user := &User{
		FirstName:      "Test",
		LastName:       "User",
		Email:          email,
		HashedPassword: hash,
		Role:           role,
		WorkshopID:     workshopID,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("creating test user %s: %v", email, err)
	}
	return user
}
