package auth

import (
	"context"
	"errors"
	"testing"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer abc", "abc", false},
		{"  Bearer   abc  ", "abc", false},
		{"", "", true},
		{"Bearer", "", true},
		{"Bearer   ", "", true},
		{"Basic dXNlcjpwYXNz", "", true},
		{"abc.def.ghi", "", true},
	}
	for _, tt := range tests {
		got, err := BearerToken(tt.header)
		if (err != nil) != tt.wantErr {
			t.Errorf("BearerToken(%q) error = %v, wantErr %v", tt.header, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrMissingToken) {
			t.Errorf("BearerToken(%q) error = %v, want ErrMissingToken", tt.header, err)
		}
		if got != tt.want {
			t.Errorf("BearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Error("empty context should carry no identity")
	}
	id := Identity{UserID: 7, Email: "x@example.com", Role: RoleWorker, WorkshopID: 3}
	got, ok := IdentityFromContext(WithIdentity(context.Background(), id))
	if !ok || got != id {
		t.Errorf("IdentityFromContext() = %+v, %v", got, ok)
	}
}

func TestResolver_Resolve(t *testing.T) {
	repo := testRepo(t)
	issuer := testIssuer(t)
	resolver := NewResolver(issuer, repo)
	ctx := context.Background()

	user := seedTestUser(t, repo, "res@example.com", RoleManager, 0)
	token, err := issuer.Issue(user.Email, user.ID, user.TokenVersion)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	id, err := resolver.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if id.UserID != user.ID || id.Role != RoleManager || id.WorkshopID != 1 {
		t.Errorf("Resolve() = %+v", id)
	}
	if id.HasWorkshop() {
		t.Error("HasWorkshop() = true for unassigned user")
	}
}

func TestResolver_ReadsLiveRow(t *testing.T) {
	repo := testRepo(t)
	issuer := testIssuer(t)
	resolver := NewResolver(issuer, repo)
	ctx := context.Background()

	user := seedTestUser(t, repo, "live@example.com", RoleManager, 0)
	token, _ := issuer.Issue(user.Email, user.ID, 0)

	role := RoleAdmin
	if _, err := repo.Update(ctx, user.ID, UserPatch{Role: &role}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	id, err := resolver.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !id.IsAdmin() {
		t.Errorf("role from token = %s, want live role admin", id.Role)
	}
}

func TestResolver_Failures(t *testing.T) {
	repo := testRepo(t)
	issuer := testIssuer(t)
	resolver := NewResolver(issuer, repo)
	ctx := context.Background()

	user := seedTestUser(t, repo, "gone@example.com", RoleManager, 0)
	stale, _ := issuer.Issue(user.Email, user.ID, 0)
	if _, err := repo.BumpTokenVersion(ctx, user.ID); err != nil {
		t.Fatalf("BumpTokenVersion() error = %v", err)
	}

	deleted := seedTestUser(t, repo, "deleted@example.com", RoleWorker, 0)
	orphan, _ := issuer.Issue(deleted.Email, deleted.ID, 0)
	if err := repo.Delete(ctx, deleted.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	tests := []struct {
		name   string
		token  string
		reason error
	}{
		{"invalid", "junk", ErrTokenInvalid},
		{"stale version", stale, ErrTokenStale},
		{"deleted user", orphan, ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve(ctx, tt.token)
			if !errors.Is(err, ErrUnauthorized) {
				t.Errorf("Resolve() error = %v, want ErrUnauthorized", err)
			}
			if !errors.Is(err, tt.reason) {
				t.Errorf("Resolve() error = %v, want reason %v", err, tt.reason)
			}
		})
	}
}

func TestResolver_Reload(t *testing.T) {
	repo := testRepo(t)
	resolver := NewResolver(testIssuer(t), repo)
	ctx := context.Background()

	user := seedTestUser(t, repo, "reload@example.com", RoleWorker, 0)

	id, err := resolver.Reload(ctx, user.ID, 0)
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if id.UserID != user.ID || id.TokenVersion != 0 {
		t.Errorf("Reload() = %+v", id)
	}

	if _, err := repo.BumpTokenVersion(ctx, user.ID); err != nil {
		t.Fatalf("BumpTokenVersion() error = %v", err)
	}
	if _, err := resolver.Reload(ctx, user.ID, 0); !errors.Is(err, ErrTokenStale) {
		t.Errorf("Reload() after bump error = %v, want ErrTokenStale", err)
	}
}
