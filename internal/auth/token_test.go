package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestNewTokenIssuer_MissingSecret(t *testing.T) {
	_, err := NewTokenIssuer(TokenConfig{Secret: ""})
	if !errors.Is(err, ErrMissingSecret) {
		t.Errorf("NewTokenIssuer() error = %v, want ErrMissingSecret", err)
	}
}

func TestNewTokenIssuer_Defaults(t *testing.T) {
	issuer, err := NewTokenIssuer(TokenConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}
	if issuer.TTL() != DefaultTokenTTL {
		t.Errorf("TTL() = %v, want %v", issuer.TTL(), DefaultTokenTTL)
	}
	if _, err := NewTokenIssuer(TokenConfig{Secret: testSecret, Algorithm: "RS256"}); err == nil {
		t.Error("NewTokenIssuer() accepted RS256")
	}
}

func TestIssueAndVerify(t *testing.T) {
	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		t.Run(alg, func(t *testing.T) {
			issuer, err := NewTokenIssuer(TokenConfig{Secret: testSecret, Algorithm: alg, TTL: time.Minute})
			if err != nil {
				t.Fatalf("NewTokenIssuer() error = %v", err)
			}

			token, err := issuer.Issue("a@x.com", 42, 3)
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}

			claims, err := issuer.Verify(token)
			if err != nil {
				t.Fatalf("Verify() error = %v", err)
			}
			if claims.Subject != "a@x.com" {
				t.Errorf("Subject = %q, want %q", claims.Subject, "a@x.com")
			}
			if claims.UserID != 42 {
				t.Errorf("UserID = %d, want 42", claims.UserID)
			}
			if claims.TokenVersion != 3 {
				t.Errorf("TokenVersion = %d, want 3", claims.TokenVersion)
			}
			if claims.ID == "" {
				t.Error("JTI (ID) should not be empty")
			}
			if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Minute {
				t.Errorf("exp - iat = %v, want 1m", got)
			}
		})
	}
}

func TestVerify_Failures(t *testing.T) {
	issuer := testIssuer(t)
	valid, err := issuer.Issue("a@x.com", 1, 0)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	otherSecret, _ := NewTokenIssuer(TokenConfig{Secret: strings.Repeat("z", 40)})
	forged, _ := otherSecret.Issue("a@x.com", 1, 0)

	expiredIssuer := testIssuer(t)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredIssuer.Issue("a@x.com", 1, 0)

	hs512, _ := NewTokenIssuer(TokenConfig{Secret: testSecret, Algorithm: "HS512"})
	wrongAlg, _ := hs512.Issue("a@x.com", 1, 0)

	noUser, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   "a@x.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))

	noExpiry, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer, Subject: "a@x.com"},
		UserID:           1,
	}).SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"empty", ""},
		{"wrong secret", forged},
		{"expired", expired},
		{"wrong algorithm", wrongAlg},
		{"missing user_id", noUser},
		{"missing exp", noExpiry},
		{"tampered", valid[:len(valid)-2] + "xx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Verify(tt.token)
			if !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("Verify() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}
