package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the access token lifetime when none is configured.
const DefaultTokenTTL = 30 * time.Minute

// tokenIssuer is the iss claim of every token.
const tokenIssuer = "taller"

// Claims is the payload of an access token.
//
// Only Subject (email), UserID and TokenVersion are meaningful to the
// server. Role and workshop are always re-read from the database.
type Claims struct {
	jwt.RegisteredClaims
	UserID       int64 `json:"user_id"`
	TokenVersion int   `json:"token_version"`
}

// TokenConfig configures a TokenIssuer.
type TokenConfig struct {
	Secret    string
	Algorithm string // HS256, HS384 or HS512; HS256 when empty
	TTL       time.Duration
}

// TokenIssuer signs and verifies access tokens with a fixed secret.
//
// Thread Safety:
//   - Immutable after construction; safe for concurrent use.
type TokenIssuer struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer builds an issuer. It fails when the secret is empty:
// an ephemeral secret would invalidate every token on restart.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	if cfg.Secret == "" {
		return nil, ErrMissingSecret
	}

	var method jwt.SigningMethod
	switch cfg.Algorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &TokenIssuer{
		secret: []byte(cfg.Secret),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue creates a signed token for the given identity and version.
func (i *TokenIssuer) Issue(email string, userID int64, tokenVersion int) (string, error) {
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
		UserID:       userID,
		TokenVersion: tokenVersion,
	}

	signed, err := jwt.NewWithClaims(i.method, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, algorithm, issuer and expiry of a token
// and returns its claims. It does not check that the user still exists or
// that the version is current; see Resolver.
func (i *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if claims.UserID <= 0 {
		return nil, fmt.Errorf("%w: missing user_id", ErrTokenInvalid)
	}
	if claims.TokenVersion < 0 {
		return nil, fmt.Errorf("%w: negative token_version", ErrTokenInvalid)
	}

	return claims, nil
}
