package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"notes-go/internal/model"
	"notes-go/internal/notes"
)

// UserFinder loads the user a credential refers to.
type UserFinder interface {
	FindUser(id string) (*model.User, error)
}

// Claims are the JWT claims carried by a bearer credential.
// The subject is the user ID.
type Claims struct {
	Role model.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenAuthenticator issues and resolves HS256 bearer credentials.
type TokenAuthenticator struct {
	secret []byte
	ttl    time.Duration
	users  UserFinder
	clock  notes.Clock
}

// NewTokenAuthenticator creates an authenticator. secret must not be empty.
func NewTokenAuthenticator(secret string, ttl time.Duration, users UserFinder, clock notes.Clock) (*TokenAuthenticator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	return &TokenAuthenticator{
		secret: []byte(secret),
		ttl:    ttl,
		users:  users,
		clock:  clock,
	}, nil
}

// Issue produces a signed credential for user.
func (a *TokenAuthenticator) Issue(user *model.User) (string, error) {
	now := a.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Resolve returns the user a credential was issued to. Malformed, expired
// and foreign credentials, as well as credentials for users that no longer
// exist, all yield notes.ErrUnauthenticated.
func (a *TokenAuthenticator) Resolve(credential string) (*model.User, error) {
	if credential == "" {
		return nil, fmt.Errorf("missing credential: %w", notes.ErrUnauthenticated)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(credential, claims,
		func(t *jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid credential: %w: %w", notes.ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("credential has no subject: %w", notes.ErrUnauthenticated)
	}

	user, err := a.users.FindUser(claims.Subject)
	if errors.Is(err, notes.ErrNotFound) {
		return nil, fmt.Errorf("unknown user: %w", notes.ErrUnauthenticated)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
