package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is an authenticated user as seen by the API.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
	Anonymous   bool
	Source      string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Chain tries each verifier in order and returns the first success.
type Chain []Verifier

func (c Chain) Verify(ctx context.Context, token string) (Identity, error) {
	var errs []error
	for _, v := range c {
		if v == nil {
			continue
		}
		id, err := v.Verify(ctx, token)
		if err == nil {
			return id, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{}, errors.Join(errs...)
}

const DefaultTTL = 30 * 24 * time.Hour

// Issuer signs and verifies anonymous session tokens (HS256).
type Issuer struct {
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

type claims struct {
	jwt.RegisteredClaims
	Anonymous   bool   `json:"anon,omitempty"`
	DisplayName string `json:"name,omitempty"`
}

func (i Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now()
	}
	return time.Now()
}

// IssueAnonymous creates a new user id and a token for it.
func (i Issuer) IssueAnonymous(displayName string) (string, Identity, error) {
	return i.Issue(Identity{UserID: uuid.NewString(), DisplayName: displayName, Anonymous: true})
}

func (i Issuer) Issue(id Identity) (string, Identity, error) {
	if strings.TrimSpace(i.Secret) == "" {
		return "", Identity{}, errors.New("jwt secret not configured")
	}
	if id.UserID == "" {
		return "", Identity{}, errors.New("user id is required")
	}
	ttl := i.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := i.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "focusflow",
		},
		Anonymous:   id.Anonymous,
		DisplayName: id.DisplayName,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(i.Secret))
	if err != nil {
		return "", Identity{}, fmt.Errorf("sign token: %w", err)
	}
	id.Source = "jwt"
	return signed, id, nil
}

func (i Issuer) Verify(_ context.Context, token string) (Identity, error) {
	if strings.TrimSpace(i.Secret) == "" {
		return Identity{}, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	c := &claims{}
	parsed, err := parser.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		return []byte(i.Secret), nil
	})
	if err != nil {
		return Identity{}, err
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if c.Subject == "" {
		return Identity{}, errors.New("subject claim required")
	}
	return Identity{UserID: c.Subject, DisplayName: c.DisplayName, Anonymous: c.Anonymous, Source: "jwt"}, nil
}
