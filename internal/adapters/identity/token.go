package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"memberdesk/internal/domain/session"
)

const issuer = "memberdesk"

// ErrInvalidToken is returned when an ID token fails verification.
var ErrInvalidToken = errors.New("invalid identity token")

// claims is the body of an ID token. Subject carries the uid.
type claims struct {
	Email       string `json:"email"`
	Persistence string `json:"persistence"`
	jwt.RegisteredClaims
}

// issueToken signs an HS256 ID token for user valid until expires.
func issueToken(secret []byte, user session.User, p session.Persistence, now, expires time.Time) (string, error) {
	c := claims{
		Email:       user.Email,
		Persistence: string(p),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.UID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
}

// parseToken verifies raw and returns the identity it carries.
func parseToken(secret []byte, raw string, now time.Time) (session.User, session.Persistence, time.Time, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return session.User{}, "", time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return session.User{}, "", time.Time{}, ErrInvalidToken
	}
	p := session.Persistence(c.Persistence)
	if p != session.PersistenceLocal {
		p = session.PersistenceSession
	}
	return session.User{UID: c.Subject, Email: c.Email}, p, c.ExpiresAt.Time, nil
}
