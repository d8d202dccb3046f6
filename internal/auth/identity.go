package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrUnauthenticated is returned when no valid session identity is available.
var ErrUnauthenticated = errors.New("not authenticated")

// CookieName is the cookie the session service reads the token from.
const CookieName = "jwt"

// Identity is the signed-in user as reported by the session service.
// It is handed to a session at creation and never mutated afterwards.
type Identity struct {
	Subject   string    `json:"id,omitempty"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Mobile    string    `json:"mobile,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	Age       int       `json:"age,omitempty"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// Authenticated reports whether the identity carries a token that has not expired at now.
func (i Identity) Authenticated(now time.Time) bool {
	if i.Token == "" {
		return false
	}
	return i.ExpiresAt.IsZero() || now.Before(i.ExpiresAt)
}

// DisplayName returns the full name, falling back to the email then the subject.
func (i Identity) DisplayName() string {
	switch {
	case i.FullName != "":
		return i.FullName
	case i.Email != "":
		return i.Email
	default:
		return i.Subject
	}
}

// Claims is the token payload issued by the session service.
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// FromToken reads the identity carried by token without verifying its signature.
// Signatures are checked by the session service.
func FromToken(token string, now time.Time) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}

	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("%w: malformed token: %v", ErrUnauthenticated, err)
	}

	id := Identity{
		Subject:  claims.Subject,
		FullName: claims.Name,
		Email:    claims.Email,
		Token:    token,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	if !id.Authenticated(now) {
		return Identity{}, fmt.Errorf("%w: token expired at %s", ErrUnauthenticated, id.ExpiresAt.Format(time.RFC3339))
	}
	return id, nil
}

// Merge returns i with the profile fields of other filled in. Token and expiry are kept.
func (i Identity) Merge(other Identity) Identity {
	if other.Subject != "" {
		i.Subject = other.Subject
	}
	if other.FullName != "" {
		i.FullName = other.FullName
	}
	if other.Email != "" {
		i.Email = other.Email
	}
	if other.Mobile != "" {
		i.Mobile = other.Mobile
	}
	if other.Gender != "" {
		i.Gender = other.Gender
	}
	if other.Age != 0 {
		i.Age = other.Age
	}
	return i
}
