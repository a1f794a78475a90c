package identity

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims is the payload embedded in a signed token. It is intentionally
// minimal: a subject id and, for email-change confirmations, the requested
// address. Tokens transit via URLs and email links, so nothing else belongs
// in here.
type TokenClaims struct {
	jwt.RegisteredClaims
	UID   string `json:"uid,omitempty"`
	Email string `json:"email,omitempty"`
}

// NewTokenClaims builds a claim for the given account. email may be empty.
func NewTokenClaims(subject uuid.UUID, email string) *TokenClaims {
	return &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: subject.String(),
		},
		UID:   subject.String(),
		Email: email,
	}
}

// UserID returns the subject account id.
func (c *TokenClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// UserUUID parses the subject id.
func (c *TokenClaims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID())
}
