package identity

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Credential is the opaque password capability: hashing on write,
// comparison on verify. Plaintext is never stored or compared directly.
type Credential interface {
	Hash(secret string) (string, error)
	Compare(secret, digest string) error
}

// NewBcryptCredential returns the default bcrypt-backed credential.
func NewBcryptCredential() Credential {
	return bcryptCredential{cost: passwordHashCost()}
}

type bcryptCredential struct {
	cost int
}

func (c bcryptCredential) Hash(secret string) (string, error) {
	if secret == "" {
		return "", ErrNoEmptyString
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), c.cost)
	return string(h), err
}

func (c bcryptCredential) Compare(secret, digest string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	return NewBcryptCredential().Hash(password)
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	return NewBcryptCredential().Compare(password, hash)
}

// RandomPasswordHash is a temporary password used when staff provision an
// account on someone's behalf; the holder resets it through the normal flow.
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}
