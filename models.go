package identity

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UserStatus is the account lifecycle status.
type UserStatus string

const (
	// UserStatusPending means the account was created with a self-serve role
	// and has not redeemed its verification token yet. Login is blocked.
	UserStatusPending UserStatus = "PENDING"
	// UserStatusActive is a verified (or auto-activated) account.
	UserStatusActive UserStatus = "ACTIVE"
	// UserStatusReset marks an account mid password-recovery. Informational,
	// it does not block login.
	UserStatusReset UserStatus = "RESET"
)

// IsValid checks the status against the closed enum.
func (s UserStatus) IsValid() bool {
	switch s {
	case UserStatusPending, UserStatusActive, UserStatusReset:
		return true
	default:
		return false
	}
}

// User is the account model.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName    string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName     string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Email        string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash string     `bun:"password_hash,notnull" json:"-"`
	Phone        string     `bun:"phone_number" json:"phone_number,omitempty"`
	DateOfBirth  string     `bun:"date_of_birth" json:"date_of_birth,omitempty"`
	Avatar       string     `bun:"avatar" json:"avatar,omitempty"`
	Status       UserStatus `bun:"status,notnull" json:"status,omitempty"`
	Roles        []Role     `bun:"roles,notnull" json:"roles,omitempty"`
	CreatedAt    *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt    *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt    *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

var titleCaser = cases.Title(language.English)

// Normalize applies the write-time field rules: title-cased names, lowercased
// trimmed email, a default role, a status derived from the role rule, and a
// deterministic avatar placeholder when none is set.
func (u *User) Normalize() {
	u.FirstName = titleCaser.String(strings.ToLower(strings.TrimSpace(u.FirstName)))
	u.LastName = titleCaser.String(strings.ToLower(strings.TrimSpace(u.LastName)))
	u.Email = NormalizeEmail(u.Email)

	if len(u.Roles) == 0 {
		u.Roles = []Role{RoleNoter}
	}

	u.EnsureStatus()

	if u.Avatar == "" {
		u.Avatar = placeholderAvatar(u.FirstName, u.LastName)
	}
}

// EnsureStatus assigns the creation-time status when unset: accounts holding
// only non self-serve roles activate immediately, everyone else starts
// pending verification.
func (u *User) EnsureStatus() {
	if u.Status != "" {
		return
	}
	if u.SelfServe() {
		u.Status = UserStatusPending
		return
	}
	u.Status = UserStatusActive
}

// SelfServe reports whether any of the account's roles requires email
// verification before activation.
func (u *User) SelfServe() bool {
	for _, r := range u.Roles {
		if r.SelfServe() {
			return true
		}
	}
	return false
}

// HasRole checks role membership.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// PrimaryRole returns the first assigned role.
func (u *User) PrimaryRole() Role {
	if len(u.Roles) == 0 {
		return RoleNoter
	}
	return u.Roles[0]
}

// Activate performs the guarded PENDING -> ACTIVE transition. Re-activating
// an already active account fails the idempotency check.
func (u *User) Activate() error {
	u.EnsureStatus()
	if u.Status == UserStatusActive {
		return ErrAlreadyActive
	}
	u.Status = UserStatusActive
	return nil
}

// NormalizeEmail lowercases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func placeholderAvatar(firstName, lastName string) string {
	name := url.QueryEscape(strings.TrimSpace(firstName + " " + lastName))
	return fmt.Sprintf("https://ui-avatars.com/api/?background=164B26&color=fff&name=%s", name)
}
