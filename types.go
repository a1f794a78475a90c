package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Logger takes a message plus alternating key-value pairs, slog style.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// UserStore is the persistence capability. Implementations are responsible
// for per-record atomicity and for enforcing the unique-email invariant on
// insert; missing records surface as ErrAccountNotFound and unique-email
// violations as ErrDuplicateEmail.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	Insert(ctx context.Context, user *User) (*User, error)
	Save(ctx context.Context, user *User) (*User, error)
	// SaveWithStatus persists only if the stored status still equals prior,
	// failing with ErrStatusConflict otherwise. Serializes racing status
	// transitions such as two verification redemptions.
	SaveWithStatus(ctx context.Context, user *User, prior UserStatus) (*User, error)
	Delete(ctx context.Context, user *User) error
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println(logLine("[ERR] IDENTITY ", msg, args))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Println(logLine("[WRN] IDENTITY ", msg, args))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println(logLine("[INF] IDENTITY ", msg, args))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println(logLine("[DBG] IDENTITY ", msg, args))
}

func logLine(prefix, msg string, args []any) string {
	out := prefix + msg
	for i := 0; i+1 < len(args); i += 2 {
		out += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		out += fmt.Sprintf(" %v", args[len(args)-1])
	}
	return out
}
