package identity

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// RequestPasswordReset mints a short-lived reset token and dispatches the
// reset-link mail. The response never includes the token. The account is
// marked RESET while recovery is in flight; the mark is informational and
// does not block login.
//
// An unregistered email fails loudly, which lets a caller enumerate
// registered addresses. Kept for parity with the existing clients; harden
// to a uniform response once they can tolerate it.
func (l *Lifecycle) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := l.store.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if IsNotFound(err) {
			return ErrAccountNotFound
		}
		return internalError(err, "failed to look up account")
	}

	token, err := l.tokens.Mint(NewTokenClaims(user.ID, ""), l.cfg.ResetTTL)
	if err != nil {
		return internalError(err, "failed to mint reset token")
	}

	if user.Status == UserStatusActive {
		user.Status = UserStatusReset
		if user, err = l.store.Save(ctx, user); err != nil {
			return internalError(err, "failed to mark account for reset")
		}
	}

	l.dispatcher.Dispatch(ctx, Event{
		Tag:   EventUpdated,
		Field: FieldResetRequest,
		Actor: SystemActor(),
		User:  user,
		Token: token,
	})

	return nil
}

// VerifyResetToken checks a reset token out of band (the "continue" click
// on the emailed link) and returns the subject account id.
func (l *Lifecycle) VerifyResetToken(ctx context.Context, rawToken string) (uuid.UUID, error) {
	claims, err := l.tokens.Verify(rawToken)
	if err != nil {
		return uuid.Nil, err
	}

	id, err := claims.UserUUID()
	if err != nil {
		return uuid.Nil, ErrTokenMalformed
	}

	return id, nil
}

// ResetPassword completes recovery for an account that proved token
// possession. The new secret must differ from the current one; acceptance
// rehashes and emits the account-activity alert.
func (l *Lifecycle) ResetPassword(ctx context.Context, id uuid.UUID, newPassword string) error {
	user, err := l.store.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return ErrAccountNotFound
		}
		return internalError(err, "failed to load account")
	}

	return l.applyPasswordChange(ctx, ActorRef{ID: id, Type: "user"}, user, newPassword)
}

// ChangePassword rotates the secret for an authenticated actor after
// re-proving the current one.
func (l *Lifecycle) ChangePassword(ctx context.Context, actor ActorRef, oldPassword, newPassword string) error {
	user, err := l.store.FindByID(ctx, actor.ID)
	if err != nil {
		if IsNotFound(err) {
			return ErrAccountNotFound
		}
		return internalError(err, "failed to load account")
	}

	if err := l.credential.Compare(oldPassword, user.PasswordHash); err != nil {
		return ErrIncorrectPassword
	}

	return l.applyPasswordChange(ctx, actor, user, newPassword)
}

func (l *Lifecycle) applyPasswordChange(ctx context.Context, actor ActorRef, user *User, newPassword string) error {
	if err := l.credential.Compare(newPassword, user.PasswordHash); err == nil {
		return ErrPasswordReused
	}

	hash, err := l.credential.Hash(newPassword)
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return richErr
		}
		return internalError(err, "failed to hash password")
	}

	user.PasswordHash = hash
	if user.Status == UserStatusReset {
		user.Status = UserStatusActive
	}

	saved, err := l.store.Save(ctx, user)
	if err != nil {
		return internalError(err, "failed to save new password")
	}

	l.dispatcher.Dispatch(ctx, Event{
		Tag:   EventUpdated,
		Field: FieldPassword,
		Actor: actor,
		User:  saved,
	})

	return nil
}
