package identity

import (
	"context"
)

// RequestEmailChange verifies the actor's credential, rejects a no-op
// change, and mints a short-lived token embedding the requested address.
// The confirmation link goes to the new address; the current one stays
// untouched until the token is redeemed.
func (l *Lifecycle) RequestEmailChange(ctx context.Context, actor ActorRef, password, newEmail string) error {
	user, err := l.store.FindByID(ctx, actor.ID)
	if err != nil {
		if IsNotFound(err) {
			return ErrAccountNotFound
		}
		return internalError(err, "failed to load account")
	}

	if err := l.credential.Compare(password, user.PasswordHash); err != nil {
		return ErrIncorrectPassword
	}

	requested := NormalizeEmail(newEmail)
	if requested == user.Email {
		return ErrEmailUnchanged
	}

	token, err := l.tokens.Mint(NewTokenClaims(user.ID, requested), l.cfg.EmailChangeTTL)
	if err != nil {
		return internalError(err, "failed to mint email change token")
	}

	l.dispatcher.Dispatch(ctx, Event{
		Tag:      EventUpdated,
		Field:    FieldEmailChangeRequest,
		Actor:    actor,
		User:     user,
		NewEmail: requested,
		Token:    token,
	})

	return nil
}

// ConfirmEmailChange redeems an email-change token and persists the new
// address. The token's embedded claim is re-checked for uniqueness at
// persist time: a second account claiming the address between issuance and
// redemption turns this into a conflict, not a constraint violation. The
// activity alert goes to the prior address so an unauthorized change is
// visible to the account holder.
func (l *Lifecycle) ConfirmEmailChange(ctx context.Context, rawToken string) error {
	claims, err := l.tokens.Verify(rawToken)
	if err != nil {
		return err
	}

	id, err := claims.UserUUID()
	if err != nil || claims.Email == "" {
		return ErrTokenMalformed
	}

	user, err := l.store.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return ErrAccountNotFound
		}
		return internalError(err, "failed to load account")
	}

	requested := NormalizeEmail(claims.Email)
	if user.Email == requested {
		// token replay after a completed change
		return ErrEmailUnchanged
	}
	if other, err := l.store.FindByEmail(ctx, requested); err == nil && other.ID != user.ID {
		return ErrDuplicateEmail
	} else if err != nil && !IsNotFound(err) {
		return internalError(err, "failed to check email availability")
	}

	prior := user.Email
	user.Email = requested

	saved, err := l.store.Save(ctx, user)
	if err != nil {
		return internalError(err, "failed to save email change")
	}

	l.dispatcher.Dispatch(ctx, Event{
		Tag:        EventUpdated,
		Field:      FieldEmail,
		Actor:      UserActor(saved.ID, saved.Roles...),
		User:       saved,
		PriorEmail: prior,
		NewEmail:   requested,
	})

	return nil
}
