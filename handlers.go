package identity

import (
	"context"
)

// RegisterNotificationHandlers subscribes the standard side effects at
// wiring time: verification mail on insert, marketing subscription on
// verify, link mail on the request flows, activity alerts on password and
// email changes. Handler failures are logged by the dispatcher and never
// reach the request that produced the event.
func RegisterNotificationHandlers(d *Dispatcher, notifier Notifier) {
	d.Subscribe(EventInserted, func(ctx context.Context, evt Event) error {
		if evt.User == nil || evt.Token == "" {
			return nil
		}
		return notifier.SendVerification(ctx, evt.User.Email, evt.User.PrimaryRole(), evt.Token)
	})

	d.Subscribe(EventVerified, func(ctx context.Context, evt Event) error {
		if evt.User == nil {
			return nil
		}
		return notifier.SubscribeMarketing(ctx, evt.User)
	})

	d.Subscribe(EventUpdated, func(ctx context.Context, evt Event) error {
		if evt.User == nil {
			return nil
		}

		switch evt.Field {
		case FieldResetRequest:
			return notifier.SendPasswordResetLink(ctx, evt.User.Email, evt.Token)
		case FieldEmailChangeRequest:
			return notifier.SendEmailChangeConfirmation(ctx, evt.NewEmail, evt.Token)
		case FieldPassword:
			return notifier.SendAccountAlert(ctx, evt.User.Email, FieldPassword)
		case FieldEmail:
			// alert the prior address, not the new one, so an unauthorized
			// change is visible to whoever owned the account
			return notifier.SendAccountAlert(ctx, evt.PriorEmail, FieldEmail)
		default:
			return nil
		}
	})
}
