package identity

import "context"

// Notifier is the outbound side-effect capability: transactional mail and
// the marketing list. Each call succeeds or fails independently; failures
// are logged by the event handlers that invoke them and never surface to
// the request that triggered them.
type Notifier interface {
	SendVerification(ctx context.Context, email string, role Role, token string) error
	SendPasswordResetLink(ctx context.Context, email, token string) error
	SendEmailChangeConfirmation(ctx context.Context, newEmail, token string) error
	SendAccountAlert(ctx context.Context, email string, changeKind Field) error
	SubscribeMarketing(ctx context.Context, user *User) error
}

// NewLogNotifier returns a Notifier that only logs, for development and
// tests.
func NewLogNotifier(logger Logger) Notifier {
	if logger == nil {
		logger = defLogger{}
	}
	return &logNotifier{logger: logger}
}

type logNotifier struct {
	logger Logger
}

func (n *logNotifier) SendVerification(_ context.Context, email string, role Role, token string) error {
	n.logger.Info("verification mail", "to", email, "role", role, "link", "/verify-account/"+token)
	return nil
}

func (n *logNotifier) SendPasswordResetLink(_ context.Context, email, token string) error {
	n.logger.Info("password reset mail", "to", email, "link", "/reset-password/"+token)
	return nil
}

func (n *logNotifier) SendEmailChangeConfirmation(_ context.Context, newEmail, token string) error {
	n.logger.Info("email change confirmation mail", "to", newEmail, "link", "/settings/email-update/?"+token)
	return nil
}

func (n *logNotifier) SendAccountAlert(_ context.Context, email string, changeKind Field) error {
	n.logger.Info("account activity alert", "to", email, "change", changeKind)
	return nil
}

func (n *logNotifier) SubscribeMarketing(_ context.Context, user *User) error {
	n.logger.Info("marketing subscription", "email", user.Email)
	return nil
}
