package identity

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"text/template"
)

// SMTPConfig configures the outbound mail transport.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// SupportEmail is surfaced in the activity-alert copy.
	SupportEmail string
	// BaseURL is the public address the emailed links point at.
	BaseURL string
}

// SMTPNotifier delivers the transactional mail over SMTP. Marketing
// subscription delegates to an optional MarketingClient; without one it is
// a logged no-op.
type SMTPNotifier struct {
	cfg       SMTPConfig
	marketing *MarketingClient
	logger    Logger
	// send is swappable for tests
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

var _ Notifier = (*SMTPNotifier)(nil)

// SMTPNotifierOption customizes the notifier.
type SMTPNotifierOption func(*SMTPNotifier)

// WithMarketingClient enables the marketing-list subscription side effect.
func WithMarketingClient(c *MarketingClient) SMTPNotifierOption {
	return func(n *SMTPNotifier) {
		n.marketing = c
	}
}

// WithSMTPSender overrides the raw send function (tests, sendmail shims).
func WithSMTPSender(send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) SMTPNotifierOption {
	return func(n *SMTPNotifier) {
		if send != nil {
			n.send = send
		}
	}
}

// WithNotifierLogger overrides the logger.
func WithNotifierLogger(logger Logger) SMTPNotifierOption {
	return func(n *SMTPNotifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewSMTPNotifier creates the SMTP-backed notifier.
func NewSMTPNotifier(cfg SMTPConfig, opts ...SMTPNotifierOption) *SMTPNotifier {
	n := &SMTPNotifier{
		cfg:    cfg,
		logger: defLogger{},
		send:   smtp.SendMail,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	return n
}

var verificationBody = template.Must(template.New("verification").Parse(
	`Welcome! Please verify your email address to activate your account.

{{.Link}}

The link is valid for 24 hours. If you did not sign up, you can ignore this email.
`))

var resetBody = template.Must(template.New("reset").Parse(
	`You are receiving this because you (or someone else) requested a password reset.

{{.Link}}

The link is valid for a limited period. If you did not request this, you can ignore this email.
`))

var emailChangeBody = template.Must(template.New("emailChange").Parse(
	`Please confirm your new email address.

{{.Link}}

If you did not request this change, you can ignore this email.
`))

var alertBody = template.Must(template.New("alert").Parse(
	`You are receiving this because you (or someone else) has just completed an update of your {{.Change}}.

If you did not approve of this, please send an email to {{.Support}} for immediate action.
You can ignore this email otherwise.
`))

func (n *SMTPNotifier) SendVerification(_ context.Context, email string, role Role, token string) error {
	link := fmt.Sprintf("%s/verify-account/%s", n.cfg.BaseURL, token)
	return n.deliver(email, "Please Verify Your Email Address", verificationBody, map[string]any{"Link": link, "Role": role})
}

func (n *SMTPNotifier) SendPasswordResetLink(_ context.Context, email, token string) error {
	link := fmt.Sprintf("%s/reset-password/%s", n.cfg.BaseURL, token)
	return n.deliver(email, "Password Reset Request", resetBody, map[string]any{"Link": link})
}

func (n *SMTPNotifier) SendEmailChangeConfirmation(_ context.Context, newEmail, token string) error {
	link := fmt.Sprintf("%s/settings/email-update/?%s", n.cfg.BaseURL, token)
	return n.deliver(newEmail, "Please Verify Your Email Address", emailChangeBody, map[string]any{"Link": link})
}

func (n *SMTPNotifier) SendAccountAlert(_ context.Context, email string, changeKind Field) error {
	return n.deliver(email, "Account Activities Alert", alertBody, map[string]any{
		"Change":  changeKind,
		"Support": n.cfg.SupportEmail,
	})
}

func (n *SMTPNotifier) SubscribeMarketing(ctx context.Context, user *User) error {
	if n.marketing == nil {
		n.logger.Debug("marketing client not configured, skipping subscription", "email", user.Email)
		return nil
	}
	return n.marketing.Subscribe(ctx, user)
}

func (n *SMTPNotifier) deliver(to, subject string, body *template.Template, data map[string]any) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")

	if err := body.Execute(&buf, data); err != nil {
		return fmt.Errorf("rendering %q mail: %w", subject, err)
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := n.send(addr, auth, n.cfg.From, []string{to}, buf.Bytes()); err != nil {
		return fmt.Errorf("sending %q mail to %s: %w", subject, to, err)
	}
	return nil
}
