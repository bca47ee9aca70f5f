// Package notification delivers out-of-band emails. Delivery is best effort:
// nothing here can fail the mutation that triggered a message.
package notification

import (
	"context"
	"fmt"
	"html/template"

	"github.com/acme/outline-api/config"
	"github.com/acme/outline-api/internal/observability"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// InvitationEmail is the data needed to render an invitation
type InvitationEmail struct {
	To               string
	OrganizationName string
	InviterName      string
	AcceptURL        string
}

// Subject returns the invitation subject line
func (e InvitationEmail) Subject() string {
	return fmt.Sprintf("You've been invited to join %s on Acme Inc", e.OrganizationName)
}

// Mailer sends notification emails
type Mailer interface {
	SendInvitationEmail(ctx context.Context, email InvitationEmail) error
}

// NewMailer returns an SMTP mailer when a relay is configured and a
// log-only mailer otherwise
func NewMailer(cfg *config.Config, logger *zap.Logger) (Mailer, error) {
	if !cfg.MailEnabled() {
		logger.Info("SMTP not configured, invitation emails will only be logged")
		return NewLogMailer(logger), nil
	}
	return NewSMTPMailer(cfg.Mail, logger)
}

var invitationTemplate = template.Must(template.New("invitation").Parse(`<div style="font-family: system-ui, sans-serif; max-width: 500px; margin: 40px auto; text-align: center;">
  <h1>You're Invited!</h1>
  <p><strong>{{.InviterName}}</strong> invited you to join</p>
  <h2>{{.OrganizationName}}</h2>
  <a href="{{.AcceptURL}}">Accept Invitation</a>
  <p>Or copy this link:<br><code>{{.AcceptURL}}</code></p>
  <small>This invitation expires in 7 days</small>
</div>`))

// SMTPMailer sends through an SMTP relay
type SMTPMailer struct {
	client *mail.Client
	from   string
	logger *zap.Logger
}

// NewSMTPMailer creates an SMTP mailer. STARTTLS is used when the relay offers it.
func NewSMTPMailer(cfg config.MailConfig, logger *zap.Logger) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	return &SMTPMailer{
		client: client,
		from:   cfg.From,
		logger: logger,
	}, nil
}

// SendInvitationEmail renders and sends an invitation
func (m *SMTPMailer) SendInvitationEmail(ctx context.Context, email InvitationEmail) error {
	msg, err := buildInvitationMessage(m.from, email)
	if err != nil {
		return err
	}

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send invitation email: %w", err)
	}

	observability.ForRequest(ctx, m.logger).Info("invitation email sent", zap.String("to", email.To))
	return nil
}

func buildInvitationMessage(from string, email InvitationEmail) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := msg.To(email.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", email.To, err)
	}
	msg.Subject(email.Subject())

	if err := msg.SetBodyHTMLTemplate(invitationTemplate, email); err != nil {
		return nil, fmt.Errorf("failed to render invitation: %w", err)
	}
	msg.AddAlternativeString(mail.TypeTextPlain, fmt.Sprintf(
		"%s invited you to join %s.\n\nAccept the invitation: %s\n\nThis invitation expires in 7 days.\n",
		email.InviterName, email.OrganizationName, email.AcceptURL))

	return msg, nil
}

// LogMailer only logs the invitation. Used in development.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer creates a log-only mailer
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// SendInvitationEmail logs the invitation and its accept link
func (m *LogMailer) SendInvitationEmail(ctx context.Context, email InvitationEmail) error {
	observability.ForRequest(ctx, m.logger).Info("invitation email",
		zap.String("to", email.To),
		zap.String("subject", email.Subject()),
		zap.String("accept_url", email.AcceptURL))
	return nil
}
