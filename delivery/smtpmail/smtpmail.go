// Package smtpmail delivers verification and TOTP setup emails over SMTP.
package smtpmail

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Config carries SMTP connection and sender identity settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// From is the sender address; FromName the display name shown to users.
	From     string
	FromName string
}

// Sender sends the email side of the delivery gateway. It dials per send, so
// a dead SMTP relay surfaces as a delivery error on the failing call only.
type Sender struct {
	config Config
	client *mail.Client
}

// New validates cfg and returns a Sender.
func New(cfg Config) (*Sender, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host required")
	}
	if cfg.From == "" {
		return nil, errors.New("sender address required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, err
	}

	return &Sender{config: cfg, client: client}, nil
}

// SendVerificationCode emails the account verification code.
func (s *Sender) SendVerificationCode(ctx context.Context, email, code string) error {
	return s.send(ctx, email, "Verify Your Email - BBA Services", verificationBody(code))
}

// SendTOTPSetup emails authenticator setup instructions after verification.
func (s *Sender) SendTOTPSetup(ctx context.Context, email, secret, provisioningURI string) error {
	return s.send(ctx, email, "BBA Services - TOTP Setup Instructions", totpSetupBody(secret, provisioningURI))
}

func (s *Sender) send(ctx context.Context, to, subject, htmlBody string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.config.FromName, s.config.From); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	return s.client.DialAndSendWithContext(ctx, msg)
}

func verificationBody(code string) string {
	return fmt.Sprintf(`<h2>Welcome to BBA Services!</h2>
<p>Your verification code is: <strong style="font-size: 24px;">%s</strong></p>
<p>This code will expire in 10 minutes.</p>
<p>After verification, you'll receive your TOTP setup instructions.</p>`, code)
}

func totpSetupBody(secret, provisioningURI string) string {
	return fmt.Sprintf(`<h2>Email Verified Successfully!</h2>
<p>Your account is now verified. For security, we use two-factor authentication.</p>
<p><strong>Your TOTP Secret:</strong> <code>%s</code></p>
<p>Set this up in your authenticator app (Google Authenticator, Authy, etc.):</p>
<ol>
<li>Open your authenticator app</li>
<li>Add a new account</li>
<li>Scan the QR code or enter the secret above</li>
<li>Use the generated codes to log in</li>
</ol>
<p><a href="%s">Open in authenticator</a></p>`, secret, provisioningURI)
}
