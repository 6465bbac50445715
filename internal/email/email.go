package email

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/Skotchmaster/accounts/internal/config"
	"github.com/Skotchmaster/accounts/pkg/logging"
)

type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Service struct {
	dialer Dialer
	from   string
	appURL string
}

func NewService(cfg config.SMTP, appURL string) *Service {
	return NewServiceWithDialer(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg.From, appURL)
}

func NewServiceWithDialer(d Dialer, from, appURL string) *Service {
	return &Service{dialer: d, from: from, appURL: strings.TrimRight(appURL, "/")}
}

func (s *Service) SendEmail(ctx context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		logging.FromContext(ctx).Error("send_email_failed", "to", to, "subject", subject, "error", err)
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func (s *Service) SendResetPasswordEmail(ctx context.Context, to, token string) error {
	link := ResetPasswordLink(s.appURL, token)
	body := `<h1>Password Reset Request</h1>
		<p>You requested a password reset. Click the link below to set a new password:</p>
		<a href="` + link + `">Reset Password</a>
		<p>If you did not request this, please ignore this email.</p>`
	return s.SendEmail(ctx, to, "Reset password", body)
}

func (s *Service) SendVerificationEmail(ctx context.Context, to, token string) error {
	link := VerifyEmailLink(s.appURL, token)
	body := `<h1>Email Verification</h1>
		<p>Please verify your email address by clicking the link below:</p>
		<a href="` + link + `">Verify Email</a>
		<p>If you did not create an account, then ignore this email.</p>`
	return s.SendEmail(ctx, to, "Email Verification", body)
}

func ResetPasswordLink(appURL, token string) string {
	return strings.TrimRight(appURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

func VerifyEmailLink(appURL, token string) string {
	return strings.TrimRight(appURL, "/") + "/verify-email?token=" + url.QueryEscape(token)
}

// LogSender writes the links to the log instead of mailing them. Used when
// SMTP_HOST is empty.
type LogSender struct {
	AppURL string
}

func (s LogSender) SendResetPasswordEmail(ctx context.Context, to, token string) error {
	logging.FromContext(ctx).Info("reset_password_email", "to", to, "link", ResetPasswordLink(s.AppURL, token))
	return nil
}

func (s LogSender) SendVerificationEmail(ctx context.Context, to, token string) error {
	logging.FromContext(ctx).Info("verification_email", "to", to, "link", VerifyEmailLink(s.AppURL, token))
	return nil
}
