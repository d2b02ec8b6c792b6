package mail

import (
	"context"
	"fmt"
)

// Service composes the account-flow messages. Links are built from the
// configured public base URLs: verification and reactivation are confirmed
// against the backend directly, password reset and email change go through
// the frontend.
type Service struct {
	mailer      Mailer
	frontendURL string
	backendURL  string
}

func NewService(mailer Mailer, frontendURL, backendURL string) *Service {
	return &Service{mailer: mailer, frontendURL: frontendURL, backendURL: backendURL}
}

func (s *Service) SendVerificationEmail(ctx context.Context, to, firstName, code string) error {
	url := fmt.Sprintf("%s/users/activate/%s", s.backendURL, code)
	body := fmt.Sprintf(
		`<h2>Welcome to TaskHub, %s!</h2>
		 <p>Click the link below to confirm your email address:</p>
		 <a href="%s">Confirm email</a>`, firstName, url)
	return s.mailer.Send(ctx, to, "Confirm your email - TaskHub", body)
}

func (s *Service) SendResetPasswordEmail(ctx context.Context, to, token string) error {
	url := fmt.Sprintf("%s/reset-password/%s", s.frontendURL, token)
	body := fmt.Sprintf(
		`<p>Click the link below to reset your password:</p>
		 <a href="%s">%s</a>
		 <p>The link is valid for 15 minutes.</p>`, url, url)
	return s.mailer.Send(ctx, to, "Reset your password - TaskHub", body)
}

func (s *Service) SendReactivationEmail(ctx context.Context, to, token string) error {
	url := fmt.Sprintf("%s/auth/confirm-reactivation/%s", s.backendURL, token)
	body := fmt.Sprintf(
		`<h2>Reactivate your account</h2>
		 <p>Click the link below to reactivate your account:</p>
		 <a href="%s">Reactivate account</a>
		 <p>The link is valid for 15 minutes.</p>`, url)
	return s.mailer.Send(ctx, to, "Reactivate your account - TaskHub", body)
}

func (s *Service) SendEmailChangeEmail(ctx context.Context, to, token string) error {
	url := fmt.Sprintf("%s/confirm-email-change?token=%s", s.frontendURL, token)
	body := fmt.Sprintf(
		`<p>Click the link below to confirm your new email address:</p>
		 <a href="%s">Confirm</a>`, url)
	return s.mailer.Send(ctx, to, "Confirm your new email - TaskHub", body)
}
