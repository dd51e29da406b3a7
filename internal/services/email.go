package services

import (
	"context"
	"fmt"
	"log/slog"

	"eventrsvp/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendWelcomeMessage sends a welcome email using the "welcome" template and the given data.
func (s *emailService) SendWelcomeMessage(ctx context.Context, data *domain.WelcomeMessageEmailData) error {
	if data == nil {
		return fmt.Errorf("welcome message data is nil")
	}
	if err := s.send(ctx, "welcome", data.Email, data); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "welcome email sent", "to", data.Email)
	return nil
}

// SendRSVPConfirmation sends the ticket confirmation using the "rsvp_confirmation" template.
func (s *emailService) SendRSVPConfirmation(ctx context.Context, data *domain.RSVPConfirmationEmailData) error {
	if data == nil {
		return fmt.Errorf("rsvp confirmation data is nil")
	}
	if err := s.send(ctx, "rsvp_confirmation", data.Email, data); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "rsvp confirmation sent", "to", data.Email, "event", data.EventTitle)
	return nil
}

// SendVerificationCode mails the sign-up code ("email_verification").
func (s *emailService) SendVerificationCode(ctx context.Context, data *domain.OneTimeCodeEmailData) error {
	if data == nil {
		return fmt.Errorf("verification code data is nil")
	}
	if err := s.send(ctx, "email_verification", data.Email, data); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "verification code sent", "to", data.Email)
	return nil
}

// SendPasswordResetCode mails the password reset code ("password_reset").
func (s *emailService) SendPasswordResetCode(ctx context.Context, data *domain.OneTimeCodeEmailData) error {
	if data == nil {
		return fmt.Errorf("password reset data is nil")
	}
	if err := s.send(ctx, "password_reset", data.Email, data); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "password reset code sent", "to", data.Email)
	return nil
}

func (s *emailService) SendAccountDeleted(ctx context.Context, data *domain.AccountDeletedEmailData) error {
	if data == nil {
		return fmt.Errorf("account deleted data is nil")
	}
	return s.send(ctx, "account_deleted", data.Email, data)
}

func (s *emailService) send(ctx context.Context, templateName, to string, data any) error {
	subject, htmlBody, textBody, err := s.renderer.Render(templateName, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", templateName, err)
	}
	if err := s.mailer.Send(ctx, to, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send %s email: %w", templateName, err)
	}
	return nil
}
