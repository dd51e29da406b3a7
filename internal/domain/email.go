package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// WelcomeMessageEmailData holds data for the welcome email.
type WelcomeMessageEmailData struct {
	Email string
	Name  string
}

// RSVPConfirmationEmailData holds data for the RSVP confirmation email.
type RSVPConfirmationEmailData struct {
	Email          string
	Name           string
	EventTitle     string
	EventLocation  string
	EventStart     string
	TicketTypeName string
	CheckInToken   string
	// QRCodeDataURI is a data:image/png;base64 URI of the check-in QR code, if available.
	QRCodeDataURI string
}

// OneTimeCodeEmailData holds data for emails that carry a verification or reset code.
type OneTimeCodeEmailData struct {
	Email            string
	Name             string
	Code             string
	ExpiresInMinutes int
}

// AccountDeletedEmailData holds data for the account closure notice.
type AccountDeletedEmailData struct {
	Email string
	Name  string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendWelcomeMessage(ctx context.Context, data *WelcomeMessageEmailData) error
	SendRSVPConfirmation(ctx context.Context, data *RSVPConfirmationEmailData) error
	SendVerificationCode(ctx context.Context, data *OneTimeCodeEmailData) error
	SendPasswordResetCode(ctx context.Context, data *OneTimeCodeEmailData) error
	SendAccountDeleted(ctx context.Context, data *AccountDeletedEmailData) error
}

// QRGenerator renders a check-in token as a scannable PNG image.
type QRGenerator interface {
	Encode(token string) ([]byte, error)
}
