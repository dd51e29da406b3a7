package domain

import "errors"

// Sentinel errors shared by services, repositories and the HTTP layer.
// Services return them unwrapped so callers can match with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")

	// Inventory ledger.
	ErrCapacityExceeded = errors.New("ticket capacity exceeded")

	// RSVP workflow.
	ErrDuplicateRSVP     = errors.New("active rsvp already exists for this event")
	ErrInvalidTransition = errors.New("invalid rsvp state transition")
	ErrEventNotOpen      = errors.New("event is not open for rsvps")
	ErrSaleClosed        = errors.New("ticket sale window is closed")

	// Check-in.
	ErrTokenNotFound    = errors.New("check-in token not found")
	ErrAlreadyCheckedIn = errors.New("ticket already checked in")
	ErrTicketCancelled  = errors.New("ticket has been cancelled")

	// Sessions and accounts.
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrEmailNotVerified   = errors.New("email address not verified")
	ErrAlreadyVerified    = errors.New("email address already verified")
	ErrInvalidOTP         = errors.New("invalid or expired code")
	ErrOTPCooldown        = errors.New("a code was sent recently, try again shortly")
)
