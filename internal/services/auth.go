package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"eventrsvp/internal/clock"
	"eventrsvp/internal/domain"
)

const (
	minPasswordLen  = 8
	tokenTypeBearer = "Bearer"

	defaultOTPTTL     = 10 * time.Minute
	otpResendCooldown = 2 * time.Minute
)

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// AuthDeps groups the collaborators of the session guard.
type AuthDeps struct {
	Users      domain.UserRepository
	Sessions   domain.SessionRepository
	Hasher     domain.PasswordHasher
	Issuer     domain.TokenIssuer
	Verifier   domain.TokenVerifier
	Email      domain.EmailService
	Clock      clock.Clock
	Logger     *slog.Logger
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// OTPTTL bounds verification and reset codes; zero means 10 minutes.
	OTPTTL time.Duration
}

type authService struct {
	AuthDeps
}

// NewAuthService creates the session guard. Each user holds at most one session; a new
// login replaces it.
func NewAuthService(deps AuthDeps) domain.AuthService {
	if deps.OTPTTL <= 0 {
		deps.OTPTTL = defaultOTPTTL
	}
	return &authService{AuthDeps: deps}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func validateEmail(email string) error {
	if !emailRegexp.MatchString(email) {
		return fmt.Errorf("%w: invalid email format", domain.ErrInvalidInput)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, minPasswordLen)
	}
	return nil
}

func (s *authService) SignUp(ctx context.Context, email, password, name string, role domain.Role) (*domain.User, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}
	switch role {
	case "":
		role = domain.RoleAttendee
	case domain.RoleAttendee, domain.RoleOrganizer:
	default:
		return nil, fmt.Errorf("%w: role must be attendee or organizer", domain.ErrInvalidInput)
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	code, err := generateOTP()
	if err != nil {
		return nil, fmt.Errorf("generate verification code: %w", err)
	}
	now := s.Clock.Now()
	expiresAt := now.Add(s.OTPTTL)
	user := domain.NewUser(email, name, hash, role, now, now)
	user.EmailOTPHash = hashToken(code)
	user.EmailOTPExpiresAt = &expiresAt
	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	// The account can ask for a new code, so a failed send does not undo the sign-up.
	if err := s.sendCode(ctx, s.emailVerification, user, code); err != nil {
		s.Logger.WarnContext(ctx, "verification email failed", "user_id", user.ID, "err", err)
	}
	return user, nil
}

// VerifyEmail activates a pending account when code matches the one mailed at sign-up.
func (s *authService) VerifyEmail(ctx context.Context, email, code string) error {
	user, err := s.Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return otpErr(err, "get user")
	}
	if user.EmailVerified {
		return domain.ErrAlreadyVerified
	}
	now := s.Clock.Now()
	if user.Deleted() || !otpMatches(user.EmailOTPHash, user.EmailOTPExpiresAt, strings.TrimSpace(code), now) {
		return domain.ErrInvalidOTP
	}
	if err := s.Users.MarkEmailVerified(ctx, user.ID, now); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}

	if s.Email != nil {
		if err := s.Email.SendWelcomeMessage(ctx, &domain.WelcomeMessageEmailData{Email: user.Email, Name: user.Name}); err != nil {
			s.Logger.WarnContext(ctx, "welcome email failed", "user_id", user.ID, "err", err)
		}
	}
	return nil
}

// ResendVerification mails a fresh sign-up code. Unknown addresses succeed silently.
func (s *authService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}
	if user.Deleted() {
		return nil
	}
	if user.EmailVerified {
		return domain.ErrAlreadyVerified
	}
	now := s.Clock.Now()
	if s.recentlyIssued(user.EmailOTPExpiresAt, now) {
		return domain.ErrOTPCooldown
	}

	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate verification code: %w", err)
	}
	if err := s.Users.SetEmailOTP(ctx, user.ID, hashToken(code), now.Add(s.OTPTTL)); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}
	return s.sendCode(ctx, s.emailVerification, user, code)
}

// ForgotPassword mails a reset code to a verified account. Unknown or closed accounts
// succeed silently so the endpoint does not reveal which addresses are registered.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get user: %w", err)
	}
	if user.Deleted() {
		return nil
	}
	if !user.EmailVerified {
		return domain.ErrEmailNotVerified
	}
	now := s.Clock.Now()
	if s.recentlyIssued(user.ResetOTPExpiresAt, now) {
		return domain.ErrOTPCooldown
	}

	code, err := generateOTP()
	if err != nil {
		return fmt.Errorf("generate reset code: %w", err)
	}
	if err := s.Users.SetPasswordResetOTP(ctx, user.ID, hashToken(code), now.Add(s.OTPTTL)); err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}
	return s.sendCode(ctx, s.passwordReset, user, code)
}

// ResetPassword sets a new password when code matches the mailed reset code and signs
// the user out everywhere.
func (s *authService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	user, err := s.Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return otpErr(err, "get user")
	}
	now := s.Clock.Now()
	if user.Deleted() || !otpMatches(user.ResetOTPHash, user.ResetOTPExpiresAt, strings.TrimSpace(code), now) {
		return domain.ErrInvalidOTP
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Users.ResetPassword(ctx, user.ID, hash, now); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if err := s.Sessions.DeleteByUserID(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

// DeleteAccount closes the caller's account. The row and its RSVPs are kept; the
// account can no longer log in and its session is revoked.
func (s *authService) DeleteAccount(ctx context.Context, p domain.Principal) error {
	user, err := s.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return sessionErr(err, "get user")
	}
	if err := s.Users.SoftDelete(ctx, user.ID, s.Clock.Now()); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if err := s.Sessions.DeleteByUserID(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	if s.Email != nil {
		if err := s.Email.SendAccountDeleted(ctx, &domain.AccountDeletedEmailData{Email: user.Email, Name: user.Name}); err != nil {
			s.Logger.WarnContext(ctx, "account deleted email failed", "user_id", user.ID, "err", err)
		}
	}
	return nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	user, err := s.Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := s.Hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.EmailVerified && !user.Deleted() {
		return nil, domain.ErrEmailNotVerified
	}
	if !user.IsActive || user.Deleted() {
		return nil, domain.ErrAccountInactive
	}

	refresh, err := generateToken(refreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	now := s.Clock.Now()
	session := &domain.Session{
		UserID:           user.ID,
		RefreshTokenHash: hashToken(refresh),
		ExpiresAt:        now.Add(s.RefreshTTL),
		CreatedAt:        now,
	}
	replaced, err := s.Sessions.Replace(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	if replaced {
		s.Logger.InfoContext(ctx, "previous session replaced", "user_id", user.ID)
	}
	if err := s.Users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.Logger.WarnContext(ctx, "touch last login failed", "user_id", user.ID, "err", err)
	} else {
		user.LastLoginAt = &now
	}

	result, err := s.result(user, session.ID, refresh, now)
	if err != nil {
		return nil, err
	}
	result.Replaced = replaced
	return result, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	if refreshToken == "" {
		return nil, domain.ErrInvalidSession
	}
	oldHash := hashToken(refreshToken)
	session, err := s.Sessions.GetByRefreshTokenHash(ctx, oldHash)
	if err != nil {
		return nil, sessionErr(err, "get session")
	}
	now := s.Clock.Now()
	if session.Expired(now) {
		if err := s.Sessions.Delete(ctx, session.ID); err != nil {
			s.Logger.WarnContext(ctx, "delete expired session failed", "session_id", session.ID, "err", err)
		}
		return nil, domain.ErrInvalidSession
	}

	user, err := s.Users.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, sessionErr(err, "get user")
	}
	if !user.IsActive || user.Deleted() {
		return nil, domain.ErrAccountInactive
	}

	refresh, err := generateToken(refreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.Sessions.Rotate(ctx, session.ID, oldHash, hashToken(refresh), now.Add(s.RefreshTTL)); err != nil {
		return nil, sessionErr(err, "rotate session")
	}
	return s.result(user, session.ID, refresh, now)
}

func (s *authService) Logout(ctx context.Context, p domain.Principal) error {
	if p.SessionID == "" {
		return domain.ErrInvalidSession
	}
	if err := s.Sessions.Delete(ctx, p.SessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *authService) Authenticate(ctx context.Context, accessToken string) (domain.Principal, error) {
	claims, err := s.Verifier.Verify(accessToken)
	if err != nil {
		return domain.Principal{}, domain.ErrInvalidSession
	}
	session, err := s.Sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return domain.Principal{}, sessionErr(err, "get session")
	}
	if session.UserID != claims.UserID || session.Expired(s.Clock.Now()) {
		return domain.Principal{}, domain.ErrInvalidSession
	}
	return domain.Principal{UserID: claims.UserID, Role: claims.Role, SessionID: session.ID}, nil
}

func (s *authService) ChangePassword(ctx context.Context, p domain.Principal, currentPassword, newPassword string) error {
	user, err := s.Users.GetByID(ctx, p.UserID)
	if err != nil {
		return sessionErr(err, "get user")
	}
	if err := s.Hasher.Compare(user.PasswordHash, currentPassword); err != nil {
		return domain.ErrInvalidCredentials
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if newPassword == currentPassword {
		return fmt.Errorf("%w: new password must differ from the current one", domain.ErrInvalidInput)
	}
	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.Users.UpdatePassword(ctx, user.ID, hash, s.Clock.Now()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	// Existing refresh and access tokens stop working; the user logs in again.
	if err := s.Sessions.DeleteByUserID(ctx, user.ID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

func (s *authService) result(user *domain.User, sessionID, refresh string, now time.Time) (*domain.AuthResult, error) {
	expiresAt := now.Add(s.AccessTTL)
	access, err := s.Issuer.Issue(domain.AccessClaims{
		UserID:    user.ID,
		Role:      user.Role,
		SessionID: sessionID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	return &domain.AuthResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresAt:    expiresAt,
	}, nil
}

type codeSender func(ctx context.Context, data *domain.OneTimeCodeEmailData) error

func (s *authService) emailVerification(ctx context.Context, data *domain.OneTimeCodeEmailData) error {
	return s.Email.SendVerificationCode(ctx, data)
}

func (s *authService) passwordReset(ctx context.Context, data *domain.OneTimeCodeEmailData) error {
	return s.Email.SendPasswordResetCode(ctx, data)
}

func (s *authService) sendCode(ctx context.Context, send codeSender, user *domain.User, code string) error {
	if s.Email == nil {
		return nil
	}
	return send(ctx, &domain.OneTimeCodeEmailData{
		Email:            user.Email,
		Name:             user.Name,
		Code:             code,
		ExpiresInMinutes: int(s.OTPTTL / time.Minute),
	})
}

// recentlyIssued reports whether a code expiring at expiresAt was issued less than
// otpResendCooldown before now.
func (s *authService) recentlyIssued(expiresAt *time.Time, now time.Time) bool {
	if expiresAt == nil {
		return false
	}
	issuedAt := expiresAt.Add(-s.OTPTTL)
	return now.Before(issuedAt.Add(otpResendCooldown))
}

// otpErr hides whether the address exists behind ErrInvalidOTP.
func otpErr(err error, op string) error {
	if errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidOTP
	}
	return fmt.Errorf("%s: %w", op, err)
}

// sessionErr collapses missing sessions and users into ErrInvalidSession.
func sessionErr(err error, op string) error {
	switch {
	case errors.Is(err, domain.ErrInvalidSession),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return domain.ErrInvalidSession
	}
	return fmt.Errorf("%s: %w", op, err)
}
