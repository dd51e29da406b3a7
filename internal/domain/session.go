package domain

import (
	"context"
	"time"
)

// Session is the single live login of a user. Only the sha256 of the refresh token is
// stored; there is at most one row per user.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"-"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// Expired reports whether the session is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionRepository defines storage for user sessions.
type SessionRepository interface {
	// Replace atomically installs s as the user's only session. replaced is true when
	// a previous session row existed and was overwritten. s.ID is set on return.
	Replace(ctx context.Context, s *Session) (replaced bool, err error)
	GetByID(ctx context.Context, id string) (*Session, error)
	GetByRefreshTokenHash(ctx context.Context, hash string) (*Session, error)
	// Rotate swaps the refresh token hash only if the stored hash still equals oldHash.
	Rotate(ctx context.Context, sessionID, oldHash, newHash string, expiresAt time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

// AuthResult is returned by Login and Refresh.
type AuthResult struct {
	User         *User     `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	// Replaced is true when logging in superseded an existing session.
	Replaced bool `json:"replaced_previous_session"`
}

// AuthService is the session guard: sign-up, email verification, login, refresh,
// logout, password recovery and per-request authentication.
type AuthService interface {
	SignUp(ctx context.Context, email, password, name string, role Role) (*User, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, p Principal) error
	Authenticate(ctx context.Context, accessToken string) (Principal, error)
	ChangePassword(ctx context.Context, p Principal, currentPassword, newPassword string) error

	VerifyEmail(ctx context.Context, email, code string) error
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	DeleteAccount(ctx context.Context, p Principal) error
}
