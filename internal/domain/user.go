package domain

import (
	"context"
	"time"
)

// User represents a registered user
// swagger:model User
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	PasswordHash  string     `json:"-"`
	Role          Role       `json:"role"`
	IsActive      bool       `json:"is_active"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	DeletedAt     *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	// One-time codes are stored as sha256 hashes.
	EmailOTPHash      string     `json:"-"`
	EmailOTPExpiresAt *time.Time `json:"-"`
	ResetOTPHash      string     `json:"-"`
	ResetOTPExpiresAt *time.Time `json:"-"`
}

// NewUser returns a User that stays inactive until its email address is verified.
// ID is set by the repository on create.
func NewUser(email, name, passwordHash string, role Role, createdAt, updatedAt time.Time) *User {
	return &User{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
}

// MarkVerified activates the account and drops the pending verification code.
func (u *User) MarkVerified(at time.Time) {
	u.EmailVerified = true
	u.IsActive = true
	u.EmailOTPHash = ""
	u.EmailOTPExpiresAt = nil
	u.UpdatedAt = at
}

// Deleted reports whether the account was closed by its owner.
func (u *User) Deleted() bool {
	return u.DeletedAt != nil
}

// PasswordHasher hashes and verifies passwords.
// Implementations may use bcrypt, argon2, etc.
type PasswordHasher interface {
	Hash(password string) (hash string, err error)
	Compare(hash, password string) error
}

// AccessClaims are the verified contents of an access token.
type AccessClaims struct {
	UserID    string
	Role      Role
	SessionID string
	ExpiresAt time.Time
}

// TokenIssuer issues signed access tokens (e.g. JWT).
type TokenIssuer interface {
	Issue(claims AccessClaims) (string, error)
}

// TokenVerifier verifies an access token signature and expiry.
type TokenVerifier interface {
	Verify(token string) (*AccessClaims, error)
}

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
	SetEmailOTP(ctx context.Context, userID, otpHash string, expiresAt time.Time) error
	// MarkEmailVerified activates the account and clears the verification code.
	MarkEmailVerified(ctx context.Context, userID string, at time.Time) error
	SetPasswordResetOTP(ctx context.Context, userID, otpHash string, expiresAt time.Time) error
	// ResetPassword stores the new hash and clears the reset code.
	ResetPassword(ctx context.Context, userID, passwordHash string, at time.Time) error
	// SoftDelete deactivates the account and stamps deleted_at; the row is kept.
	SoftDelete(ctx context.Context, userID string, at time.Time) error
}

// UserService defines profile operations for the authenticated user.
type UserService interface {
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateProfile(ctx context.Context, p Principal, name, email string) (*User, error)
}
