package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventrsvp/internal/clock"
	"eventrsvp/internal/domain"
)

type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "hashed:" + pw, nil }

func (plainHasher) Compare(hash, pw string) error {
	if hash != "hashed:"+pw {
		return domain.ErrInvalidCredentials
	}
	return nil
}

// fakeTokens issues opaque access tokens and remembers their claims.
type fakeTokens struct {
	mu     sync.Mutex
	seq    int
	issued map[string]domain.AccessClaims
	now    func() time.Time
}

func newFakeTokens(c clock.Clock) *fakeTokens {
	return &fakeTokens{issued: map[string]domain.AccessClaims{}, now: c.Now}
}

func (f *fakeTokens) Issue(claims domain.AccessClaims) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	token := fmt.Sprintf("access-%d", f.seq)
	f.issued[token] = claims
	return token, nil
}

func (f *fakeTokens) Verify(token string) (*domain.AccessClaims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	claims, ok := f.issued[token]
	if !ok || !f.now().Before(claims.ExpiresAt) {
		return nil, errors.New("bad token")
	}
	return &claims, nil
}

// stepClock is a clock tests can move forward.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type authFixture struct {
	store *memStore
	clock *stepClock
	email *fakeEmailService
	auth  domain.AuthService
}

func newAuthFixture() *authFixture {
	store := newMemStore()
	c := &stepClock{now: testNow}
	email := &fakeEmailService{}
	tokens := newFakeTokens(c)
	return &authFixture{
		store: store,
		clock: c,
		email: email,
		auth: NewAuthService(AuthDeps{
			Users:      memUsers{store},
			Sessions:   memSessions{store},
			Hasher:     plainHasher{},
			Issuer:     tokens,
			Verifier:   tokens,
			Email:      email,
			Clock:      c,
			Logger:     discardLogger(),
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 24 * time.Hour,
		}),
	}
}

// signUp registers and verifies an account, leaving it able to log in.
func (f *authFixture) signUp(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := f.auth.SignUp(context.Background(), email, "correct-horse", "Alice", "")
	require.NoError(t, err)
	require.NoError(t, f.auth.VerifyEmail(context.Background(), email, f.verificationCode(email)))
	return u
}

func (f *authFixture) verificationCode(email string) string {
	f.email.mu.Lock()
	defer f.email.mu.Unlock()
	return lastCode(f.email.verification, email)
}

func (f *authFixture) resetCode(email string) string {
	f.email.mu.Lock()
	defer f.email.mu.Unlock()
	return lastCode(f.email.resets, email)
}

func (f *authFixture) storedUser(id string) domain.User {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.users[id]
}

func TestAuthService_SignUp(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	u, err := f.auth.SignUp(ctx, "  Alice@Example.COM ", "correct-horse", " Alice ", "")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, domain.RoleAttendee, u.Role)
	assert.Equal(t, "hashed:correct-horse", u.PasswordHash)
	assert.False(t, u.IsActive)
	assert.False(t, u.EmailVerified)
	require.Len(t, f.email.verification, 1)
	assert.Len(t, f.email.verification[0].Code, otpDigits)
	assert.Equal(t, 10, f.email.verification[0].ExpiresInMinutes)
	assert.Empty(t, f.email.welcome)
	assert.Equal(t, hashToken(f.email.verification[0].Code), f.storedUser(u.ID).EmailOTPHash)

	_, err = f.auth.SignUp(ctx, "alice@example.com", "correct-horse", "Alice", "")
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)

	org, err := f.auth.SignUp(ctx, "org@example.com", "correct-horse", "Org", domain.RoleOrganizer)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOrganizer, org.Role)
}

func TestAuthService_SignUpValidation(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		userName string
		role     domain.Role
	}{
		{"bad email", "not-an-email", "correct-horse", "A", ""},
		{"short password", "a@example.com", "short", "A", ""},
		{"missing name", "a@example.com", "correct-horse", "  ", ""},
		{"admin self sign-up", "a@example.com", "correct-horse", "A", domain.RoleAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture()
			_, err := f.auth.SignUp(context.Background(), tt.email, tt.password, tt.userName, tt.role)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Empty(t, f.email.verification)
		})
	}
}

func TestAuthService_EmailFailuresDoNotFailSignUp(t *testing.T) {
	f := newAuthFixture()
	f.email.err = errors.New("smtp down")
	u := f.signUp(t, "alice@example.com")
	assert.NotEmpty(t, u.ID)
	assert.True(t, f.storedUser(u.ID).IsActive)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	u := f.signUp(t, "alice@example.com")

	res, err := f.auth.Login(ctx, "ALICE@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.False(t, res.Replaced)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, testNow.Add(15*time.Minute), res.ExpiresAt)
	require.NotNil(t, res.User.LastLoginAt)

	p, err := f.auth.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)
	assert.Equal(t, domain.RoleAttendee, p.Role)

	_, err = f.auth.Login(ctx, "alice@example.com", "wrong-password")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, "nobody@example.com", "correct-horse")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_LoginReplacesPreviousSession(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.signUp(t, "alice@example.com")

	first, err := f.auth.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)
	second, err := f.auth.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)
	assert.True(t, second.Replaced)

	_, err = f.auth.Authenticate(ctx, first.AccessToken)
	require.ErrorIs(t, err, domain.ErrInvalidSession)
	_, err = f.auth.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, domain.ErrInvalidSession)

	_, err = f.auth.Authenticate(ctx, second.AccessToken)
	require.NoError(t, err)
	assert.Len(t, f.store.sessions, 1)
}

func TestAuthService_InactiveAccount(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	u := f.signUp(t, "alice@example.com")

	f.store.mu.Lock()
	stored := f.store.users[u.ID]
	stored.IsActive = false
	f.store.users[u.ID] = stored
	f.store.mu.Unlock()

	_, err := f.auth.Login(ctx, "alice@example.com", "correct-horse")
	require.ErrorIs(t, err, domain.ErrAccountInactive)
	assert.Empty(t, f.store.sessions)
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.signUp(t, "alice@example.com")
	login, err := f.auth.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)

	refreshed, err := f.auth.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// The rotated-out token is dead.
	_, err = f.auth.Refresh(ctx, login.RefreshToken)
	require.ErrorIs(t, err, domain.ErrInvalidSession)

	_, err = f.auth.Refresh(ctx, refreshed.RefreshToken)
	require.NoError(t, err)

	_, err = f.auth.Refresh(ctx, "")
	require.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestAuthService_RefreshExpiredSession(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.signUp(t, "alice@example.com")
	login, err := f.auth.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)

	_, err = f.auth.Refresh(ctx, login.RefreshToken)
	require.ErrorIs(t, err, domain.ErrInvalidSession)
	assert.Empty(t, f.store.sessions)
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.signUp(t, "alice@example.com")
	login, err := f.auth.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)
	p, err := f.auth.Authenticate(ctx, login.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, p))

	_, err = f.auth.Authenticate(ctx, login.AccessToken)
	require.ErrorIs(t, err, domain.ErrInvalidSession)
	_, err = f.auth.Refresh(ctx, login.RefreshToken)
	require.ErrorIs(t, err, domain.ErrInvalidSession)

	require.ErrorIs(t, f.auth.Logout(ctx, domain.Principal{UserID: p.UserID}), domain.ErrInvalidSession)
}

func TestAuthService_AuthenticateRejectsGarbage(t *testing.T) {
	f := newAuthFixture()
	_, err := f.auth.Authenticate(context.Background(), "not-a-token")
	require.ErrorIs(t, err, domain.ErrInvalidSession)
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.signUp(t, "alice@example.com")
	login, err := f.auth.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)
	p, err := f.auth.Authenticate(ctx, login.AccessToken)
	require.NoError(t, err)

	err = f.auth.ChangePassword(ctx, p, "wrong-password", "battery-staple")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	err = f.auth.ChangePassword(ctx, p, "correct-horse", "short")
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	err = f.auth.ChangePassword(ctx, p, "correct-horse", "correct-horse")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, f.auth.ChangePassword(ctx, p, "correct-horse", "battery-staple"))

	_, err = f.auth.Authenticate(ctx, login.AccessToken)
	require.ErrorIs(t, err, domain.ErrInvalidSession)
	_, err = f.auth.Login(ctx, "alice@example.com", "correct-horse")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	res, err := f.auth.Login(ctx, "alice@example.com", "battery-staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.AccessToken, "access-"))
}

func TestAuthService_VerifyEmail(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	u, err := f.auth.SignUp(ctx, "alice@example.com", "correct-horse", "Alice", "")
	require.NoError(t, err)
	code := f.verificationCode("alice@example.com")

	_, err = f.auth.Login(ctx, "alice@example.com", "correct-horse")
	require.ErrorIs(t, err, domain.ErrEmailNotVerified)

	tests := []struct {
		name  string
		email string
		code  string
	}{
		{"wrong code", "alice@example.com", "000000x"},
		{"empty code", "alice@example.com", ""},
		{"unknown email", "nobody@example.com", code},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, f.auth.VerifyEmail(ctx, tt.email, tt.code), domain.ErrInvalidOTP)
		})
	}
	assert.False(t, f.storedUser(u.ID).EmailVerified)

	require.NoError(t, f.auth.VerifyEmail(ctx, " ALICE@example.com ", code))
	stored := f.storedUser(u.ID)
	assert.True(t, stored.EmailVerified)
	assert.True(t, stored.IsActive)
	assert.Empty(t, stored.EmailOTPHash)
	require.Len(t, f.email.welcome, 1)

	require.ErrorIs(t, f.auth.VerifyEmail(ctx, "alice@example.com", code), domain.ErrAlreadyVerified)
	_, err = f.auth.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)
}

func TestAuthService_VerifyEmailExpiredCode(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	_, err := f.auth.SignUp(ctx, "alice@example.com", "correct-horse", "Alice", "")
	require.NoError(t, err)

	f.clock.Advance(11 * time.Minute)
	err = f.auth.VerifyEmail(ctx, "alice@example.com", f.verificationCode("alice@example.com"))
	require.ErrorIs(t, err, domain.ErrInvalidOTP)
}

func TestAuthService_ResendVerification(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	_, err := f.auth.SignUp(ctx, "alice@example.com", "correct-horse", "Alice", "")
	require.NoError(t, err)

	require.ErrorIs(t, f.auth.ResendVerification(ctx, "alice@example.com"), domain.ErrOTPCooldown)

	require.NoError(t, f.auth.ResendVerification(ctx, "nobody@example.com"))
	assert.Len(t, f.email.verification, 1)

	// Past the cooldown and past the first code's expiry: only the new code works.
	f.clock.Advance(11 * time.Minute)
	require.NoError(t, f.auth.ResendVerification(ctx, "alice@example.com"))
	require.Len(t, f.email.verification, 2)
	require.NoError(t, f.auth.VerifyEmail(ctx, "alice@example.com", f.verificationCode("alice@example.com")))

	require.ErrorIs(t, f.auth.ResendVerification(ctx, "alice@example.com"), domain.ErrAlreadyVerified)
}

func TestAuthService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.signUp(t, "alice@example.com")
	login, err := f.auth.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, f.auth.ForgotPassword(ctx, "nobody@example.com"))
	assert.Empty(t, f.email.resets)

	require.NoError(t, f.auth.ForgotPassword(ctx, "Alice@Example.com"))
	require.Len(t, f.email.resets, 1)
	code := f.resetCode("alice@example.com")
	require.ErrorIs(t, f.auth.ForgotPassword(ctx, "alice@example.com"), domain.ErrOTPCooldown)

	tests := []struct {
		name     string
		email    string
		code     string
		password string
		wantErr  error
	}{
		{"wrong code", "alice@example.com", "not-it", "battery-staple", domain.ErrInvalidOTP},
		{"unknown email", "nobody@example.com", code, "battery-staple", domain.ErrInvalidOTP},
		{"short password", "alice@example.com", code, "short", domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, f.auth.ResetPassword(ctx, tt.email, tt.code, tt.password), tt.wantErr)
		})
	}

	require.NoError(t, f.auth.ResetPassword(ctx, "alice@example.com", code, "battery-staple"))

	// Every session is revoked and the code is single-use.
	_, err = f.auth.Refresh(ctx, login.RefreshToken)
	require.ErrorIs(t, err, domain.ErrInvalidSession)
	require.ErrorIs(t, f.auth.ResetPassword(ctx, "alice@example.com", code, "another-pass"), domain.ErrInvalidOTP)

	_, err = f.auth.Login(ctx, "alice@example.com", "correct-horse")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.auth.Login(ctx, "alice@example.com", "battery-staple")
	require.NoError(t, err)
}

func TestAuthService_PasswordResetRejections(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	_, err := f.auth.SignUp(ctx, "pending@example.com", "correct-horse", "Pending", "")
	require.NoError(t, err)
	require.ErrorIs(t, f.auth.ForgotPassword(ctx, "pending@example.com"), domain.ErrEmailNotVerified)

	f.signUp(t, "alice@example.com")
	require.NoError(t, f.auth.ForgotPassword(ctx, "alice@example.com"))
	code := f.resetCode("alice@example.com")

	f.clock.Advance(11 * time.Minute)
	err = f.auth.ResetPassword(ctx, "alice@example.com", code, "battery-staple")
	require.ErrorIs(t, err, domain.ErrInvalidOTP)
}

func TestAuthService_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	u := f.signUp(t, "alice@example.com")
	login, err := f.auth.Login(ctx, "alice@example.com", "correct-horse")
	require.NoError(t, err)
	p, err := f.auth.Authenticate(ctx, login.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.auth.DeleteAccount(ctx, p))

	stored := f.storedUser(u.ID)
	assert.False(t, stored.IsActive)
	require.NotNil(t, stored.DeletedAt)
	assert.True(t, stored.DeletedAt.Equal(testNow))
	require.Len(t, f.email.deleted, 1)
	assert.Equal(t, "alice@example.com", f.email.deleted[0].Email)

	_, err = f.auth.Authenticate(ctx, login.AccessToken)
	require.ErrorIs(t, err, domain.ErrInvalidSession)
	_, err = f.auth.Login(ctx, "alice@example.com", "correct-horse")
	require.ErrorIs(t, err, domain.ErrAccountInactive)

	// Closed accounts cannot be recovered through the reset flow.
	require.NoError(t, f.auth.ForgotPassword(ctx, "alice@example.com"))
	assert.Empty(t, f.email.resets)

	require.ErrorIs(t, f.auth.DeleteAccount(ctx, domain.Principal{UserID: "missing"}), domain.ErrInvalidSession)
}
