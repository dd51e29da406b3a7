package postgres

import (
	"context"
	"database/sql"
	"time"

	"eventrsvp/internal/domain"
)

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

const userColumns = `id, email, password_hash, name, role, is_active, email_verified,
	email_otp_hash, email_otp_expires_at, password_reset_otp_hash, password_reset_otp_expires_at,
	last_login_at, deleted_at, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (email, password_hash, name, role, is_active, email_verified,
			email_otp_hash, email_otp_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	err := conn(ctx, r.DB).QueryRowContext(ctx, query,
		u.Email, u.PasswordHash, u.Name, u.Role, u.IsActive, u.EmailVerified,
		nullString(u.EmailOTPHash), nullTime(u.EmailOTPExpiresAt), u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEmail
	}
	return err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(conn(ctx, r.DB).QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, userNotFound(err)
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, userNotFound(err)
	}
	return u, nil
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users SET name = $1, email = $2, updated_at = $3
		WHERE id = $4
	`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, u.Name, u.Email, u.UpdatedAt, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return userNotFound(err)
	}
	return requireOneRow(res, domain.ErrUserNotFound)
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, updatedAt time.Time) error {
	query := `UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, passwordHash, updatedAt, userID)
	if err != nil {
		return userNotFound(err)
	}
	return requireOneRow(res, domain.ErrUserNotFound)
}

func (r *userRepository) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	query := `UPDATE users SET last_login_at = $1 WHERE id = $2`
	_, err := conn(ctx, r.DB).ExecContext(ctx, query, at, userID)
	return err
}

func (r *userRepository) SetEmailOTP(ctx context.Context, userID, otpHash string, expiresAt time.Time) error {
	query := `UPDATE users SET email_otp_hash = $1, email_otp_expires_at = $2 WHERE id = $3`
	return r.execOne(ctx, query, otpHash, expiresAt, userID)
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, userID string, at time.Time) error {
	query := `
		UPDATE users
		SET email_verified = TRUE, is_active = TRUE,
			email_otp_hash = NULL, email_otp_expires_at = NULL, updated_at = $1
		WHERE id = $2
	`
	return r.execOne(ctx, query, at, userID)
}

func (r *userRepository) SetPasswordResetOTP(ctx context.Context, userID, otpHash string, expiresAt time.Time) error {
	query := `UPDATE users SET password_reset_otp_hash = $1, password_reset_otp_expires_at = $2 WHERE id = $3`
	return r.execOne(ctx, query, otpHash, expiresAt, userID)
}

func (r *userRepository) ResetPassword(ctx context.Context, userID, passwordHash string, at time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $1, password_reset_otp_hash = NULL,
			password_reset_otp_expires_at = NULL, updated_at = $2
		WHERE id = $3
	`
	return r.execOne(ctx, query, passwordHash, at, userID)
}

func (r *userRepository) SoftDelete(ctx context.Context, userID string, at time.Time) error {
	query := `
		UPDATE users SET is_active = FALSE, deleted_at = $1, updated_at = $1
		WHERE id = $2 AND deleted_at IS NULL
	`
	return r.execOne(ctx, query, at, userID)
}

func (r *userRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, args...)
	if err != nil {
		return userNotFound(err)
	}
	return requireOneRow(res, domain.ErrUserNotFound)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	u := &domain.User{}
	var (
		emailOTP, resetOTP       sql.NullString
		emailOTPExp, resetOTPExp sql.NullTime
		lastLogin, deletedAt     sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.IsActive, &u.EmailVerified,
		&emailOTP, &emailOTPExp, &resetOTP, &resetOTPExp,
		&lastLogin, &deletedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.EmailOTPHash = emailOTP.String
	u.ResetOTPHash = resetOTP.String
	u.EmailOTPExpiresAt = timePtr(emailOTPExp)
	u.ResetOTPExpiresAt = timePtr(resetOTPExp)
	u.LastLoginAt = timePtr(lastLogin)
	u.DeletedAt = timePtr(deletedAt)
	return u, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func userNotFound(err error) error {
	if err = notFound(err); err == domain.ErrNotFound {
		return domain.ErrUserNotFound
	}
	return err
}

func requireOneRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
