package postgres

import (
	"context"
	"database/sql"
	"time"

	"eventrsvp/internal/domain"

	"github.com/google/uuid"
)

type SessionRepository struct {
	DB *sql.DB
}

func NewSessionRepository(db *sql.DB) domain.SessionRepository {
	return &SessionRepository{
		DB: db,
	}
}

const sessionColumns = `id, user_id, refresh_token_hash, expires_at, created_at`

// Replace upserts on user_id so a user never holds two rows. The row gets a fresh id,
// which invalidates access tokens bound to the previous one. xmax is non-zero only
// when the conflict branch updated an existing row.
func (r *SessionRepository) Replace(ctx context.Context, s *domain.Session) (bool, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	query := `
		INSERT INTO sessions (id, user_id, refresh_token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET id = EXCLUDED.id, refresh_token_hash = EXCLUDED.refresh_token_hash,
			expires_at = EXCLUDED.expires_at, created_at = EXCLUDED.created_at
		RETURNING (xmax <> 0) AS replaced
	`
	var replaced bool
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, s.ID, s.UserID, s.RefreshTokenHash, s.ExpiresAt, s.CreatedAt).Scan(&replaced)
	if err != nil {
		return false, err
	}
	return replaced, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.getOne(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
}

func (r *SessionRepository) GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	return r.getOne(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_hash = $1`, hash)
}

func (r *SessionRepository) getOne(ctx context.Context, query string, arg string) (*domain.Session, error) {
	s := &domain.Session{}
	err := conn(ctx, r.DB).QueryRowContext(ctx, query, arg).Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if err = notFound(err); err == domain.ErrNotFound {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}
	return s, nil
}

func (r *SessionRepository) Rotate(ctx context.Context, sessionID, oldHash, newHash string, expiresAt time.Time) error {
	query := `
		UPDATE sessions SET refresh_token_hash = $3, expires_at = $4
		WHERE id = $1 AND refresh_token_hash = $2
	`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, sessionID, oldHash, newHash, expiresAt)
	if err != nil {
		return err
	}
	return requireOneRow(res, domain.ErrInvalidSession)
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := conn(ctx, r.DB).ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if isInvalidUUID(err) {
		return nil
	}
	return err
}

func (r *SessionRepository) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := conn(ctx, r.DB).ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}
