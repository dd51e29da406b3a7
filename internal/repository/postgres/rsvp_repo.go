package postgres

import (
	"context"
	"database/sql"
	"time"

	"eventrsvp/internal/domain"
)

type rsvpRepository struct {
	DB *sql.DB
}

func NewRSVPRepository(db *sql.DB) domain.RSVPRepository {
	return &rsvpRepository{
		DB: db,
	}
}

const rsvpColumns = `id, event_id, user_id, ticket_type_id, status, check_in_token, checked_in_at, cancelled_at, created_at, updated_at`

func scanRSVP(row rowScanner) (*domain.RSVP, error) {
	rsvp := &domain.RSVP{}
	var checkedIn, cancelled sql.NullTime
	if err := row.Scan(
		&rsvp.ID, &rsvp.EventID, &rsvp.UserID, &rsvp.TicketTypeID, &rsvp.Status, &rsvp.CheckInToken,
		&checkedIn, &cancelled, &rsvp.CreatedAt, &rsvp.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if checkedIn.Valid {
		rsvp.CheckedInAt = &checkedIn.Time
	}
	if cancelled.Valid {
		rsvp.CancelledAt = &cancelled.Time
	}
	return rsvp, nil
}

func (r *rsvpRepository) Create(ctx context.Context, rsvp *domain.RSVP) error {
	query := `
		INSERT INTO rsvps (event_id, user_id, ticket_type_id, status, check_in_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := conn(ctx, r.DB).QueryRowContext(ctx, query,
		rsvp.EventID, rsvp.UserID, rsvp.TicketTypeID, rsvp.Status, rsvp.CheckInToken, rsvp.CreatedAt, rsvp.UpdatedAt,
	).Scan(&rsvp.ID)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateRSVP
	}
	return err
}

func (r *rsvpRepository) GetByID(ctx context.Context, id string) (*domain.RSVP, error) {
	return r.getOne(ctx, `SELECT `+rsvpColumns+` FROM rsvps WHERE id = $1`, id)
}

func (r *rsvpRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.RSVP, error) {
	return r.getOne(ctx, `SELECT `+rsvpColumns+` FROM rsvps WHERE id = $1 FOR UPDATE`, id)
}

func (r *rsvpRepository) GetByTokenForUpdate(ctx context.Context, token string) (*domain.RSVP, error) {
	rsvp, err := r.getOne(ctx, `SELECT `+rsvpColumns+` FROM rsvps WHERE check_in_token = $1 FOR UPDATE`, token)
	if err == domain.ErrNotFound {
		return nil, domain.ErrTokenNotFound
	}
	return rsvp, err
}

func (r *rsvpRepository) GetActiveByEventAndUser(ctx context.Context, eventID, userID string) (*domain.RSVP, error) {
	query := `SELECT ` + rsvpColumns + ` FROM rsvps WHERE event_id = $1 AND user_id = $2 AND status <> 'cancelled'`
	return r.getOne(ctx, query, eventID, userID)
}

func (r *rsvpRepository) getOne(ctx context.Context, query string, args ...any) (*domain.RSVP, error) {
	rsvp, err := scanRSVP(conn(ctx, r.DB).QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return rsvp, nil
}

func (r *rsvpRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.RSVP, error) {
	query := `SELECT ` + rsvpColumns + ` FROM rsvps WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *rsvpRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.RSVP, error) {
	query := `SELECT ` + rsvpColumns + ` FROM rsvps WHERE event_id = $1 ORDER BY created_at ASC`
	return r.list(ctx, query, eventID)
}

func (r *rsvpRepository) list(ctx context.Context, query string, args ...any) ([]*domain.RSVP, error) {
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.RSVP
	for rows.Next() {
		rsvp, err := scanRSVP(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rsvp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if out == nil {
		out = []*domain.RSVP{}
	}
	return out, nil
}

// MarkAttended and MarkCancelled only move rows out of the issued state.
func (r *rsvpRepository) MarkAttended(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE rsvps SET status = 'attended', checked_in_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'issued'
	`
	return r.transition(ctx, query, id, at)
}

func (r *rsvpRepository) MarkCancelled(ctx context.Context, id string, at time.Time) error {
	query := `
		UPDATE rsvps SET status = 'cancelled', cancelled_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'issued'
	`
	return r.transition(ctx, query, id, at)
}

func (r *rsvpRepository) transition(ctx context.Context, query, id string, at time.Time) error {
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, id, at)
	if err != nil {
		return notFound(err)
	}
	return requireOneRow(res, domain.ErrInvalidTransition)
}
