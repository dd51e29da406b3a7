package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eventrsvp/internal/domain"
)

type ticketTypeRepository struct {
	DB *sql.DB
}

func NewTicketTypeRepository(db *sql.DB) domain.TicketTypeRepository {
	return &ticketTypeRepository{DB: db}
}

const ticketTypeColumns = `id, event_id, name, kind, price_cents, currency, quantity_total, quantity_issued, sale_start, sale_end, created_at, updated_at`

func scanTicketType(row rowScanner) (*domain.TicketType, error) {
	tt := &domain.TicketType{}
	var saleStart, saleEnd sql.NullTime
	if err := row.Scan(
		&tt.ID, &tt.EventID, &tt.Name, &tt.Kind, &tt.PriceCents, &tt.Currency,
		&tt.QuantityTotal, &tt.QuantityIssued, &saleStart, &saleEnd, &tt.CreatedAt, &tt.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if saleStart.Valid {
		tt.SaleStart = &saleStart.Time
	}
	if saleEnd.Valid {
		tt.SaleEnd = &saleEnd.Time
	}
	return tt, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (r *ticketTypeRepository) Create(ctx context.Context, tt *domain.TicketType) error {
	query := `
		INSERT INTO ticket_types (event_id, name, kind, price_cents, currency, quantity_total, quantity_issued, sale_start, sale_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $10)
		RETURNING id
	`
	err := conn(ctx, r.DB).QueryRowContext(ctx, query,
		tt.EventID, tt.Name, tt.Kind, tt.PriceCents, tt.Currency, tt.QuantityTotal,
		nullTime(tt.SaleStart), nullTime(tt.SaleEnd), tt.CreatedAt, tt.UpdatedAt,
	).Scan(&tt.ID)
	if err != nil {
		return err
	}
	tt.QuantityIssued = 0
	return nil
}

func (r *ticketTypeRepository) GetByID(ctx context.Context, id string) (*domain.TicketType, error) {
	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE id = $1`
	tt, err := scanTicketType(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return tt, nil
}

func (r *ticketTypeRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.TicketType, error) {
	query := `SELECT ` + ticketTypeColumns + ` FROM ticket_types WHERE event_id = $1 ORDER BY price_cents ASC, created_at ASC`
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, notFound(err)
	}
	defer rows.Close()
	out := make([]*domain.TicketType, 0)
	for rows.Next() {
		tt, err := scanTicketType(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tt)
	}
	return out, rows.Err()
}

func (r *ticketTypeRepository) IncrementIssued(ctx context.Context, id string, qty int, at time.Time) (*domain.TicketType, error) {
	query := `
		UPDATE ticket_types
		SET quantity_issued = quantity_issued + $2, updated_at = $3
		WHERE id = $1 AND quantity_issued + $2 <= quantity_total
		RETURNING ` + ticketTypeColumns
	tt, err := scanTicketType(conn(ctx, r.DB).QueryRowContext(ctx, query, id, qty, at))
	if err == nil {
		return tt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(err)
	}
	// The guard failed: tell a missing row apart from a full one.
	if err := r.exists(ctx, id); err != nil {
		return nil, err
	}
	return nil, domain.ErrCapacityExceeded
}

func (r *ticketTypeRepository) DecrementIssued(ctx context.Context, id string, qty int, at time.Time) (*domain.TicketType, error) {
	query := `
		UPDATE ticket_types
		SET quantity_issued = GREATEST(quantity_issued - $2, 0), updated_at = $3
		WHERE id = $1
		RETURNING ` + ticketTypeColumns
	tt, err := scanTicketType(conn(ctx, r.DB).QueryRowContext(ctx, query, id, qty, at))
	if err != nil {
		return nil, notFound(err)
	}
	return tt, nil
}

func (r *ticketTypeRepository) exists(ctx context.Context, id string) error {
	var one int
	err := conn(ctx, r.DB).QueryRowContext(ctx, `SELECT 1 FROM ticket_types WHERE id = $1`, id).Scan(&one)
	return notFound(err)
}
