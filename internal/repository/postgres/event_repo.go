package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"eventrsvp/internal/domain"

	"github.com/lib/pq"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

const eventColumns = `id, organizer_id, title, description, category, location, start_date, end_date, max_attendees, is_free, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var maxNull sql.NullInt64
	if err := row.Scan(
		&e.ID, &e.OrganizerID, &e.Title, &e.Description, &e.Category, &e.Location,
		&e.StartDate, &e.EndDate, &maxNull, &e.IsFree, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if maxNull.Valid {
		m := int(maxNull.Int64)
		e.MaxAttendees = &m
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (organizer_id, title, description, category, location, start_date, end_date, max_attendees, is_free, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	var maxAttendees sql.NullInt64
	if e.MaxAttendees != nil {
		maxAttendees = sql.NullInt64{Int64: int64(*e.MaxAttendees), Valid: true}
	}
	return conn(ctx, r.DB).QueryRowContext(ctx, query,
		e.OrganizerID, e.Title, e.Description, e.Category, e.Location, e.StartDate, e.EndDate,
		maxAttendees, e.IsFree, e.Status, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(conn(ctx, r.DB).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

func (r *eventRepository) ListByIDs(ctx context.Context, ids []string) ([]*domain.Event, error) {
	if len(ids) == 0 {
		return []*domain.Event{}, nil
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ANY($1)`
	return r.list(ctx, query, pq.Array(ids))
}

func (r *eventRepository) ListByOrganizerID(ctx context.Context, organizerID string) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE organizer_id = $1 ORDER BY start_date DESC`
	return r.list(ctx, query, organizerID)
}

func (r *eventRepository) ListPublished(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	where := []string{"status = 'published'"}
	args := []any{}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM events WHERE ` + clause
	if err := conn(ctx, r.DB).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, params.Limit(), params.Offset())
	query := fmt.Sprintf(`SELECT %s FROM events WHERE %s ORDER BY start_date ASC LIMIT $%d OFFSET $%d`,
		eventColumns, clause, len(args)-1, len(args))
	events, err := r.list(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (r *eventRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := conn(ctx, r.DB).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) Update(ctx context.Context, id string, upd domain.EventUpdate, updatedAt time.Time) (*domain.Event, error) {
	setClauses := []string{"updated_at = $1"}
	args := []any{updatedAt}
	add := func(col string, v any) {
		args = append(args, v)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Category != nil {
		add("category", *upd.Category)
	}
	if upd.Location != nil {
		add("location", *upd.Location)
	}
	if upd.StartDate != nil {
		add("start_date", *upd.StartDate)
	}
	if upd.EndDate != nil {
		add("end_date", *upd.EndDate)
	}
	if upd.MaxAttendees != nil {
		add("max_attendees", *upd.MaxAttendees)
	}
	if len(args) == 1 {
		// Nothing to change; return the current row.
		return r.GetByID(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE events SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), len(args), eventColumns)
	e, err := scanEvent(conn(ctx, r.DB).QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, notFound(err)
	}
	return e, nil
}

func (r *eventRepository) SetStatus(ctx context.Context, id string, status domain.EventStatus, updatedAt time.Time) error {
	query := `UPDATE events SET status = $1, updated_at = $2 WHERE id = $3`
	res, err := conn(ctx, r.DB).ExecContext(ctx, query, status, updatedAt, id)
	if err != nil {
		return notFound(err)
	}
	return requireOneRow(res, domain.ErrNotFound)
}
