package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventrsvp/internal/clock"
	"eventrsvp/internal/domain"
)

const (
	defaultTicketTypeName = "General Admission"
	defaultFreeCapacity   = 1000
	defaultCurrency       = "USD"
)

type eventService struct {
	tx             domain.Transactor
	eventRepo      domain.EventRepository
	ticketTypeRepo domain.TicketTypeRepository
	ledger         domain.InventoryLedger
	clock          clock.Clock
	contextTimeout time.Duration
}

func NewEventService(
	tx domain.Transactor,
	eventRepo domain.EventRepository,
	ticketTypeRepo domain.TicketTypeRepository,
	ledger domain.InventoryLedger,
	c clock.Clock,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		tx:             tx,
		eventRepo:      eventRepo,
		ticketTypeRepo: ticketTypeRepo,
		ledger:         ledger,
		clock:          c,
		contextTimeout: timeout,
	}
}

func validateEvent(e *domain.Event) error {
	e.Title = strings.TrimSpace(e.Title)
	if e.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return fmt.Errorf("%w: start_date and end_date are required", domain.ErrInvalidInput)
	}
	if e.EndDate.Before(e.StartDate) {
		return fmt.Errorf("%w: end_date must not be before start_date", domain.ErrInvalidInput)
	}
	if e.Category == "" {
		e.Category = domain.CategoryOther
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, e.Category)
	}
	if e.MaxAttendees != nil && *e.MaxAttendees <= 0 {
		return fmt.Errorf("%w: max_attendees must be positive", domain.ErrInvalidInput)
	}
	return nil
}

// CreateEvent stores a draft event owned by p. Free events get a default admission
// ticket type sized to max_attendees, or 1000 seats when unset.
func (s *eventService) CreateEvent(ctx context.Context, p domain.Principal, event *domain.Event) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if !p.CanOrganize() {
		return nil, domain.ErrForbidden
	}
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	event.OrganizerID = p.UserID
	event.Status = domain.EventStatusDraft
	event.CreatedAt = now
	event.UpdatedAt = now

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.eventRepo.Create(ctx, event); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		if !event.IsFree {
			return nil
		}
		capacity := defaultFreeCapacity
		if event.MaxAttendees != nil {
			capacity = *event.MaxAttendees
		}
		tt := &domain.TicketType{
			EventID:       event.ID,
			Name:          defaultTicketTypeName,
			Kind:          domain.TicketKindFree,
			Currency:      defaultCurrency,
			QuantityTotal: capacity,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.ticketTypeRepo.Create(ctx, tt); err != nil {
			return fmt.Errorf("create default ticket type: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, wrapNotFound(err, "get event")
	}
	return event, nil
}

func (s *eventService) ListPublishedEvents(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if filter.Category != "" && !domain.EventCategory(filter.Category).Valid() {
		return nil, 0, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, filter.Category)
	}
	events, total, err := s.eventRepo.ListPublished(ctx, filter, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list published events: %w", err)
	}
	return events, total, nil
}

func (s *eventService) ListMyEvents(ctx context.Context, p domain.Principal) ([]*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	events, err := s.eventRepo.ListByOrganizerID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list events by organizer: %w", err)
	}
	return events, nil
}

// managed loads the event and checks p may change it.
func (s *eventService) managed(ctx context.Context, p domain.Principal, eventID string) (*domain.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, wrapNotFound(err, "get event")
	}
	if !event.ManagedBy(p) {
		return nil, domain.ErrForbidden
	}
	return event, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, p domain.Principal, eventID string, upd domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.managed(ctx, p, eventID)
	if err != nil {
		return nil, err
	}
	if event.Status == domain.EventStatusCancelled {
		return nil, domain.ErrInvalidTransition
	}

	// Validate the merged result before writing.
	merged := *event
	if upd.Title != nil {
		merged.Title = *upd.Title
	}
	if upd.Category != nil {
		merged.Category = *upd.Category
	}
	if upd.StartDate != nil {
		merged.StartDate = *upd.StartDate
	}
	if upd.EndDate != nil {
		merged.EndDate = *upd.EndDate
	}
	if upd.MaxAttendees != nil {
		merged.MaxAttendees = upd.MaxAttendees
	}
	if err := validateEvent(&merged); err != nil {
		return nil, err
	}
	if upd.Title != nil {
		upd.Title = &merged.Title
	}

	updated, err := s.eventRepo.Update(ctx, eventID, upd, s.clock.Now())
	if err != nil {
		return nil, wrapNotFound(err, "update event")
	}
	return updated, nil
}

func (s *eventService) PublishEvent(ctx context.Context, p domain.Principal, eventID string) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.managed(ctx, p, eventID)
	if err != nil {
		return nil, err
	}
	switch event.Status {
	case domain.EventStatusPublished:
		return event, nil
	case domain.EventStatusCancelled:
		return nil, domain.ErrInvalidTransition
	}
	now := s.clock.Now()
	if err := s.eventRepo.SetStatus(ctx, eventID, domain.EventStatusPublished, now); err != nil {
		return nil, wrapNotFound(err, "publish event")
	}
	event.Status = domain.EventStatusPublished
	event.UpdatedAt = now
	return event, nil
}

// CancelEvent soft-deletes: the row and its RSVPs are kept, new RSVPs are refused.
func (s *eventService) CancelEvent(ctx context.Context, p domain.Principal, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.managed(ctx, p, eventID)
	if err != nil {
		return err
	}
	if event.Status == domain.EventStatusCancelled {
		return nil
	}
	if err := s.eventRepo.SetStatus(ctx, eventID, domain.EventStatusCancelled, s.clock.Now()); err != nil {
		return wrapNotFound(err, "cancel event")
	}
	return nil
}

func (s *eventService) AddTicketType(ctx context.Context, p domain.Principal, tt *domain.TicketType) (*domain.TicketType, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.managed(ctx, p, tt.EventID)
	if err != nil {
		return nil, err
	}
	if event.Status == domain.EventStatusCancelled {
		return nil, domain.ErrInvalidTransition
	}

	tt.Name = strings.TrimSpace(tt.Name)
	switch {
	case tt.Name == "":
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	case !tt.Kind.Valid():
		return nil, fmt.Errorf("%w: unknown ticket kind %q", domain.ErrInvalidInput, tt.Kind)
	case tt.QuantityTotal <= 0:
		return nil, fmt.Errorf("%w: quantity_total must be positive", domain.ErrInvalidInput)
	case tt.PriceCents < 0:
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrInvalidInput)
	case tt.Kind == domain.TicketKindFree && tt.PriceCents != 0:
		return nil, fmt.Errorf("%w: free tickets cannot have a price", domain.ErrInvalidInput)
	case tt.SaleStart != nil && tt.SaleEnd != nil && !tt.SaleEnd.After(*tt.SaleStart):
		return nil, fmt.Errorf("%w: sale_end must be after sale_start", domain.ErrInvalidInput)
	}
	if tt.Currency == "" {
		tt.Currency = defaultCurrency
	}
	tt.Currency = strings.ToUpper(tt.Currency)

	now := s.clock.Now()
	tt.QuantityIssued = 0
	tt.CreatedAt = now
	tt.UpdatedAt = now
	if err := s.ticketTypeRepo.Create(ctx, tt); err != nil {
		return nil, fmt.Errorf("create ticket type: %w", err)
	}
	return tt, nil
}

// ListTicketTypes returns the event's ticket types with live counts. Draft events are
// visible to their managers only; everyone else gets ErrNotFound.
func (s *eventService) ListTicketTypes(ctx context.Context, p domain.Principal, eventID string) ([]*domain.TicketType, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.Status == domain.EventStatusDraft && !event.ManagedBy(p) {
		return nil, domain.ErrNotFound
	}
	return s.ledger.Availability(ctx, eventID)
}
