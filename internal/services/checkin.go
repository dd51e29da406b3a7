package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eventrsvp/internal/clock"
	"eventrsvp/internal/domain"
)

type checkInService struct {
	tx        domain.Transactor
	events    domain.EventRepository
	rsvps     domain.RSVPRepository
	publisher domain.EventPublisher
	clock     clock.Clock
	logger    *slog.Logger
}

// NewCheckInService creates the door check-in state machine. publisher may be nil.
func NewCheckInService(
	tx domain.Transactor,
	events domain.EventRepository,
	rsvps domain.RSVPRepository,
	publisher domain.EventPublisher,
	c clock.Clock,
	logger *slog.Logger,
) domain.CheckInService {
	return &checkInService{
		tx:        tx,
		events:    events,
		rsvps:     rsvps,
		publisher: publisher,
		clock:     c,
		logger:    logger,
	}
}

// CheckIn moves the ticket behind token from issued to attended. The row stays locked
// for the whole transaction, so two scans of one token serialize and the second one
// sees attended.
func (s *checkInService) CheckIn(ctx context.Context, staff domain.Principal, token string) (*domain.RSVP, error) {
	if token == "" {
		return nil, domain.ErrTokenNotFound
	}

	var rsvp *domain.RSVP
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		rsvp, err = s.rsvps.GetByTokenForUpdate(ctx, token)
		if err != nil {
			if errors.Is(err, domain.ErrTokenNotFound) || errors.Is(err, domain.ErrNotFound) {
				return domain.ErrTokenNotFound
			}
			return fmt.Errorf("get rsvp by token: %w", err)
		}

		event, err := s.events.GetByID(ctx, rsvp.EventID)
		if err != nil {
			return wrapNotFound(err, "get event")
		}
		if !event.ManagedBy(staff) {
			return domain.ErrForbidden
		}

		switch rsvp.Status {
		case domain.RSVPStatusAttended:
			return domain.ErrAlreadyCheckedIn
		case domain.RSVPStatusCancelled:
			return domain.ErrTicketCancelled
		}
		if event.Status == domain.EventStatusCancelled {
			return domain.ErrEventNotOpen
		}

		now := s.clock.Now()
		if err := s.rsvps.MarkAttended(ctx, rsvp.ID, now); err != nil {
			return fmt.Errorf("mark attended: %w", err)
		}
		rsvp.Status = domain.RSVPStatusAttended
		rsvp.CheckedInAt = &now
		rsvp.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishLifecycle(ctx, s.publisher, s.logger, s.clock, domain.TopicRSVPCheckedIn, rsvp)
	return rsvp, nil
}
