package services

import (
	"context"
	"errors"
	"fmt"

	"eventrsvp/internal/clock"
	"eventrsvp/internal/domain"
)

type inventoryLedger struct {
	ticketTypes domain.TicketTypeRepository
	clock       clock.Clock
}

// NewInventoryLedger returns the ledger backed by ticket type counters. Every change is a
// single conditional update, so it joins whatever transaction the ctx carries.
func NewInventoryLedger(ticketTypes domain.TicketTypeRepository, c clock.Clock) domain.InventoryLedger {
	return &inventoryLedger{ticketTypes: ticketTypes, clock: c}
}

func (l *inventoryLedger) Reserve(ctx context.Context, ticketTypeID string, qty int) (*domain.Reservation, error) {
	if qty <= 0 || ticketTypeID == "" {
		return nil, domain.ErrInvalidInput
	}
	tt, err := l.ticketTypes.IncrementIssued(ctx, ticketTypeID, qty, l.clock.Now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrCapacityExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("reserve ticket type %s: %w", ticketTypeID, err)
	}
	return &domain.Reservation{
		TicketTypeID: tt.ID,
		EventID:      tt.EventID,
		Quantity:     qty,
		Issued:       tt.QuantityIssued,
		Maximum:      tt.QuantityTotal,
	}, nil
}

func (l *inventoryLedger) Release(ctx context.Context, ticketTypeID string, qty int) error {
	if qty <= 0 || ticketTypeID == "" {
		return domain.ErrInvalidInput
	}
	if _, err := l.ticketTypes.DecrementIssued(ctx, ticketTypeID, qty, l.clock.Now()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("release ticket type %s: %w", ticketTypeID, err)
	}
	return nil
}

func (l *inventoryLedger) Availability(ctx context.Context, eventID string) ([]*domain.TicketType, error) {
	tts, err := l.ticketTypes.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list ticket types: %w", err)
	}
	return tts, nil
}
