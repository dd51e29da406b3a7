package domain

import (
	"context"
	"time"
)

// TicketKind is the commercial class of a ticket type.
type TicketKind string

const (
	TicketKindFree      TicketKind = "free"
	TicketKindPaid      TicketKind = "paid"
	TicketKindVIP       TicketKind = "vip"
	TicketKindEarlyBird TicketKind = "early_bird"
)

// Valid reports whether k is a known ticket kind.
func (k TicketKind) Valid() bool {
	switch k {
	case TicketKindFree, TicketKindPaid, TicketKindVIP, TicketKindEarlyBird:
		return true
	}
	return false
}

// TicketType is one inventory line of an event. QuantityIssued never exceeds
// QuantityTotal.
// swagger:model TicketType
type TicketType struct {
	ID             string     `json:"id"`
	EventID        string     `json:"event_id"`
	Name           string     `json:"name"`
	Kind           TicketKind `json:"kind"`
	PriceCents     int64      `json:"price_cents"`
	Currency       string     `json:"currency"`
	QuantityTotal  int        `json:"quantity_total"`
	QuantityIssued int        `json:"quantity_issued"`
	SaleStart      *time.Time `json:"sale_start,omitempty"`
	SaleEnd        *time.Time `json:"sale_end,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Remaining returns how many tickets can still be issued.
func (t *TicketType) Remaining() int {
	if r := t.QuantityTotal - t.QuantityIssued; r > 0 {
		return r
	}
	return 0
}

// OnSale reports whether now falls inside the optional sale window.
func (t *TicketType) OnSale(now time.Time) bool {
	if t.SaleStart != nil && now.Before(*t.SaleStart) {
		return false
	}
	if t.SaleEnd != nil && !now.Before(*t.SaleEnd) {
		return false
	}
	return true
}

// Reservation is the result of a successful ledger reserve.
type Reservation struct {
	TicketTypeID string `json:"ticket_type_id"`
	EventID      string `json:"event_id"`
	Quantity     int    `json:"quantity"`
	Issued       int    `json:"issued"`
	Maximum      int    `json:"maximum"`
}

// TicketTypeRepository defines storage for ticket types, including the atomic
// counter updates backing the inventory ledger.
type TicketTypeRepository interface {
	Create(ctx context.Context, tt *TicketType) error
	GetByID(ctx context.Context, id string) (*TicketType, error)
	ListByEventID(ctx context.Context, eventID string) ([]*TicketType, error)
	// IncrementIssued adds qty to quantity_issued only if the result stays within
	// quantity_total. It returns ErrNotFound for an unknown id and
	// ErrCapacityExceeded when the condition fails.
	IncrementIssued(ctx context.Context, id string, qty int, at time.Time) (*TicketType, error)
	// DecrementIssued subtracts qty from quantity_issued, never going below zero.
	DecrementIssued(ctx context.Context, id string, qty int, at time.Time) (*TicketType, error)
}

// InventoryLedger tracks issued counts against per-ticket-type capacity.
type InventoryLedger interface {
	Reserve(ctx context.Context, ticketTypeID string, qty int) (*Reservation, error)
	Release(ctx context.Context, ticketTypeID string, qty int) error
	Availability(ctx context.Context, eventID string) ([]*TicketType, error)
}
