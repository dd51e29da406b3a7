package domain

import (
	"context"
	"time"
)

// RSVPStatus is the check-in state of a ticket.
// issued -> attended and issued -> cancelled are the only transitions.
type RSVPStatus string

const (
	RSVPStatusIssued    RSVPStatus = "issued"
	RSVPStatusAttended  RSVPStatus = "attended"
	RSVPStatusCancelled RSVPStatus = "cancelled"
)

// RSVP is an attendee's ticket for one ticket type of an event.
// swagger:model RSVP
type RSVP struct {
	ID           string     `json:"id"`
	EventID      string     `json:"event_id"`
	UserID       string     `json:"user_id"`
	TicketTypeID string     `json:"ticket_type_id"`
	Status       RSVPStatus `json:"status"`
	CheckInToken string     `json:"check_in_token,omitempty"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewRSVP creates an issued RSVP. ID is typically set by the repository on create.
func NewRSVP(eventID, userID, ticketTypeID, token string, createdAt time.Time) *RSVP {
	return &RSVP{
		EventID:      eventID,
		UserID:       userID,
		TicketTypeID: ticketTypeID,
		Status:       RSVPStatusIssued,
		CheckInToken: token,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
}

// RSVPWithEvent bundles an RSVP with its related event.
type RSVPWithEvent struct {
	RSVP  *RSVP  `json:"rsvp"`
	Event *Event `json:"event"`
}

// RSVPRepository defines storage operations for RSVPs.
type RSVPRepository interface {
	// Create inserts the RSVP. A concurrent active RSVP for the same (event, user)
	// surfaces as ErrDuplicateRSVP.
	Create(ctx context.Context, rsvp *RSVP) error
	GetByID(ctx context.Context, id string) (*RSVP, error)
	// GetByIDForUpdate and GetByTokenForUpdate lock the row for the current transaction.
	GetByIDForUpdate(ctx context.Context, id string) (*RSVP, error)
	GetByTokenForUpdate(ctx context.Context, token string) (*RSVP, error)
	GetActiveByEventAndUser(ctx context.Context, eventID, userID string) (*RSVP, error)
	ListByUserID(ctx context.Context, userID string) ([]*RSVP, error)
	ListByEventID(ctx context.Context, eventID string) ([]*RSVP, error)
	MarkAttended(ctx context.Context, id string, at time.Time) error
	MarkCancelled(ctx context.Context, id string, at time.Time) error
}

// RSVPService is the attendee-facing RSVP workflow.
type RSVPService interface {
	CreateRSVP(ctx context.Context, p Principal, eventID, ticketTypeID string) (*RSVP, error)
	CancelRSVP(ctx context.Context, p Principal, rsvpID string) (*RSVP, error)
	ListMyRSVPs(ctx context.Context, p Principal) ([]*RSVPWithEvent, error)
	ListEventAttendees(ctx context.Context, p Principal, eventID string) ([]*RSVP, error)
	TicketQRCode(ctx context.Context, p Principal, rsvpID string) ([]byte, error)
}

// CheckInService validates presented check-in tokens at the door.
type CheckInService interface {
	CheckIn(ctx context.Context, staff Principal, token string) (*RSVP, error)
}
