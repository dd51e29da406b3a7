package domain

import (
	"context"
	"time"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
)

// EventCategory classifies events for browsing.
type EventCategory string

const (
	CategoryConference EventCategory = "conference"
	CategoryWorkshop   EventCategory = "workshop"
	CategoryMeetup     EventCategory = "meetup"
	CategoryConcert    EventCategory = "concert"
	CategorySports     EventCategory = "sports"
	CategoryOther      EventCategory = "other"
)

// Valid reports whether c is a known category.
func (c EventCategory) Valid() bool {
	switch c {
	case CategoryConference, CategoryWorkshop, CategoryMeetup, CategoryConcert, CategorySports, CategoryOther:
		return true
	}
	return false
}

// Event represents an organized event
// swagger:model Event
type Event struct {
	ID           string        `json:"id"`
	OrganizerID  string        `json:"organizer_id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	Category     EventCategory `json:"category"`
	Location     string        `json:"location"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      time.Time     `json:"end_date"`
	MaxAttendees *int          `json:"max_attendees,omitempty"`
	IsFree       bool          `json:"is_free"`
	Status       EventStatus   `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ManagedBy reports whether p may modify the event.
func (e *Event) ManagedBy(p Principal) bool {
	return p.IsAdmin() || (p.UserID != "" && e.OrganizerID == p.UserID)
}

// EventUpdate carries optional field changes; nil fields are left untouched.
type EventUpdate struct {
	Title        *string
	Description  *string
	Category     *EventCategory
	Location     *string
	StartDate    *time.Time
	EndDate      *time.Time
	MaxAttendees *int
}

// EventRepository defines the interface for event storage
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	ListByIDs(ctx context.Context, ids []string) ([]*Event, error)
	ListByOrganizerID(ctx context.Context, organizerID string) ([]*Event, error)
	ListPublished(ctx context.Context, filter EventFilter, params PaginationParams) ([]*Event, int, error)
	Update(ctx context.Context, id string, upd EventUpdate, updatedAt time.Time) (*Event, error)
	SetStatus(ctx context.Context, id string, status EventStatus, updatedAt time.Time) error
}

// EventService defines organizer and public event operations.
type EventService interface {
	CreateEvent(ctx context.Context, p Principal, event *Event) (*Event, error)
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	ListPublishedEvents(ctx context.Context, filter EventFilter, params PaginationParams) ([]*Event, int, error)
	ListMyEvents(ctx context.Context, p Principal) ([]*Event, error)
	UpdateEvent(ctx context.Context, p Principal, eventID string, upd EventUpdate) (*Event, error)
	PublishEvent(ctx context.Context, p Principal, eventID string) (*Event, error)
	CancelEvent(ctx context.Context, p Principal, eventID string) error
	AddTicketType(ctx context.Context, p Principal, tt *TicketType) (*TicketType, error)
	ListTicketTypes(ctx context.Context, p Principal, eventID string) ([]*TicketType, error)
}
