package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventrsvp/internal/delivery/http/helpers"
	"eventrsvp/internal/delivery/http/middleware"
	"eventrsvp/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	Location     string    `json:"location"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	MaxAttendees *int      `json:"max_attendees"`
	IsFree       bool      `json:"is_free"`
}

// Validate implements Validator. Returns error messages for required fields.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Title) == "" {
		errs = append(errs, "title is required")
	}
	if c.StartDate.IsZero() {
		errs = append(errs, "start_date is required")
	}
	if c.EndDate.IsZero() {
		errs = append(errs, "end_date is required")
	}
	return errs
}

// EventSuccessResponse is the success response envelope for single-event responses.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListEventsResponse is the data payload for GET /events.
type ListEventsResponse struct {
	Events     []*domain.Event        `json:"events"`
	Pagination helpers.PaginationMeta `json:"pagination"`
}

// ListEventsSuccessResponse is the success response envelope for GET /events (200).
type ListEventsSuccessResponse struct {
	Data  ListEventsResponse `json:"data"`
	Error *helpers.APIError  `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// ListEvents godoc
// @Summary List published events
// @Description Public, paginated listing of published events. Optional category filter and q free-text search over title, description and location.
// @Tags events
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Param category query string false "conference, workshop, meetup, concert, sports or other"
// @Param q query string false "Search text"
// @Success 200 {object} controllers.ListEventsSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParsePagination(r)
	events, total, err := c.Service.ListPublishedEvents(r.Context(), helpers.ParseEventFilter(r), params)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListEventsResponse{
		Events:     events,
		Pagination: helpers.NewPaginationMeta(params, total),
	})
}

// GetEvent godoc
// @Summary Get an event by ID
// @Description Returns a published or cancelled event. Drafts are only visible to their organizer through /organizer/events.
// @Tags events
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), eventID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	if event.Status == domain.EventStatusDraft {
		p, _ := middleware.PrincipalFromContext(r.Context())
		if !event.ManagedBy(p) {
			helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
			return
		}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Creates a draft event owned by the caller (organizer or admin). Free events get a "General Admission" ticket type sized to max_attendees, or 1000 seats.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), p, &domain.Event{
		Title:        req.Title,
		Description:  req.Description,
		Category:     domain.EventCategory(strings.ToLower(strings.TrimSpace(req.Category))),
		Location:     req.Location,
		StartDate:    req.StartDate.UTC(),
		EndDate:      req.EndDate.UTC(),
		MaxAttendees: req.MaxAttendees,
		IsFree:       req.IsFree,
	})
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}. All fields optional; omitted fields are unchanged.
type UpdateEventRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Category     *string    `json:"category"`
	Location     *string    `json:"location"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	MaxAttendees *int       `json:"max_attendees"`
}

func (u UpdateEventRequest) toDomain() domain.EventUpdate {
	upd := domain.EventUpdate{
		Title:        u.Title,
		Description:  u.Description,
		Location:     u.Location,
		MaxAttendees: u.MaxAttendees,
	}
	if u.Category != nil {
		cat := domain.EventCategory(strings.ToLower(strings.TrimSpace(*u.Category)))
		upd.Category = &cat
	}
	if u.StartDate != nil {
		t := u.StartDate.UTC()
		upd.StartDate = &t
	}
	if u.EndDate != nil {
		t := u.EndDate.UTC()
		upd.EndDate = &t
	}
	return upd
}

// UpdateEvent godoc
// @Summary Update event details
// @Description Updates the given fields. Only the organizer or an admin may update; cancelled events are read-only.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.EventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (not owner)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (cancelled)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), p, eventID, req.toDomain())
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// PublishEvent godoc
// @Summary Publish an event
// @Description Opens a draft event for RSVPs. Publishing an already published event is a no-op.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (cancelled)"
// @Router /events/{eventID}/publish [post]
func (c *EventController) PublishEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	event, err := c.Service.PublishEvent(r.Context(), p, eventID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// CancelEvent godoc
// @Summary Cancel an event
// @Description Marks the event cancelled. Existing RSVPs are kept; new ones are refused.
// @Tags events
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 204 "No Content"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [delete]
func (c *EventController) CancelEvent(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	if err := c.Service.CancelEvent(r.Context(), p, eventID); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMyEvents godoc
// @Summary List the caller's events
// @Description Every event organized by the caller, in any status.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data is an array of events"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /organizer/events [get]
func (c *EventController) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	events, err := c.Service.ListMyEvents(r.Context(), p)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// CreateTicketTypeRequest is the request body for POST /events/{eventID}/ticket-types.
type CreateTicketTypeRequest struct {
	Name          string     `json:"name"`
	Kind          string     `json:"kind"`
	PriceCents    int64      `json:"price_cents"`
	Currency      string     `json:"currency"`
	QuantityTotal int        `json:"quantity_total"`
	SaleStart     *time.Time `json:"sale_start"`
	SaleEnd       *time.Time `json:"sale_end"`
}

// Validate implements Validator.
func (c CreateTicketTypeRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if c.Kind == "" {
		errs = append(errs, "kind is required")
	}
	if c.QuantityTotal <= 0 {
		errs = append(errs, "quantity_total must be positive")
	}
	return errs
}

// AddTicketType godoc
// @Summary Add a ticket type
// @Description Adds an inventory line (free, paid, vip or early_bird) to the event.
// @Tags ticket-types
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body CreateTicketTypeRequest true "Ticket type"
// @Success 201 {object} helpers.APIResponse "data contains the ticket type"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/ticket-types [post]
func (c *EventController) AddTicketType(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	var req CreateTicketTypeRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	tt, err := c.Service.AddTicketType(r.Context(), p, &domain.TicketType{
		EventID:       eventID,
		Name:          req.Name,
		Kind:          domain.TicketKind(strings.ToLower(req.Kind)),
		PriceCents:    req.PriceCents,
		Currency:      req.Currency,
		QuantityTotal: req.QuantityTotal,
		SaleStart:     req.SaleStart,
		SaleEnd:       req.SaleEnd,
	})
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, tt)
}

// TicketTypeAvailability is one entry of GET /events/{eventID}/ticket-types.
type TicketTypeAvailability struct {
	*domain.TicketType
	Remaining int `json:"remaining"`
}

// ListTicketTypes godoc
// @Summary List ticket types with availability
// @Description Public. Ticket types of a draft event are visible to its organizer or an admin only (send a Bearer token).
// @Tags ticket-types
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is an array of ticket types with remaining counts"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/ticket-types [get]
func (c *EventController) ListTicketTypes(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	// Anonymous callers get a zero Principal, which manages nothing.
	p, _ := middleware.PrincipalFromContext(r.Context())
	tts, err := c.Service.ListTicketTypes(r.Context(), p, eventID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	out := make([]TicketTypeAvailability, 0, len(tts))
	for _, tt := range tts {
		out = append(out, TicketTypeAvailability{TicketType: tt, Remaining: tt.Remaining()})
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, out)
}
