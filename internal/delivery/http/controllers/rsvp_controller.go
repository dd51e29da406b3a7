package controllers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"eventrsvp/internal/delivery/http/helpers"
	"eventrsvp/internal/domain"
)

type RSVPController struct {
	Logger  *slog.Logger
	Service domain.RSVPService
}

func NewRSVPController(logger *slog.Logger, svc domain.RSVPService) *RSVPController {
	return &RSVPController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateRSVPRequest is the request body for POST /events/{eventID}/rsvps.
type CreateRSVPRequest struct {
	TicketTypeID string `json:"ticket_type_id"`
}

// Validate implements Validator.
func (c CreateRSVPRequest) Validate() []string {
	if c.TicketTypeID == "" {
		return []string{"ticket_type_id is required"}
	}
	if _, err := uuid.Parse(c.TicketTypeID); err != nil {
		return []string{"ticket_type_id must be a UUID"}
	}
	return nil
}

// RSVPSuccessResponse is the success response envelope for single-RSVP responses.
type RSVPSuccessResponse struct {
	Data  *domain.RSVP      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// CreateRSVP godoc
// @Summary RSVP to an event
// @Description Issues one ticket of the given type to the caller. A confirmation email with the QR code is sent after the RSVP is stored.
// @Tags rsvps
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body CreateRSVPRequest true "Ticket type"
// @Success 201 {object} controllers.RSVPSuccessResponse "data contains the RSVP and its check-in token"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (sold out, duplicate, not open)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/rsvps [post]
func (c *RSVPController) CreateRSVP(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	var req CreateRSVPRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	rsvp, err := c.Service.CreateRSVP(r.Context(), p, eventID, req.TicketTypeID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, rsvp)
}

// CancelRSVP godoc
// @Summary Cancel an RSVP
// @Description Cancels the caller's issued RSVP and returns the ticket to inventory. Attended or already cancelled RSVPs cannot be cancelled.
// @Tags rsvps
// @Produce json
// @Security BearerAuth
// @Param rsvpID path string true "RSVP ID (UUID)"
// @Success 200 {object} controllers.RSVPSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /rsvps/{rsvpID} [delete]
func (c *RSVPController) CancelRSVP(w http.ResponseWriter, r *http.Request) {
	rsvpID, ok := pathID(w, r, "rsvpID")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	rsvp, err := c.Service.CancelRSVP(r.Context(), p, rsvpID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, rsvp)
}

// ListMyRSVPs godoc
// @Summary List the caller's RSVPs
// @Description Every RSVP of the caller together with its event.
// @Tags rsvps
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data is an array of {rsvp, event}"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /rsvps [get]
func (c *RSVPController) ListMyRSVPs(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	list, err := c.Service.ListMyRSVPs(r.Context(), p)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// ListEventAttendees godoc
// @Summary List attendees of an event
// @Description All RSVPs of the event. Organizer or admin only.
// @Tags rsvps
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is an array of RSVPs"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/attendees [get]
func (c *RSVPController) ListEventAttendees(w http.ResponseWriter, r *http.Request) {
	eventID, ok := pathID(w, r, "eventID")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	list, err := c.Service.ListEventAttendees(r.Context(), p, eventID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, list)
}

// TicketQRCode godoc
// @Summary Ticket QR code
// @Description PNG QR code encoding the RSVP's check-in token.
// @Tags rsvps
// @Produce png
// @Security BearerAuth
// @Param rsvpID path string true "RSVP ID (UUID)"
// @Success 200 {file} binary
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (cancelled)"
// @Router /rsvps/{rsvpID}/qr [get]
func (c *RSVPController) TicketQRCode(w http.ResponseWriter, r *http.Request) {
	rsvpID, ok := pathID(w, r, "rsvpID")
	if !ok {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	png, err := c.Service.TicketQRCode(r.Context(), p, rsvpID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
