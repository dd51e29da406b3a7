package controllers

import (
	"log/slog"
	"net/http"
	"strings"

	"eventrsvp/internal/delivery/http/helpers"
	"eventrsvp/internal/domain"
)

// CheckInRequest is the request body for POST /check-ins.
type CheckInRequest struct {
	Token string `json:"token"`
}

// Validate implements Validator.
func (c CheckInRequest) Validate() []string {
	if strings.TrimSpace(c.Token) == "" {
		return []string{"token is required"}
	}
	return nil
}

// CheckInController serves door scanning for event staff.
type CheckInController struct {
	Logger  *slog.Logger
	Service domain.CheckInService
}

func NewCheckInController(logger *slog.Logger, svc domain.CheckInService) *CheckInController {
	return &CheckInController{
		Logger:  logger,
		Service: svc,
	}
}

// CheckIn godoc
// @Summary Check in a ticket
// @Description Marks the RSVP behind the scanned token as attended. Only the event's organizer or an admin may check tickets in. A second scan answers 409.
// @Tags check-ins
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CheckInRequest true "Scanned token"
// @Success 200 {object} controllers.RSVPSuccessResponse "data contains the attended RSVP"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (unknown token)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already checked in or cancelled)"
// @Router /check-ins [post]
func (c *CheckInController) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	p, ok := principal(w, r)
	if !ok {
		return
	}
	rsvp, err := c.Service.CheckIn(r.Context(), p, strings.TrimSpace(req.Token))
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	c.Logger.InfoContext(r.Context(), "ticket checked in", "rsvp_id", rsvp.ID, "event_id", rsvp.EventID, "staff_id", p.UserID)
	helpers.WriteJSONSuccess(w, http.StatusOK, rsvp)
}
