package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventrsvp/internal/delivery/http/controllers"
	"eventrsvp/internal/delivery/http/helpers"
	"eventrsvp/internal/delivery/http/middleware"
)

// Controllers bundles every handler group mounted by NewRouter.
type Controllers struct {
	Auth    *controllers.AuthController
	Users   *controllers.UserController
	Events  *controllers.EventController
	RSVPs   *controllers.RSVPController
	CheckIn *controllers.CheckInController
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(c Controllers, authenticator middleware.Authenticator, logger *slog.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(authenticator, logger)
	maybeAuth := middleware.OptionalAuth(authenticator, logger)

	// Auth
	mux.HandleFunc("POST /auth/signup", c.Auth.SignUp)
	mux.HandleFunc("POST /auth/login", c.Auth.Login)
	mux.HandleFunc("POST /auth/refresh", c.Auth.Refresh)
	mux.HandleFunc("POST /auth/logout", auth(c.Auth.Logout))
	mux.HandleFunc("POST /auth/verify-email", c.Auth.VerifyEmail)
	mux.HandleFunc("POST /auth/verify-email/resend", c.Auth.ResendVerification)
	mux.HandleFunc("POST /auth/password/forgot", c.Auth.ForgotPassword)
	mux.HandleFunc("POST /auth/password/reset", c.Auth.ResetPassword)

	// Profile
	mux.HandleFunc("GET /users/me", auth(c.Users.GetMe))
	mux.HandleFunc("PATCH /users/me", auth(c.Users.UpdateMe))
	mux.HandleFunc("DELETE /users/me", auth(c.Users.DeleteMe))
	mux.HandleFunc("POST /users/me/password", auth(c.Users.ChangePassword))

	// Events
	mux.HandleFunc("GET /events", c.Events.ListEvents)
	mux.HandleFunc("GET /events/{eventID}", maybeAuth(c.Events.GetEvent))
	mux.HandleFunc("POST /events", auth(c.Events.CreateEvent))
	mux.HandleFunc("PATCH /events/{eventID}", auth(c.Events.UpdateEvent))
	mux.HandleFunc("POST /events/{eventID}/publish", auth(c.Events.PublishEvent))
	mux.HandleFunc("DELETE /events/{eventID}", auth(c.Events.CancelEvent))
	mux.HandleFunc("GET /organizer/events", auth(c.Events.ListMyEvents))
	mux.HandleFunc("GET /events/{eventID}/ticket-types", maybeAuth(c.Events.ListTicketTypes))
	mux.HandleFunc("POST /events/{eventID}/ticket-types", auth(c.Events.AddTicketType))

	// RSVPs
	mux.HandleFunc("POST /events/{eventID}/rsvps", auth(c.RSVPs.CreateRSVP))
	mux.HandleFunc("GET /events/{eventID}/attendees", auth(c.RSVPs.ListEventAttendees))
	mux.HandleFunc("GET /rsvps", auth(c.RSVPs.ListMyRSVPs))
	mux.HandleFunc("DELETE /rsvps/{rsvpID}", auth(c.RSVPs.CancelRSVP))
	mux.HandleFunc("GET /rsvps/{rsvpID}/qr", auth(c.RSVPs.TicketQRCode))

	// Door
	mux.HandleFunc("POST /check-ins", auth(c.CheckIn.CheckIn))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// NewHandler wraps the router with request logging, CORS and per-client rate limiting.
func NewHandler(mux http.Handler, logger *slog.Logger, corsOrigins []string, limiter *middleware.RateLimiter) http.Handler {
	var h http.Handler = mux
	h = limiter.Middleware(h)
	h = middleware.CORS(corsOrigins, h)
	return middleware.LoggingMiddleware(logger, h)
}
