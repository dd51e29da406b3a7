package controllers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"eventrsvp/internal/delivery/http/helpers"
	"eventrsvp/internal/delivery/http/middleware"
	"eventrsvp/internal/domain"
)

const (
	eventUUID = "8b0e3b7e-8d7a-4b8f-9a55-0f4f7c1a2b3c"
	rsvpUUID  = "1d2c3b4a-5e6f-4a7b-8c9d-0e1f2a3b4c5d"
	ttUUID    = "c0ffee00-1234-4abc-9def-0123456789ab"
)

var (
	testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	attendee   = domain.Principal{UserID: "user-1", Role: domain.RoleAttendee, SessionID: "sess-1"}
	organizer  = domain.Principal{UserID: "org-1", Role: domain.RoleOrganizer, SessionID: "sess-2"}
)

// newRequest builds a request with an optional JSON body, path values and caller.
func newRequest(method, target, body string, p *domain.Principal, pathValues map[string]string) *http.Request {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "http://test"+target, rdr)
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	if p != nil {
		req = req.WithContext(middleware.SetPrincipal(req.Context(), *p))
	}
	return req
}

// decodeEnvelope decodes the response envelope and unmarshals data into out when non-nil.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, out any) helpers.APIResponse {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	if out != nil && envelope.Data != nil {
		raw, err := json.Marshal(envelope.Data)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, out))
	}
	return envelope
}

func requireErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rr.Code)
	envelope := decodeEnvelope(t, rr, nil)
	require.NotNil(t, envelope.Error)
	require.Equal(t, code, envelope.Error.Code)
}

// fakeAuthService implements domain.AuthService for handler tests.
type fakeAuthService struct {
	user       *domain.User
	result     *domain.AuthResult
	err        error
	gotRole    domain.Role
	gotRefresh string
	loggedOut  domain.Principal
	changed    bool
	deleted    domain.Principal
	gotEmail   string
	gotCode    string
	gotNewPass string
}

func (f *fakeAuthService) SignUp(_ context.Context, _, _, _ string, role domain.Role) (*domain.User, error) {
	f.gotRole = role
	return f.user, f.err
}

func (f *fakeAuthService) Login(_ context.Context, _, _ string) (*domain.AuthResult, error) {
	return f.result, f.err
}

func (f *fakeAuthService) Refresh(_ context.Context, token string) (*domain.AuthResult, error) {
	f.gotRefresh = token
	return f.result, f.err
}

func (f *fakeAuthService) Logout(_ context.Context, p domain.Principal) error {
	f.loggedOut = p
	return f.err
}

func (f *fakeAuthService) Authenticate(_ context.Context, _ string) (domain.Principal, error) {
	return domain.Principal{}, f.err
}

func (f *fakeAuthService) ChangePassword(_ context.Context, _ domain.Principal, _, _ string) error {
	f.changed = f.err == nil
	return f.err
}

func (f *fakeAuthService) VerifyEmail(_ context.Context, email, code string) error {
	f.gotEmail, f.gotCode = email, code
	return f.err
}

func (f *fakeAuthService) ResendVerification(_ context.Context, email string) error {
	f.gotEmail = email
	return f.err
}

func (f *fakeAuthService) ForgotPassword(_ context.Context, email string) error {
	f.gotEmail = email
	return f.err
}

func (f *fakeAuthService) ResetPassword(_ context.Context, email, code, newPassword string) error {
	f.gotEmail, f.gotCode, f.gotNewPass = email, code, newPassword
	return f.err
}

func (f *fakeAuthService) DeleteAccount(_ context.Context, p domain.Principal) error {
	f.deleted = p
	return f.err
}

// fakeUserService implements domain.UserService for handler tests.
type fakeUserService struct {
	user      *domain.User
	err       error
	gotName   string
	gotEmail  string
	gotUserID string
}

func (f *fakeUserService) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.gotUserID = id
	return f.user, f.err
}

func (f *fakeUserService) UpdateProfile(_ context.Context, _ domain.Principal, name, email string) (*domain.User, error) {
	f.gotName, f.gotEmail = name, email
	return f.user, f.err
}

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	event       *domain.Event
	events      []*domain.Event
	total       int
	ticketTypes []*domain.TicketType
	ticketType  *domain.TicketType
	err         error
	gotEvent    *domain.Event
	gotUpdate   domain.EventUpdate
	gotFilter   domain.EventFilter
	gotParams   domain.PaginationParams
	gotTT       *domain.TicketType
	gotCaller   domain.Principal
}

func (f *fakeEventService) CreateEvent(_ context.Context, _ domain.Principal, e *domain.Event) (*domain.Event, error) {
	f.gotEvent = e
	if f.err != nil {
		return nil, f.err
	}
	return e, nil
}

func (f *fakeEventService) GetEvent(context.Context, string) (*domain.Event, error) {
	return f.event, f.err
}

func (f *fakeEventService) ListPublishedEvents(_ context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	f.gotFilter, f.gotParams = filter, params
	return f.events, f.total, f.err
}

func (f *fakeEventService) ListMyEvents(context.Context, domain.Principal) ([]*domain.Event, error) {
	return f.events, f.err
}

func (f *fakeEventService) UpdateEvent(_ context.Context, _ domain.Principal, _ string, upd domain.EventUpdate) (*domain.Event, error) {
	f.gotUpdate = upd
	return f.event, f.err
}

func (f *fakeEventService) PublishEvent(context.Context, domain.Principal, string) (*domain.Event, error) {
	return f.event, f.err
}

func (f *fakeEventService) CancelEvent(context.Context, domain.Principal, string) error {
	return f.err
}

func (f *fakeEventService) AddTicketType(_ context.Context, _ domain.Principal, tt *domain.TicketType) (*domain.TicketType, error) {
	f.gotTT = tt
	if f.err != nil {
		return nil, f.err
	}
	return tt, nil
}

func (f *fakeEventService) ListTicketTypes(_ context.Context, p domain.Principal, _ string) ([]*domain.TicketType, error) {
	f.gotCaller = p
	return f.ticketTypes, f.err
}

// fakeRSVPService implements domain.RSVPService for handler tests.
type fakeRSVPService struct {
	rsvp      *domain.RSVP
	rsvps     []*domain.RSVP
	withEvent []*domain.RSVPWithEvent
	png       []byte
	err       error
	gotTTID   string
}

func (f *fakeRSVPService) CreateRSVP(_ context.Context, _ domain.Principal, _, ticketTypeID string) (*domain.RSVP, error) {
	f.gotTTID = ticketTypeID
	return f.rsvp, f.err
}

func (f *fakeRSVPService) CancelRSVP(context.Context, domain.Principal, string) (*domain.RSVP, error) {
	return f.rsvp, f.err
}

func (f *fakeRSVPService) ListMyRSVPs(context.Context, domain.Principal) ([]*domain.RSVPWithEvent, error) {
	return f.withEvent, f.err
}

func (f *fakeRSVPService) ListEventAttendees(context.Context, domain.Principal, string) ([]*domain.RSVP, error) {
	return f.rsvps, f.err
}

func (f *fakeRSVPService) TicketQRCode(context.Context, domain.Principal, string) ([]byte, error) {
	return f.png, f.err
}

// fakeCheckInService implements domain.CheckInService for handler tests.
type fakeCheckInService struct {
	rsvp     *domain.RSVP
	err      error
	gotToken string
}

func (f *fakeCheckInService) CheckIn(_ context.Context, _ domain.Principal, token string) (*domain.RSVP, error) {
	f.gotToken = token
	return f.rsvp, f.err
}
