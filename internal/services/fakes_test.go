package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"eventrsvp/internal/clock"
	"eventrsvp/internal/domain"
)

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory stand-in for the Postgres schema. Transactions run one at a
// time and roll back by restoring a snapshot.
type memStore struct {
	mu          sync.Mutex
	seq         int
	users       map[string]domain.User
	events      map[string]domain.Event
	ticketTypes map[string]domain.TicketType
	rsvps       map[string]domain.RSVP
	sessions    map[string]domain.Session

	txMu sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[string]domain.User{},
		events:      map[string]domain.Event{},
		ticketTypes: map[string]domain.TicketType{},
		rsvps:       map[string]domain.RSVP{},
		sessions:    map[string]domain.Session{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

type memSnapshot struct {
	users       map[string]domain.User
	events      map[string]domain.Event
	ticketTypes map[string]domain.TicketType
	rsvps       map[string]domain.RSVP
	sessions    map[string]domain.Session
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{copyMap(s.users), copyMap(s.events), copyMap(s.ticketTypes), copyMap(s.rsvps), copyMap(s.sessions)}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users, s.events, s.ticketTypes, s.rsvps, s.sessions = snap.users, snap.events, snap.ticketTypes, snap.rsvps, snap.sessions
}

type txCtxKey struct{}

// memTx implements domain.Transactor over memStore.
type memTx struct {
	store   *memStore
	commits int
}

func (t *memTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txCtxKey{}) != nil {
		return fn(ctx)
	}
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()
	snap := t.store.snapshot()
	if err := fn(context.WithValue(ctx, txCtxKey{}, true)); err != nil {
		t.store.restore(snap)
		return err
	}
	t.commits++
	return nil
}

// --- users ---

type memUsers struct{ *memStore }

func (r memUsers) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}
	u.ID = r.nextID("user")
	r.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r memUsers) Update(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	for id, existing := range r.users {
		if id != u.ID && existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r memUsers) UpdatePassword(_ context.Context, userID, hash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash, u.UpdatedAt = hash, at
	r.users[userID] = u
	return nil
}

func (r memUsers) TouchLastLogin(_ context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.users[userID]
	u.LastLoginAt = &at
	r.users[userID] = u
	return nil
}

func (r memUsers) modify(userID string, fn func(u *domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	fn(&u)
	r.users[userID] = u
	return nil
}

func (r memUsers) SetEmailOTP(_ context.Context, userID, hash string, expiresAt time.Time) error {
	return r.modify(userID, func(u *domain.User) {
		u.EmailOTPHash, u.EmailOTPExpiresAt = hash, &expiresAt
	})
}

func (r memUsers) MarkEmailVerified(_ context.Context, userID string, at time.Time) error {
	return r.modify(userID, func(u *domain.User) { u.MarkVerified(at) })
}

func (r memUsers) SetPasswordResetOTP(_ context.Context, userID, hash string, expiresAt time.Time) error {
	return r.modify(userID, func(u *domain.User) {
		u.ResetOTPHash, u.ResetOTPExpiresAt = hash, &expiresAt
	})
}

func (r memUsers) ResetPassword(_ context.Context, userID, hash string, at time.Time) error {
	return r.modify(userID, func(u *domain.User) {
		u.PasswordHash, u.UpdatedAt = hash, at
		u.ResetOTPHash, u.ResetOTPExpiresAt = "", nil
	})
}

func (r memUsers) SoftDelete(_ context.Context, userID string, at time.Time) error {
	return r.modify(userID, func(u *domain.User) {
		u.IsActive, u.DeletedAt, u.UpdatedAt = false, &at, at
	})
}

// --- events ---

type memEvents struct{ *memStore }

func (r memEvents) Create(_ context.Context, e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = r.nextID("event")
	r.events[e.ID] = *e
	return nil
}

func (r memEvents) GetByID(_ context.Context, id string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (r memEvents) ListByIDs(_ context.Context, ids []string) ([]*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Event{}
	for _, id := range ids {
		if e, ok := r.events[id]; ok {
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r memEvents) ListByOrganizerID(_ context.Context, organizerID string) ([]*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Event{}
	for _, e := range r.events {
		if e.OrganizerID == organizerID {
			out = append(out, &e)
		}
	}
	return out, nil
}

func (r memEvents) ListPublished(_ context.Context, filter domain.EventFilter, _ domain.PaginationParams) ([]*domain.Event, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Event{}
	for _, e := range r.events {
		if e.Status == domain.EventStatusPublished && (filter.Category == "" || string(e.Category) == filter.Category) {
			out = append(out, &e)
		}
	}
	return out, len(out), nil
}

func (r memEvents) Update(_ context.Context, id string, upd domain.EventUpdate, at time.Time) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.Title != nil {
		e.Title = *upd.Title
	}
	if upd.Description != nil {
		e.Description = *upd.Description
	}
	if upd.Location != nil {
		e.Location = *upd.Location
	}
	if upd.Category != nil {
		e.Category = *upd.Category
	}
	if upd.StartDate != nil {
		e.StartDate = *upd.StartDate
	}
	if upd.EndDate != nil {
		e.EndDate = *upd.EndDate
	}
	if upd.MaxAttendees != nil {
		e.MaxAttendees = upd.MaxAttendees
	}
	e.UpdatedAt = at
	r.events[id] = e
	return &e, nil
}

func (r memEvents) SetStatus(_ context.Context, id string, status domain.EventStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return domain.ErrNotFound
	}
	e.Status, e.UpdatedAt = status, at
	r.events[id] = e
	return nil
}

// --- ticket types ---

type memTicketTypes struct{ *memStore }

func (r memTicketTypes) Create(_ context.Context, tt *domain.TicketType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tt.ID = r.nextID("tt")
	r.ticketTypes[tt.ID] = *tt
	return nil
}

func (r memTicketTypes) GetByID(_ context.Context, id string) (*domain.TicketType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tt, ok := r.ticketTypes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &tt, nil
}

func (r memTicketTypes) ListByEventID(_ context.Context, eventID string) ([]*domain.TicketType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.TicketType{}
	for _, tt := range r.ticketTypes {
		if tt.EventID == eventID {
			out = append(out, &tt)
		}
	}
	return out, nil
}

func (r memTicketTypes) IncrementIssued(_ context.Context, id string, qty int, at time.Time) (*domain.TicketType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tt, ok := r.ticketTypes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if tt.QuantityIssued+qty > tt.QuantityTotal {
		return nil, domain.ErrCapacityExceeded
	}
	tt.QuantityIssued += qty
	tt.UpdatedAt = at
	r.ticketTypes[id] = tt
	return &tt, nil
}

func (r memTicketTypes) DecrementIssued(_ context.Context, id string, qty int, at time.Time) (*domain.TicketType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tt, ok := r.ticketTypes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	tt.QuantityIssued = max(tt.QuantityIssued-qty, 0)
	tt.UpdatedAt = at
	r.ticketTypes[id] = tt
	return &tt, nil
}

// --- rsvps ---

type memRSVPs struct{ *memStore }

func (r memRSVPs) Create(_ context.Context, rsvp *domain.RSVP) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rsvps {
		if existing.EventID == rsvp.EventID && existing.UserID == rsvp.UserID && existing.Status != domain.RSVPStatusCancelled {
			return domain.ErrDuplicateRSVP
		}
	}
	rsvp.ID = r.nextID("rsvp")
	r.rsvps[rsvp.ID] = *rsvp
	return nil
}

func (r memRSVPs) get(id string) (*domain.RSVP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rsvp, ok := r.rsvps[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rsvp, nil
}

func (r memRSVPs) GetByID(_ context.Context, id string) (*domain.RSVP, error) { return r.get(id) }

func (r memRSVPs) GetByIDForUpdate(_ context.Context, id string) (*domain.RSVP, error) {
	return r.get(id)
}

func (r memRSVPs) GetByTokenForUpdate(_ context.Context, token string) (*domain.RSVP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rsvp := range r.rsvps {
		if rsvp.CheckInToken == token {
			return &rsvp, nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (r memRSVPs) GetActiveByEventAndUser(_ context.Context, eventID, userID string) (*domain.RSVP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rsvp := range r.rsvps {
		if rsvp.EventID == eventID && rsvp.UserID == userID && rsvp.Status != domain.RSVPStatusCancelled {
			return &rsvp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memRSVPs) list(match func(domain.RSVP) bool) []*domain.RSVP {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.RSVP{}
	for _, rsvp := range r.rsvps {
		if match(rsvp) {
			out = append(out, &rsvp)
		}
	}
	return out
}

func (r memRSVPs) ListByUserID(_ context.Context, userID string) ([]*domain.RSVP, error) {
	return r.list(func(x domain.RSVP) bool { return x.UserID == userID }), nil
}

func (r memRSVPs) ListByEventID(_ context.Context, eventID string) ([]*domain.RSVP, error) {
	return r.list(func(x domain.RSVP) bool { return x.EventID == eventID }), nil
}

func (r memRSVPs) transition(id string, to domain.RSVPStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rsvp, ok := r.rsvps[id]
	if !ok {
		return domain.ErrNotFound
	}
	if rsvp.Status != domain.RSVPStatusIssued {
		return domain.ErrInvalidTransition
	}
	rsvp.Status, rsvp.UpdatedAt = to, at
	if to == domain.RSVPStatusAttended {
		rsvp.CheckedInAt = &at
	} else {
		rsvp.CancelledAt = &at
	}
	r.rsvps[id] = rsvp
	return nil
}

func (r memRSVPs) MarkAttended(_ context.Context, id string, at time.Time) error {
	return r.transition(id, domain.RSVPStatusAttended, at)
}

func (r memRSVPs) MarkCancelled(_ context.Context, id string, at time.Time) error {
	return r.transition(id, domain.RSVPStatusCancelled, at)
}

// --- sessions ---

type memSessions struct{ *memStore }

func (r memSessions) Replace(_ context.Context, s *domain.Session) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	replaced := false
	for id, existing := range r.sessions {
		if existing.UserID == s.UserID {
			delete(r.sessions, id)
			replaced = true
		}
	}
	s.ID = r.nextID("sess")
	r.sessions[s.ID] = *s
	return replaced, nil
}

func (r memSessions) GetByID(_ context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrInvalidSession
	}
	return &s, nil
}

func (r memSessions) GetByRefreshTokenHash(_ context.Context, hash string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.RefreshTokenHash == hash {
			return &s, nil
		}
	}
	return nil, domain.ErrInvalidSession
}

func (r memSessions) Rotate(_ context.Context, id, oldHash, newHash string, exp time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.RefreshTokenHash != oldHash {
		return domain.ErrInvalidSession
	}
	s.RefreshTokenHash, s.ExpiresAt = newHash, exp
	r.sessions[id] = s
	return nil
}

func (r memSessions) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r memSessions) DeleteByUserID(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
		}
	}
	return nil
}

// --- collaborators ---

type fakeEmailService struct {
	mu            sync.Mutex
	welcome       []*domain.WelcomeMessageEmailData
	confirmations []*domain.RSVPConfirmationEmailData
	verification  []*domain.OneTimeCodeEmailData
	resets        []*domain.OneTimeCodeEmailData
	deleted       []*domain.AccountDeletedEmailData
	err           error
}

func (f *fakeEmailService) SendWelcomeMessage(_ context.Context, d *domain.WelcomeMessageEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcome = append(f.welcome, d)
	return f.err
}

func (f *fakeEmailService) SendRSVPConfirmation(_ context.Context, d *domain.RSVPConfirmationEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmations = append(f.confirmations, d)
	return f.err
}

func (f *fakeEmailService) SendVerificationCode(_ context.Context, d *domain.OneTimeCodeEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verification = append(f.verification, d)
	return f.err
}

func (f *fakeEmailService) SendPasswordResetCode(_ context.Context, d *domain.OneTimeCodeEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, d)
	return f.err
}

func (f *fakeEmailService) SendAccountDeleted(_ context.Context, d *domain.AccountDeletedEmailData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, d)
	return f.err
}

// lastCode returns the most recent code mailed to email, from either list.
func lastCode(list []*domain.OneTimeCodeEmailData, email string) string {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].Email == email {
			return list[i].Code
		}
	}
	return ""
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, topic string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return f.err
}

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.topics...)
}

type fakeQR struct{ err error }

func (f fakeQR) Encode(token string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png:" + token), nil
}

// fixture wires every service against one memStore.
type fixture struct {
	store     *memStore
	tx        *memTx
	clock     clock.Clock
	email     *fakeEmailService
	publisher *fakePublisher
	ledger    domain.InventoryLedger
	rsvps     domain.RSVPService
	checkIn   domain.CheckInService
	events    domain.EventService
}

func newFixture() *fixture {
	store := newMemStore()
	f := &fixture{
		store:     store,
		tx:        &memTx{store: store},
		clock:     clock.NewFixed(testNow),
		email:     &fakeEmailService{},
		publisher: &fakePublisher{},
	}
	f.ledger = NewInventoryLedger(memTicketTypes{store}, f.clock)
	f.rsvps = NewRSVPService(RSVPDeps{
		Tx:          f.tx,
		Events:      memEvents{store},
		TicketTypes: memTicketTypes{store},
		RSVPs:       memRSVPs{store},
		Users:       memUsers{store},
		Ledger:      f.ledger,
		Email:       f.email,
		QR:          fakeQR{},
		Publisher:   f.publisher,
		Clock:       f.clock,
		Logger:      discardLogger(),
	})
	f.checkIn = NewCheckInService(f.tx, memEvents{store}, memRSVPs{store}, f.publisher, f.clock, discardLogger())
	f.events = NewEventService(f.tx, memEvents{store}, memTicketTypes{store}, f.ledger, f.clock, 5*time.Second)
	return f
}

func (f *fixture) addUser(email string, role domain.Role) domain.Principal {
	u := domain.NewUser(email, "User "+email, "hash", role, testNow, testNow)
	u.MarkVerified(testNow)
	_ = memUsers{f.store}.Create(context.Background(), u)
	return domain.Principal{UserID: u.ID, Role: role, SessionID: "sess-" + u.ID}
}

// addPublishedEvent creates a published event with one ticket type of the given capacity.
func (f *fixture) addPublishedEvent(organizerID string, capacity int) (*domain.Event, *domain.TicketType) {
	ctx := context.Background()
	e := &domain.Event{
		OrganizerID: organizerID,
		Title:       "GopherCon",
		Category:    domain.CategoryConference,
		StartDate:   testNow.Add(24 * time.Hour),
		EndDate:     testNow.Add(30 * time.Hour),
		Status:      domain.EventStatusPublished,
	}
	_ = memEvents{f.store}.Create(ctx, e)
	tt := &domain.TicketType{EventID: e.ID, Name: "General Admission", Kind: domain.TicketKindFree, QuantityTotal: capacity}
	_ = memTicketTypes{f.store}.Create(ctx, tt)
	return e, tt
}

func (f *fixture) issued(ticketTypeID string) int {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.ticketTypes[ticketTypeID].QuantityIssued
}
