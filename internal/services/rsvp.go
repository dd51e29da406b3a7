package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventrsvp/internal/clock"
	"eventrsvp/internal/domain"
)

// RSVPDeps groups the collaborators of the RSVP workflow.
type RSVPDeps struct {
	Tx          domain.Transactor
	Events      domain.EventRepository
	TicketTypes domain.TicketTypeRepository
	RSVPs       domain.RSVPRepository
	Users       domain.UserRepository
	Ledger      domain.InventoryLedger
	Email       domain.EmailService
	QR          domain.QRGenerator
	Publisher   domain.EventPublisher
	Clock       clock.Clock
	Logger      *slog.Logger
}

type rsvpService struct {
	RSVPDeps
}

// NewRSVPService creates the RSVP workflow. Email, QR and Publisher may be nil.
func NewRSVPService(deps RSVPDeps) domain.RSVPService {
	return &rsvpService{RSVPDeps: deps}
}

func (s *rsvpService) CreateRSVP(ctx context.Context, p domain.Principal, eventID, ticketTypeID string) (*domain.RSVP, error) {
	if p.UserID == "" {
		return nil, domain.ErrInvalidSession
	}
	if eventID == "" || ticketTypeID == "" {
		return nil, domain.ErrInvalidInput
	}

	var (
		rsvp  *domain.RSVP
		event *domain.Event
		tt    *domain.TicketType
	)
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		event, err = s.Events.GetByID(ctx, eventID)
		if err != nil {
			return wrapNotFound(err, "get event")
		}
		if event.Status != domain.EventStatusPublished {
			return domain.ErrEventNotOpen
		}

		tt, err = s.TicketTypes.GetByID(ctx, ticketTypeID)
		if err != nil {
			return wrapNotFound(err, "get ticket type")
		}
		if tt.EventID != event.ID {
			return domain.ErrNotFound
		}
		now := s.Clock.Now()
		if !tt.OnSale(now) {
			return domain.ErrSaleClosed
		}

		if _, err := s.RSVPs.GetActiveByEventAndUser(ctx, eventID, p.UserID); err == nil {
			return domain.ErrDuplicateRSVP
		} else if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("get active rsvp: %w", err)
		}

		if _, err := s.Ledger.Reserve(ctx, tt.ID, 1); err != nil {
			return err
		}

		token, err := generateToken(checkInTokenBytes)
		if err != nil {
			return fmt.Errorf("generate check-in token: %w", err)
		}
		rsvp = domain.NewRSVP(event.ID, p.UserID, tt.ID, token, now)
		if err := s.RSVPs.Create(ctx, rsvp); err != nil {
			if errors.Is(err, domain.ErrDuplicateRSVP) {
				return domain.ErrDuplicateRSVP
			}
			return fmt.Errorf("create rsvp: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sendConfirmation(ctx, rsvp, event, tt)
	s.publish(ctx, domain.TopicRSVPCreated, rsvp)
	return rsvp, nil
}

func (s *rsvpService) CancelRSVP(ctx context.Context, p domain.Principal, rsvpID string) (*domain.RSVP, error) {
	if p.UserID == "" {
		return nil, domain.ErrInvalidSession
	}

	var rsvp *domain.RSVP
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		rsvp, err = s.RSVPs.GetByIDForUpdate(ctx, rsvpID)
		if err != nil {
			return wrapNotFound(err, "get rsvp")
		}
		if rsvp.UserID != p.UserID {
			return domain.ErrForbidden
		}
		if rsvp.Status != domain.RSVPStatusIssued {
			return domain.ErrInvalidTransition
		}

		now := s.Clock.Now()
		if err := s.RSVPs.MarkCancelled(ctx, rsvp.ID, now); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				return err
			}
			return fmt.Errorf("cancel rsvp: %w", err)
		}
		if err := s.Ledger.Release(ctx, rsvp.TicketTypeID, 1); err != nil {
			return fmt.Errorf("release ticket: %w", err)
		}
		rsvp.Status = domain.RSVPStatusCancelled
		rsvp.CancelledAt = &now
		rsvp.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, domain.TopicRSVPCancelled, rsvp)
	return rsvp, nil
}

func (s *rsvpService) ListMyRSVPs(ctx context.Context, p domain.Principal) ([]*domain.RSVPWithEvent, error) {
	if p.UserID == "" {
		return nil, domain.ErrInvalidSession
	}
	rsvps, err := s.RSVPs.ListByUserID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list rsvps: %w", err)
	}
	if len(rsvps) == 0 {
		return []*domain.RSVPWithEvent{}, nil
	}

	ids := make([]string, 0, len(rsvps))
	seen := make(map[string]struct{}, len(rsvps))
	for _, r := range rsvps {
		if _, ok := seen[r.EventID]; !ok {
			seen[r.EventID] = struct{}{}
			ids = append(ids, r.EventID)
		}
	}
	events, err := s.Events.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list events for rsvps: %w", err)
	}
	eventsByID := make(map[string]*domain.Event, len(events))
	for _, e := range events {
		eventsByID[e.ID] = e
	}

	result := make([]*domain.RSVPWithEvent, 0, len(rsvps))
	for _, r := range rsvps {
		ev, ok := eventsByID[r.EventID]
		if !ok {
			continue
		}
		result = append(result, &domain.RSVPWithEvent{RSVP: r, Event: ev})
	}
	return result, nil
}

func (s *rsvpService) ListEventAttendees(ctx context.Context, p domain.Principal, eventID string) ([]*domain.RSVP, error) {
	event, err := s.Events.GetByID(ctx, eventID)
	if err != nil {
		return nil, wrapNotFound(err, "get event")
	}
	if !event.ManagedBy(p) {
		return nil, domain.ErrForbidden
	}
	rsvps, err := s.RSVPs.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return rsvps, nil
}

func (s *rsvpService) TicketQRCode(ctx context.Context, p domain.Principal, rsvpID string) ([]byte, error) {
	if s.QR == nil {
		return nil, fmt.Errorf("qr generator not configured")
	}
	rsvp, err := s.RSVPs.GetByID(ctx, rsvpID)
	if err != nil {
		return nil, wrapNotFound(err, "get rsvp")
	}
	if rsvp.UserID != p.UserID {
		return nil, domain.ErrForbidden
	}
	if rsvp.Status == domain.RSVPStatusCancelled {
		return nil, domain.ErrTicketCancelled
	}
	png, err := s.QR.Encode(rsvp.CheckInToken)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// sendConfirmation runs after commit; failures are logged and never undo the RSVP.
func (s *rsvpService) sendConfirmation(ctx context.Context, rsvp *domain.RSVP, event *domain.Event, tt *domain.TicketType) {
	if s.Email == nil {
		return
	}
	user, err := s.Users.GetByID(ctx, rsvp.UserID)
	if err != nil {
		s.Logger.WarnContext(ctx, "rsvp confirmation skipped", "rsvp_id", rsvp.ID, "err", err)
		return
	}
	data := &domain.RSVPConfirmationEmailData{
		Email:          user.Email,
		Name:           user.Name,
		EventTitle:     event.Title,
		EventLocation:  event.Location,
		EventStart:     event.StartDate.UTC().Format(time.RFC1123),
		TicketTypeName: tt.Name,
		CheckInToken:   rsvp.CheckInToken,
	}
	if s.QR != nil {
		if png, err := s.QR.Encode(rsvp.CheckInToken); err == nil {
			data.QRCodeDataURI = pngDataURI(png)
		} else {
			s.Logger.WarnContext(ctx, "qr encode failed", "rsvp_id", rsvp.ID, "err", err)
		}
	}
	if err := s.Email.SendRSVPConfirmation(ctx, data); err != nil {
		s.Logger.WarnContext(ctx, "rsvp confirmation email failed", "rsvp_id", rsvp.ID, "err", err)
	}
}

func (s *rsvpService) publish(ctx context.Context, topic string, rsvp *domain.RSVP) {
	publishLifecycle(ctx, s.Publisher, s.Logger, s.Clock, topic, rsvp)
}

func publishLifecycle(ctx context.Context, pub domain.EventPublisher, logger *slog.Logger, c clock.Clock, topic string, rsvp *domain.RSVP) {
	if pub == nil {
		return
	}
	msg := domain.RSVPLifecycleMessage{
		RSVPID:       rsvp.ID,
		EventID:      rsvp.EventID,
		UserID:       rsvp.UserID,
		TicketTypeID: rsvp.TicketTypeID,
		Status:       rsvp.Status,
		OccurredAt:   c.Now(),
	}
	if err := pub.Publish(ctx, topic, msg); err != nil {
		logger.WarnContext(ctx, "publish failed", "topic", topic, "rsvp_id", rsvp.ID, "err", err)
	}
}

// wrapNotFound passes domain.ErrNotFound through untouched and wraps anything else.
func wrapNotFound(err error, op string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
