package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/phillip/lets-hang-go/errutil"
	"github.com/phillip/lets-hang-go/models"
	"github.com/phillip/lets-hang-go/money"
	"github.com/phillip/lets-hang-go/notify"
	"github.com/phillip/lets-hang-go/repository"
	"github.com/phillip/lets-hang-go/services/payouts"
)

// maxAttempts bounds how often a mutation is replayed after losing a
// version race.
const maxAttempts = 5

type EventStore interface {
	Create(ctx context.Context, e *models.Event) error
	Get(ctx context.Context, id string) (*models.Event, error)
	List(ctx context.Context, f repository.EventFilter) ([]models.Event, error)
	ListHosted(ctx context.Context, hostID string) ([]models.Event, error)
	ListAttending(ctx context.Context, userID string) ([]models.Event, error)
	Update(ctx context.Context, e *models.Event) error
}

type UserCounter interface {
	IncrementEventsHosted(ctx context.Context, id string) error
	IncrementEventsAttended(ctx context.Context, id string) error
	DecrementEventsAttended(ctx context.Context, id string) error
}

type PayoutScheduler interface {
	Schedule(ctx context.Context, e models.Event) (*models.Payout, error)
	Expedite(ctx context.Context, e models.Event) error
}

type Service struct {
	store      EventStore
	users      UserCounter
	payouts    PayoutScheduler
	dispatcher notify.Dispatcher
	now        func() time.Time
}

func NewService(store EventStore, users UserCounter, payouts PayoutScheduler, dispatcher notify.Dispatcher) *Service {
	return &Service{
		store:      store,
		users:      users,
		payouts:    payouts,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// mutate loads the event, applies fn and writes it back conditionally on
// the version that was read. fn is replayed against a fresh copy when the
// write loses a race, so it must not keep state between calls.
func (s *Service) mutate(ctx context.Context, id string, fn func(e *models.Event) error) (*models.Event, error) {
	for attempt := 1; ; attempt++ {
		e, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, toBaseError(err)
		}
		if err := fn(e); err != nil {
			return nil, toBaseError(err)
		}

		err = s.store.Update(ctx, e)
		if err == nil {
			return e, nil
		}
		if errors.Is(err, repository.ErrVersionConflict) && attempt < maxAttempts {
			zap.L().Debug("[EventService] version conflict, retrying",
				zap.String("event_id", id), zap.Int("attempt", attempt))
			continue
		}
		return nil, toBaseError(err)
	}
}

func requireHost(e *models.Event, userID string) error {
	if e.HostID != userID {
		return ErrNotHost
	}
	return nil
}

// ---------------- READS ----------------

func (s *Service) Get(ctx context.Context, id string) (*models.Event, error) {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, toBaseError(err)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, f repository.EventFilter) ([]models.Event, error) {
	events, err := s.store.List(ctx, f)
	if err != nil {
		return nil, errutil.Internal("Failed to fetch events", err)
	}
	return events, nil
}

func (s *Service) Hosted(ctx context.Context, userID string) ([]models.Event, error) {
	events, err := s.store.ListHosted(ctx, userID)
	if err != nil {
		return nil, errutil.Internal("Failed to fetch hosted events", err)
	}
	return events, nil
}

func (s *Service) Attending(ctx context.Context, userID string) ([]models.Event, error) {
	events, err := s.store.ListAttending(ctx, userID)
	if err != nil {
		return nil, errutil.Internal("Failed to fetch events", err)
	}
	return events, nil
}

// Status always reads the current document.
func (s *Service) Status(ctx context.Context, eventID, userID string) (Membership, error) {
	e, err := s.store.Get(ctx, eventID)
	if err != nil {
		return Membership{}, toBaseError(err)
	}
	return MembershipOf(e, userID), nil
}

// ---------------- CREATE / UPDATE ----------------

func (s *Service) Create(ctx context.Context, host Host, in EventInput) (*models.Event, error) {
	e, err := NewEvent(in, host, s.now())
	if err != nil {
		return nil, toBaseError(err)
	}
	if err := s.store.Create(ctx, e); err != nil {
		return nil, errutil.Internal("Failed to create event", err)
	}
	if err := s.users.IncrementEventsHosted(ctx, host.ID); err != nil {
		zap.L().Warn("[EventService] increment events hosted", zap.String("user_id", host.ID), zap.Error(err))
	}
	return e, nil
}

// Update applies a host edit and reports image URLs that were replaced so
// the caller can clean them up.
func (s *Service) Update(ctx context.Context, eventID, hostID string, in EventInput) (*models.Event, []string, error) {
	var replaced []string
	e, err := s.mutate(ctx, eventID, func(e *models.Event) error {
		replaced = replaced[:0]
		if err := requireHost(e, hostID); err != nil {
			return err
		}
		if in.FlyerURL != nil && e.FlyerURL != "" && e.FlyerURL != *in.FlyerURL {
			replaced = append(replaced, e.FlyerURL)
		}
		if in.BackgroundURL != nil && e.BackgroundURL != "" && e.BackgroundURL != *in.BackgroundURL {
			replaced = append(replaced, e.BackgroundURL)
		}
		return ApplyInput(e, in)
	})
	if err != nil {
		return nil, nil, err
	}
	return e, replaced, nil
}

func (s *Service) SetStatus(ctx context.Context, eventID, hostID, status string) (*models.Event, error) {
	if status == models.EventCompleted {
		return s.Complete(ctx, eventID, hostID)
	}
	return s.mutate(ctx, eventID, func(e *models.Event) error {
		if err := requireHost(e, hostID); err != nil {
			return err
		}
		return SetStatus(e, status)
	})
}

// ---------------- MEMBERSHIP ----------------

func (s *Service) Join(ctx context.Context, eventID string, p Participant, in JoinInput) (*models.Event, JoinResult, error) {
	var res JoinResult
	e, err := s.mutate(ctx, eventID, func(e *models.Event) error {
		var err error
		res, err = Join(e, p, in, s.now())
		return err
	})
	if err != nil {
		return nil, JoinResult{}, err
	}

	if res.FirstJoin {
		s.incrementAttended(ctx, p.ID)
	}
	s.sendTicket(ctx, e, res.Attendee, in.PaymentID, in.AmountPaid, res.Attendee.TicketCount)
	return e, res, nil
}

func (s *Service) RequestJoin(ctx context.Context, eventID string, p Participant, in JoinInput) (*models.Event, models.JoinRequest, error) {
	var req models.JoinRequest
	e, err := s.mutate(ctx, eventID, func(e *models.Event) error {
		var err error
		req, err = RequestJoin(e, p, in, s.now())
		return err
	})
	if err != nil {
		return nil, models.JoinRequest{}, err
	}
	return e, req, nil
}

func (s *Service) Approve(ctx context.Context, eventID, hostID, userID string) (*models.Event, JoinResult, error) {
	var res JoinResult
	e, err := s.mutate(ctx, eventID, func(e *models.Event) error {
		if err := requireHost(e, hostID); err != nil {
			return err
		}
		var err error
		res, err = Approve(e, userID, s.now())
		return err
	})
	if err != nil {
		return nil, JoinResult{}, err
	}

	if res.FirstJoin {
		s.incrementAttended(ctx, userID)
	}
	a := res.Attendee
	s.sendTicket(ctx, e, a, a.PaymentID, a.AmountPaid, a.TicketCount)
	return e, res, nil
}

func (s *Service) Reject(ctx context.Context, eventID, hostID, userID string) (*models.Event, CancelResult, error) {
	var res CancelResult
	e, err := s.mutate(ctx, eventID, func(e *models.Event) error {
		if err := requireHost(e, hostID); err != nil {
			return err
		}
		var err error
		res, err = Reject(e, userID)
		return err
	})
	if err != nil {
		return nil, CancelResult{}, err
	}
	s.sendCancellation(ctx, e, res)
	return e, res, nil
}

func (s *Service) Cancel(ctx context.Context, eventID, userID string) (*models.Event, CancelResult, error) {
	var res CancelResult
	e, err := s.mutate(ctx, eventID, func(e *models.Event) error {
		var err error
		res, err = Cancel(e, userID)
		return err
	})
	if err != nil {
		return nil, CancelResult{}, err
	}

	if !res.WasPending {
		if err := s.users.DecrementEventsAttended(ctx, userID); err != nil {
			zap.L().Warn("[EventService] decrement events attended", zap.String("user_id", userID), zap.Error(err))
		}
	}
	s.sendCancellation(ctx, e, res)
	return e, res, nil
}

// ---------------- HOST MONEY ----------------

// Complete closes the event and books the host's payout. Calling it again
// never books a second payout.
func (s *Service) Complete(ctx context.Context, eventID, hostID string) (*models.Event, error) {
	e, err := s.mutate(ctx, eventID, func(e *models.Event) error {
		if err := requireHost(e, hostID); err != nil {
			return err
		}
		Complete(e)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.HostEarnings > 0 {
		if _, err := s.payouts.Schedule(ctx, *e); err != nil {
			return nil, errutil.Internal("Event completed but the payout could not be scheduled", err)
		}
	}
	return e, nil
}

// RequestPayout flags the payout as processing and pulls its settlement
// forward to the next sweep.
func (s *Service) RequestPayout(ctx context.Context, eventID, hostID string) (*models.Event, error) {
	e, err := s.mutate(ctx, eventID, func(e *models.Event) error {
		if err := requireHost(e, hostID); err != nil {
			return err
		}
		return RequestPayout(e)
	})
	if err != nil {
		return nil, err
	}

	if err := s.payouts.Expedite(ctx, *e); err != nil {
		var failed *payouts.FailedError
		if errors.As(err, &failed) {
			return nil, errutil.BadRequest(fmt.Sprintf("Your payout could not be sent: %s", failed.Reason), err)
		}
		zap.L().Error("[EventService] expedite payout", zap.String("event_id", eventID), zap.Error(err))
	}
	return e, nil
}

// ---------------- NOTIFICATIONS ----------------

func (s *Service) incrementAttended(ctx context.Context, userID string) {
	if err := s.users.IncrementEventsAttended(ctx, userID); err != nil {
		zap.L().Warn("[EventService] increment events attended", zap.String("user_id", userID), zap.Error(err))
	}
}

func (s *Service) sendTicket(ctx context.Context, e *models.Event, a models.Attendee, paymentID string, amount int64, count int) {
	if a.Email == "" {
		return
	}
	lines := make([]notify.AddOnLine, 0, len(a.AddOns))
	for _, p := range a.AddOns {
		lines = append(lines, notify.AddOnLine{Name: p.Name, Quantity: p.Quantity})
	}
	id := e.ID.Hex()
	s.dispatcher.Dispatch(ctx, notify.Message{
		Kind: notify.KindTicket,
		To:   a.Email,
		Name: a.Name,
		Ticket: &notify.TicketData{
			TicketID:         notify.NewTicketID(id, s.now()),
			EventID:          id,
			EventName:        e.Name,
			EventDescription: e.Description,
			EventDate:        e.Date,
			EventLocation:    e.Location,
			TicketCount:      count,
			AmountPaid:       amount,
			PaymentID:        paymentID,
			HostName:         e.HostName,
			HostEmail:        e.HostEmail,
			TicketTierName:   a.TicketTierName,
			AddOns:           lines,
		},
	})
}

func (s *Service) sendCancellation(ctx context.Context, e *models.Event, res CancelResult) {
	if res.Email == "" {
		return
	}
	percent := 0
	if !res.WasPending {
		percent = money.CancellationFeePercent
	}
	s.dispatcher.Dispatch(ctx, notify.Message{
		Kind: notify.KindCancellation,
		To:   res.Email,
		Name: res.Name,
		Cancellation: &notify.CancellationData{
			EventName:       e.Name,
			EventDate:       e.Date,
			EventLocation:   e.Location,
			TicketCount:     res.TicketCount,
			OriginalAmount:  res.OriginalAmount,
			CancellationFee: res.CancellationFee,
			RefundAmount:    res.RefundAmount,
			FeePercent:      percent,
		},
	})
}
