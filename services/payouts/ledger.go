package payouts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phillip/lets-hang-go/gateway"
	"github.com/phillip/lets-hang-go/models"
	"github.com/phillip/lets-hang-go/money"
	"github.com/phillip/lets-hang-go/notify"
	"github.com/phillip/lets-hang-go/repository"
)

const (
	sweepConcurrency = 4

	// processingLease is how long a claimed payout may sit in processing
	// before another worker may take it over. Settlement is keyed by the
	// payout id at the gateway, so a takeover never pays twice.
	processingLease = 15 * time.Minute
)

var (
	ErrPayoutNotFound     = errors.New("payout not found")
	ErrPayoutNotClaimable = errors.New("payout is not in a state that can be processed")
	ErrPayoutFailed       = errors.New("payout failed")
)

// FailedError carries the gateway's reason for a failed payout.
type FailedError struct {
	PayoutID string
	Reason   string
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("payout %s failed: %s", e.PayoutID, e.Reason)
}

func (e *FailedError) Unwrap() error {
	return ErrPayoutFailed
}

type PayoutStore interface {
	Create(ctx context.Context, p *models.Payout) error
	Get(ctx context.Context, id string) (*models.Payout, error)
	FindByEvent(ctx context.Context, eventID string) (*models.Payout, error)
	ListByHost(ctx context.Context, hostID string) ([]models.Payout, error)
	ListDue(ctx context.Context, now time.Time) ([]models.Payout, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]models.Payout, error)
	Claim(ctx context.Context, id string, from []string, now time.Time) (bool, error)
	Reclaim(ctx context.Context, id string, cutoff, now time.Time) (bool, error)
	Complete(ctx context.Context, id, transactionID string, at time.Time) error
	Fail(ctx context.Context, id, reason string, at time.Time) error
	Expedite(ctx context.Context, eventID string, at time.Time) error
	Summary(ctx context.Context) (models.PayoutSummary, error)
}

type EventStatusWriter interface {
	SetPayoutStatus(ctx context.Context, id, status string, completedAt *time.Time) error
}

type HostDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type PayoutGateway interface {
	CreatePayout(ctx context.Context, req gateway.PayoutRequest) (*gateway.PayoutResult, error)
}

// Ledger owns the payouts collection. Rows move scheduled -> processing ->
// completed|failed; only the claim step may leave scheduled or failed, and
// a processing row is only taken over once its lease has expired.
type Ledger struct {
	store      PayoutStore
	events     EventStatusWriter
	hosts      HostDirectory
	gw         PayoutGateway
	dispatcher notify.Dispatcher
	node       *snowflake.Node
	now        func() time.Time
}

func NewLedger(store PayoutStore, events EventStatusWriter, hosts HostDirectory, gw PayoutGateway, dispatcher notify.Dispatcher, node *snowflake.Node) *Ledger {
	return &Ledger{
		store:      store,
		events:     events,
		hosts:      hosts,
		gw:         gw,
		dispatcher: dispatcher,
		node:       node,
		now:        time.Now,
	}
}

func (l *Ledger) newID() string {
	return "PAY-" + strings.ToUpper(l.node.Generate().Base36())
}

func destinationOf(u *models.User) models.PayoutDestination {
	if u == nil {
		return models.PayoutDestination{Method: models.PaymentMethodNone}
	}
	switch {
	case u.PaymentMethod == models.PaymentMethodUPI && u.UPIID != "":
		return models.PayoutDestination{Method: models.PaymentMethodUPI, UPIID: u.UPIID}
	case u.PaymentMethod == models.PaymentMethodBank && u.BankDetails != nil:
		bd := *u.BankDetails
		return models.PayoutDestination{Method: models.PaymentMethodBank, BankDetails: &bd}
	}
	return models.PayoutDestination{Method: models.PaymentMethodNone}
}

// Schedule books the host's earnings for e. An event only ever gets one
// payout; asking again returns the existing row.
func (l *Ledger) Schedule(ctx context.Context, e models.Event) (*models.Payout, error) {
	eventID := e.ID.Hex()

	existing, err := l.store.FindByEvent(ctx, eventID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	fee, earnings, err := money.Split(e.TotalCollected)
	if err != nil {
		return nil, err
	}

	host, err := l.hosts.GetByID(ctx, e.HostID)
	if err != nil {
		zap.L().Warn("[Payouts] host lookup failed, scheduling without destination",
			zap.String("host_id", e.HostID), zap.Error(err))
		host = nil
	}

	now := l.now()
	p := &models.Payout{
		ID:           l.newID(),
		EventID:      eventID,
		EventName:    e.Name,
		HostID:       e.HostID,
		HostName:     e.HostName,
		HostEmail:    e.HostEmail,
		Destination:  destinationOf(host),
		TotalAmount:  e.TotalCollected,
		PlatformFee:  fee,
		HostEarnings: earnings,
		Status:       models.PayoutScheduled,
		ScheduledFor: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if host != nil && p.HostEmail == "" {
		p.HostEmail = host.Email
	}

	if err := l.store.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// lost the race to a concurrent completion or payout request
			return l.store.FindByEvent(ctx, eventID)
		}
		return nil, fmt.Errorf("schedule payout: %w", err)
	}

	zap.L().Info("[Payouts] scheduled",
		zap.String("payout_id", p.ID),
		zap.String("event_id", eventID),
		zap.Int64("host_earnings", p.HostEarnings),
		zap.Time("scheduled_for", p.ScheduledFor),
	)
	return p, nil
}

// Expedite pulls the event's scheduled payout forward so the next sweep
// settles it. Events with nothing to pay out are marked paid directly. A
// payout the gateway refused is reported as a *FailedError.
func (l *Ledger) Expedite(ctx context.Context, e models.Event) error {
	eventID := e.ID.Hex()
	now := l.now()

	p, err := l.store.FindByEvent(ctx, eventID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		if e.HostEarnings > 0 {
			_, err := l.Schedule(ctx, e)
			return err
		}
		return l.events.SetPayoutStatus(ctx, eventID, models.PayoutPaid, &now)
	case err != nil:
		return err
	}

	switch p.Status {
	case models.PayoutScheduled:
		return l.store.Expedite(ctx, eventID, now)
	case models.PayoutFailed:
		return &FailedError{PayoutID: p.ID, Reason: p.Error}
	}
	return nil
}

type claimFunc func(ctx context.Context, id string, now time.Time) (bool, error)

func (l *Ledger) claimFrom(states ...string) claimFunc {
	return func(ctx context.Context, id string, now time.Time) (bool, error) {
		return l.store.Claim(ctx, id, states, now)
	}
}

func (l *Ledger) reclaimBefore(cutoff time.Time) claimFunc {
	return func(ctx context.Context, id string, now time.Time) (bool, error) {
		return l.store.Reclaim(ctx, id, cutoff, now)
	}
}

// Sweep settles every scheduled payout that is due, plus any left in
// processing past its lease by a worker that died. Each row is claimed
// atomically first, so concurrent sweeps never pay twice.
func (l *Ledger) Sweep(ctx context.Context, now time.Time) (int, error) {
	due, err := l.store.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}
	cutoff := now.Add(-processingLease)
	stale, err := l.store.ListStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(due)+len(stale) == 0 {
		return 0, nil
	}
	if len(stale) > 0 {
		zap.L().Warn("[Payouts] reclaiming stale payouts", zap.Int("count", len(stale)))
	}

	type job struct {
		payout models.Payout
		claim  claimFunc
	}
	jobs := make([]job, 0, len(due)+len(stale))
	for _, p := range due {
		jobs = append(jobs, job{p, l.claimFrom(models.PayoutScheduled)})
	}
	for _, p := range stale {
		jobs = append(jobs, job{p, l.reclaimBefore(cutoff)})
	}

	var settled atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, j := range jobs {
		p := j.payout
		claim := j.claim
		g.Go(func() error {
			out, err := l.settle(gctx, p, claim)
			if err != nil {
				if !errors.Is(err, ErrPayoutNotClaimable) {
					zap.L().Error("[Payouts] settle failed", zap.String("payout_id", p.ID), zap.Error(err))
				}
				return nil
			}
			if out.Status == models.PayoutCompleted {
				settled.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	zap.L().Info("[Payouts] sweep finished",
		zap.Int("due", len(due)),
		zap.Int("stale", len(stale)),
		zap.Int64("settled", settled.Load()),
	)
	return int(settled.Load()), nil
}

// Trigger settles one payout immediately, ignoring its schedule. Failed
// payouts may be retried this way, as may processing ones whose lease has
// expired.
func (l *Ledger) Trigger(ctx context.Context, id string) (*models.Payout, error) {
	p, err := l.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPayoutNotFound
		}
		return nil, err
	}
	if p.Status == models.PayoutProcessing {
		return l.settle(ctx, *p, l.reclaimBefore(l.now().Add(-processingLease)))
	}
	return l.settle(ctx, *p, l.claimFrom(models.PayoutScheduled, models.PayoutFailed))
}

func (l *Ledger) settle(ctx context.Context, p models.Payout, claim claimFunc) (*models.Payout, error) {
	now := l.now()
	ok, err := claim(ctx, p.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPayoutNotClaimable
	}
	p.Status = models.PayoutProcessing

	res, err := l.gw.CreatePayout(ctx, gateway.PayoutRequest{
		ReferenceID: p.ID,
		Amount:      p.HostEarnings,
		Name:        p.HostName,
		Email:       p.HostEmail,
		Destination: p.Destination,
		Narration:   narration(p.EventName),
	})
	if err != nil {
		if ferr := l.store.Fail(ctx, p.ID, err.Error(), now); ferr != nil {
			zap.L().Error("[Payouts] mark failed", zap.String("payout_id", p.ID), zap.Error(ferr))
		}
		p.Status = models.PayoutFailed
		p.Error = err.Error()
		zap.L().Warn("[Payouts] settlement failed", zap.String("payout_id", p.ID), zap.Error(err))
		return &p, nil
	}

	txn := res.UTR
	if txn == "" {
		txn = res.ID
	}
	if err := l.store.Complete(ctx, p.ID, txn, now); err != nil {
		return nil, err
	}
	p.Status = models.PayoutCompleted
	p.TransactionID = txn
	p.ProcessedAt = &now

	if err := l.events.SetPayoutStatus(ctx, p.EventID, models.PayoutPaid, &now); err != nil {
		zap.L().Error("[Payouts] mark event paid", zap.String("event_id", p.EventID), zap.Error(err))
	}

	zap.L().Info("[Payouts] completed",
		zap.String("payout_id", p.ID),
		zap.String("transaction_id", txn),
		zap.Int64("host_earnings", p.HostEarnings),
	)

	if p.HostEmail != "" {
		l.dispatcher.Dispatch(ctx, notify.Message{
			Kind: notify.KindPayout,
			To:   p.HostEmail,
			Name: p.HostName,
			Payout: &notify.PayoutData{
				PayoutID:      p.ID,
				EventName:     p.EventName,
				HostEarnings:  p.HostEarnings,
				TransactionID: txn,
			},
		})
	}
	return &p, nil
}

// narration is capped at 30 characters by the payouts API.
func narration(eventName string) string {
	n := []rune("Payout " + eventName)
	if len(n) > 30 {
		n = n[:30]
	}
	return string(n)
}

// DailySummary only reads and logs.
func (l *Ledger) DailySummary(ctx context.Context) (models.PayoutSummary, error) {
	s, err := l.store.Summary(ctx)
	if err != nil {
		return s, err
	}
	zap.L().Info("[Payouts] daily summary",
		zap.Int64("scheduled", s.Scheduled),
		zap.Int64("completed", s.Completed),
		zap.Int64("failed", s.Failed),
		zap.Int64("scheduled_total", s.ScheduledTotal),
	)
	return s, nil
}

func (l *Ledger) ForEvent(ctx context.Context, eventID string) (*models.Payout, error) {
	p, err := l.store.FindByEvent(ctx, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPayoutNotFound
	}
	return p, err
}

func (l *Ledger) ListForHost(ctx context.Context, hostID string) ([]models.Payout, error) {
	return l.store.ListByHost(ctx, hostID)
}
