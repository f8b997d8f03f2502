package events

import (
	"time"

	"github.com/phillip/lets-hang-go/models"
	"github.com/phillip/lets-hang-go/money"
)

// Participant is the caller identity copied onto attendee and request
// records.
type Participant struct {
	ID     string
	Name   string
	Email  string
	Avatar string
}

type AddOnSelection struct {
	AddOnID  string `json:"addOnId"`
	Quantity int    `json:"quantity"`
}

type JoinInput struct {
	PaymentID    string            `json:"paymentId"`
	AmountPaid   int64             `json:"amountPaid"`
	TicketCount  int               `json:"ticketCount"`
	TicketTierID string            `json:"ticketTierId"`
	AddOns       []AddOnSelection  `json:"addOns"`
	Responses    []models.Response `json:"responses"`
	PlusOnes     []models.PlusOne  `json:"plusOnes"`
}

type JoinResult struct {
	Attendee  models.Attendee
	FirstJoin bool
}

type CancelResult struct {
	OriginalAmount  int64  `json:"originalAmount"`
	CancellationFee int64  `json:"cancellationFee"`
	RefundAmount    int64  `json:"refundAmount"`
	PaymentID       string `json:"paymentId,omitempty"`
	TicketCount     int    `json:"ticketCount"`
	WasPending      bool   `json:"wasPending"`

	Name  string `json:"-"`
	Email string `json:"-"`
}

const (
	MembershipHost    = "host"
	MembershipJoined  = "joined"
	MembershipPending = "pending"
	MembershipNone    = "none"
)

type Membership struct {
	Status   string              `json:"status"`
	Attendee *models.Attendee    `json:"attendee,omitempty"`
	Request  *models.JoinRequest `json:"request,omitempty"`
}

// reservation is a validated claim on event, tier and add-on inventory.
// Nothing on the event changes until apply is called.
type reservation struct {
	tierIdx  int
	count    int
	addOnIdx []int
	addOnQty []int
	addOns   []models.PurchasedAddOn
}

// ticketCount treats a missing count as a single ticket.
func ticketCount(n int) (int, error) {
	switch {
	case n < 0:
		return 0, ErrInvalidTickets
	case n == 0:
		return 1, nil
	}
	return n, nil
}

func reserve(e *models.Event, count int, tierID string, sel []AddOnSelection) (*reservation, error) {
	count, err := ticketCount(count)
	if err != nil {
		return nil, err
	}
	r := &reservation{tierIdx: -1, count: count}

	if tierID != "" {
		r.tierIdx = e.FindTier(tierID)
		if r.tierIdx < 0 {
			return nil, ErrTierNotFound
		}
		t := e.TicketTiers[r.tierIdx]
		if t.Sold+count > t.Quantity {
			return nil, &CapacityError{Remaining: max(0, t.Quantity-t.Sold), Scope: t.Name}
		}
	}
	if tierID == "" || !e.HasMultipleTiers {
		remaining := e.TotalCapacity() - e.TicketsSold()
		if count > remaining {
			return nil, &CapacityError{Remaining: max(0, remaining), Scope: "event"}
		}
	}

	for _, s := range sel {
		qty := s.Quantity
		if qty < 1 {
			qty = 1
		}
		idx := e.FindAddOn(s.AddOnID)
		if idx < 0 {
			return nil, ErrAddOnNotFound
		}
		a := e.AddOns[idx]
		if a.Quantity != nil && a.Sold+qty > *a.Quantity {
			return nil, &CapacityError{Remaining: max(0, *a.Quantity-a.Sold), Scope: a.Name}
		}
		r.addOnIdx = append(r.addOnIdx, idx)
		r.addOnQty = append(r.addOnQty, qty)
		r.addOns = append(r.addOns, models.PurchasedAddOn{AddOnID: a.ID, Name: a.Name, Quantity: qty, Price: a.Price})
	}
	return r, nil
}

func (r *reservation) apply(e *models.Event) {
	if r.tierIdx >= 0 {
		e.TicketTiers[r.tierIdx].Sold += r.count
	}
	for i, idx := range r.addOnIdx {
		e.AddOns[idx].Sold += r.addOnQty[i]
	}
}

func (r *reservation) tierName(e *models.Event) string {
	if r.tierIdx < 0 {
		return ""
	}
	return e.TicketTiers[r.tierIdx].Name
}

// holdTier records that a holds count more tickets of the reserved tier.
func (r *reservation) holdTier(e *models.Event, a *models.Attendee) {
	if r.tierIdx < 0 {
		return
	}
	t := e.TicketTiers[r.tierIdx]
	for i := range a.Tiers {
		if a.Tiers[i].TierID == t.ID {
			a.Tiers[i].Quantity += r.count
			return
		}
	}
	a.Tiers = append(a.Tiers, models.TierPurchase{TierID: t.ID, Name: t.Name, Quantity: r.count})
}

// tierHoldings lists the tier tickets a holds. Records written before
// per-tier lines existed hold their whole count in TicketTierID.
func tierHoldings(a models.Attendee) []models.TierPurchase {
	if len(a.Tiers) > 0 || a.TicketTierID == "" {
		return a.Tiers
	}
	return []models.TierPurchase{{TierID: a.TicketTierID, Name: a.TicketTierName, Quantity: max(1, a.TicketCount)}}
}

// release returns inventory held by a departing attendee.
func release(e *models.Event, a models.Attendee) {
	for _, h := range tierHoldings(a) {
		if idx := e.FindTier(h.TierID); idx >= 0 {
			e.TicketTiers[idx].Sold = max(0, e.TicketTiers[idx].Sold-h.Quantity)
		}
	}
	for _, p := range a.AddOns {
		if idx := e.FindAddOn(p.AddOnID); idx >= 0 {
			e.AddOns[idx].Sold = max(0, e.AddOns[idx].Sold-p.Quantity)
		}
	}
}

// adjustCollected applies delta to totalCollected and re-derives the fee
// split from the new total.
func adjustCollected(e *models.Event, delta int64) error {
	total := e.TotalCollected + delta
	if total < 0 {
		total = 0
	}
	fee, earnings, err := money.Split(total)
	if err != nil {
		return err
	}
	e.TotalCollected = total
	e.PlatformFee = fee
	e.HostEarnings = earnings
	return nil
}

func isOpen(e *models.Event) bool {
	return e.Status != models.EventCompleted && e.Status != models.EventCancelled
}

// admit puts a participant on the attendee list, accumulating onto an
// existing record for repeat purchases.
func admit(e *models.Event, p Participant, res *reservation, paymentID string, amount int64, tierID string, responses []models.Response, plusOnes []models.PlusOne, now time.Time) (JoinResult, error) {
	res.apply(e)

	if idx := e.FindAttendee(p.ID); idx >= 0 {
		a := &e.Attendees[idx]
		a.TicketCount += res.count
		a.AmountPaid += amount
		if paymentID != "" {
			a.PaymentID = paymentID
			a.PaymentIDs = append(a.PaymentIDs, paymentID)
		}
		a.Tiers = tierHoldings(*a)
		if a.TicketTierID == "" && tierID != "" {
			a.TicketTierID = tierID
			a.TicketTierName = res.tierName(e)
		}
		res.holdTier(e, a)
		a.AddOns = append(a.AddOns, res.addOns...)
		if amount > 0 {
			if err := adjustCollected(e, amount); err != nil {
				return JoinResult{}, err
			}
		}
		return JoinResult{Attendee: *a}, nil
	}

	a := models.Attendee{
		ID:             p.ID,
		Name:           p.Name,
		Email:          p.Email,
		Avatar:         p.Avatar,
		JoinedAt:       now,
		PaymentID:      paymentID,
		PaymentIDs:     []string{},
		AmountPaid:     amount,
		TicketCount:    res.count,
		TicketTierID:   tierID,
		TicketTierName: res.tierName(e),
		AddOns:         res.addOns,
		Responses:      responses,
		PlusOnes:       plusOnes,
	}
	res.holdTier(e, &a)
	if paymentID != "" {
		a.PaymentIDs = append(a.PaymentIDs, paymentID)
	}
	e.Attendees = append(e.Attendees, a)

	if amount > 0 {
		if err := adjustCollected(e, amount); err != nil {
			return JoinResult{}, err
		}
	}
	return JoinResult{Attendee: a, FirstJoin: true}, nil
}

// Join admits a participant to a public event.
func Join(e *models.Event, p Participant, in JoinInput, now time.Time) (JoinResult, error) {
	if p.ID == e.HostID {
		return JoinResult{}, ErrHostCannotJoin
	}
	if e.PrivacyType != "" && e.PrivacyType != models.PrivacyPublic {
		return JoinResult{}, ErrPrivateEvent
	}
	if !isOpen(e) {
		return JoinResult{}, ErrEventClosed
	}
	if in.AmountPaid < 0 {
		return JoinResult{}, money.ErrInvalidAmount
	}
	if e.FindJoinRequest(p.ID) >= 0 {
		return JoinResult{}, ErrAlreadyRequested
	}

	res, err := reserve(e, in.TicketCount, in.TicketTierID, in.AddOns)
	if err != nil {
		return JoinResult{}, err
	}
	return admit(e, p, res, in.PaymentID, in.AmountPaid, in.TicketTierID, in.Responses, in.PlusOnes, now)
}

// RequestJoin records a pending request. Capacity is checked on approval.
func RequestJoin(e *models.Event, p Participant, in JoinInput, now time.Time) (models.JoinRequest, error) {
	if p.ID == e.HostID {
		return models.JoinRequest{}, ErrHostCannotJoin
	}
	if !isOpen(e) {
		return models.JoinRequest{}, ErrEventClosed
	}
	if e.FindAttendee(p.ID) >= 0 {
		return models.JoinRequest{}, ErrAlreadyJoined
	}
	if e.FindJoinRequest(p.ID) >= 0 {
		return models.JoinRequest{}, ErrAlreadyRequested
	}
	if in.AmountPaid < 0 {
		return models.JoinRequest{}, money.ErrInvalidAmount
	}
	count, err := ticketCount(in.TicketCount)
	if err != nil {
		return models.JoinRequest{}, err
	}

	req := models.JoinRequest{
		ID:           p.ID,
		Name:         p.Name,
		Email:        p.Email,
		Avatar:       p.Avatar,
		RequestedAt:  now,
		Status:       models.RequestPending,
		PaymentID:    in.PaymentID,
		AmountPaid:   in.AmountPaid,
		TicketTierID: in.TicketTierID,
		TicketCount:  count,
		Responses:    in.Responses,
	}
	if in.TicketTierID != "" {
		idx := e.FindTier(in.TicketTierID)
		if idx < 0 {
			return models.JoinRequest{}, ErrTierNotFound
		}
		req.TicketTierName = e.TicketTiers[idx].Name
	}
	for _, s := range in.AddOns {
		idx := e.FindAddOn(s.AddOnID)
		if idx < 0 {
			return models.JoinRequest{}, ErrAddOnNotFound
		}
		qty := max(1, s.Quantity)
		a := e.AddOns[idx]
		req.AddOns = append(req.AddOns, models.PurchasedAddOn{AddOnID: a.ID, Name: a.Name, Quantity: qty, Price: a.Price})
	}

	e.JoinRequests = append(e.JoinRequests, req)
	return req, nil
}

// Approve turns a pending request into an attendee under the same
// capacity and money rules as a direct join.
func Approve(e *models.Event, userID string, now time.Time) (JoinResult, error) {
	idx := e.FindJoinRequest(userID)
	if idx < 0 {
		return JoinResult{}, ErrRequestNotFound
	}
	req := e.JoinRequests[idx]

	count := req.TicketCount
	if count < 1 {
		count = 1
	}
	sel := make([]AddOnSelection, 0, len(req.AddOns))
	for _, a := range req.AddOns {
		sel = append(sel, AddOnSelection{AddOnID: a.AddOnID, Quantity: a.Quantity})
	}
	res, err := reserve(e, count, req.TicketTierID, sel)
	if err != nil {
		return JoinResult{}, err
	}

	e.JoinRequests = append(e.JoinRequests[:idx], e.JoinRequests[idx+1:]...)

	p := Participant{ID: req.ID, Name: req.Name, Email: req.Email, Avatar: req.Avatar}
	return admit(e, p, res, req.PaymentID, req.AmountPaid, req.TicketTierID, req.Responses, nil, now)
}

// Reject drops a pending request. Nothing was collected for it, so the
// whole payment is refunded.
func Reject(e *models.Event, userID string) (CancelResult, error) {
	idx := e.FindJoinRequest(userID)
	if idx < 0 {
		return CancelResult{}, ErrRequestNotFound
	}
	return removeRequest(e, idx), nil
}

func removeRequest(e *models.Event, idx int) CancelResult {
	req := e.JoinRequests[idx]
	e.JoinRequests = append(e.JoinRequests[:idx], e.JoinRequests[idx+1:]...)
	return CancelResult{
		OriginalAmount: req.AmountPaid,
		RefundAmount:   req.AmountPaid,
		PaymentID:      req.PaymentID,
		TicketCount:    max(1, req.TicketCount),
		WasPending:     true,
		Name:           req.Name,
		Email:          req.Email,
	}
}

// Cancel removes the caller from the event. Attendees forfeit the
// cancellation fee, which stays in totalCollected.
func Cancel(e *models.Event, userID string) (CancelResult, error) {
	if idx := e.FindAttendee(userID); idx >= 0 {
		// the payout was booked from the totals at completion
		if e.Status == models.EventCompleted {
			return CancelResult{}, ErrEventCompleted
		}
		a := e.Attendees[idx]
		fee, refund, err := money.Cancellation(a.AmountPaid)
		if err != nil {
			return CancelResult{}, err
		}

		release(e, a)
		e.Attendees = append(e.Attendees[:idx], e.Attendees[idx+1:]...)
		if err := adjustCollected(e, -refund); err != nil {
			return CancelResult{}, err
		}

		return CancelResult{
			OriginalAmount:  a.AmountPaid,
			CancellationFee: fee,
			RefundAmount:    refund,
			PaymentID:       a.PaymentID,
			TicketCount:     max(1, a.TicketCount),
			Name:            a.Name,
			Email:           a.Email,
		}, nil
	}

	if idx := e.FindJoinRequest(userID); idx >= 0 {
		return removeRequest(e, idx), nil
	}
	return CancelResult{}, ErrNotParticipant
}

func Complete(e *models.Event) {
	e.Status = models.EventCompleted
}

// RequestPayout marks the host's payout as in flight. Settlement itself is
// driven by the payout sweep.
func RequestPayout(e *models.Event) error {
	if e.Status != models.EventCompleted {
		return ErrEventNotCompleted
	}
	if e.PayoutStatus == models.PayoutPaid {
		return ErrPayoutAlreadyPaid
	}
	e.PayoutStatus = models.PayoutProcessing
	return nil
}

// SetStatus handles the host-driven transitions other than completion.
func SetStatus(e *models.Event, status string) error {
	switch status {
	case models.EventDraft, models.EventUpcoming, models.EventOngoing, models.EventCancelled:
	default:
		return ErrInvalidStatus
	}
	if e.Status == models.EventCompleted || e.Status == models.EventCancelled {
		return ErrEventClosed
	}
	e.Status = status
	return nil
}

func MembershipOf(e *models.Event, userID string) Membership {
	if e.HostID == userID {
		return Membership{Status: MembershipHost}
	}
	if idx := e.FindAttendee(userID); idx >= 0 {
		a := e.Attendees[idx]
		return Membership{Status: MembershipJoined, Attendee: &a}
	}
	if idx := e.FindJoinRequest(userID); idx >= 0 {
		r := e.JoinRequests[idx]
		return Membership{Status: MembershipPending, Request: &r}
	}
	return Membership{Status: MembershipNone}
}
