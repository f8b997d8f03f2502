package events

import (
	"errors"
	"fmt"

	"github.com/phillip/lets-hang-go/errutil"
	"github.com/phillip/lets-hang-go/money"
	"github.com/phillip/lets-hang-go/repository"
)

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrCapacityExceeded  = errors.New("not enough spots left")
	ErrAlreadyRequested  = errors.New("already requested to join")
	ErrAlreadyJoined     = errors.New("already joined")
	ErrNotParticipant    = errors.New("not part of this event")
	ErrNotHost           = errors.New("not the event host")
	ErrHostCannotJoin    = errors.New("host cannot join own event")
	ErrPrivateEvent      = errors.New("event is private")
	ErrEventClosed       = errors.New("event is not open for registration")
	ErrEventNotCompleted = errors.New("event is not completed")
	ErrEventCompleted    = errors.New("event already completed")
	ErrPayoutAlreadyPaid = errors.New("payout already completed")
	ErrRequestNotFound   = errors.New("join request not found")
	ErrTierNotFound      = errors.New("ticket tier not found")
	ErrAddOnNotFound     = errors.New("add-on not found")
	ErrInvalidTickets    = errors.New("ticket count must be at least 1")
	ErrInvalidStatus     = errors.New("invalid event status")
	ErrMissingFields     = errors.New("name, date and location are required")
	ErrInvalidCategory   = errors.New("invalid category")
	ErrInvalidCapacity   = errors.New("capacity must be at least 1")
	ErrInvalidPrivacy    = errors.New("invalid privacy type")
)

// CapacityError carries how many spots were left when a join was refused.
type CapacityError struct {
	Remaining int
	Scope     string // "event", a tier name or an add-on name
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("only %d spots left for %s", e.Remaining, e.Scope)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// toBaseError maps domain failures onto the HTTP error classes.
func toBaseError(err error) error {
	var capErr *CapacityError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &capErr):
		if capErr.Scope == "event" {
			return errutil.Conflict(fmt.Sprintf("Only %d spots left", capErr.Remaining), err)
		}
		return errutil.Conflict(fmt.Sprintf("Only %d spots left for %s", capErr.Remaining, capErr.Scope), err)
	case errors.Is(err, ErrEventNotFound), errors.Is(err, repository.ErrNotFound):
		return errutil.NotFound("Event not found", err)
	case errors.Is(err, ErrAlreadyRequested):
		return errutil.Conflict("You have already requested to join this event", err)
	case errors.Is(err, ErrAlreadyJoined):
		return errutil.Conflict("You have already joined this event", err)
	case errors.Is(err, ErrNotParticipant):
		return errutil.BadRequest("You are not registered for this event", err)
	case errors.Is(err, ErrNotHost):
		return errutil.Forbidden("Only the host can perform this action", err)
	case errors.Is(err, ErrHostCannotJoin):
		return errutil.BadRequest("You are the host of this event", err)
	case errors.Is(err, ErrPrivateEvent):
		return errutil.BadRequest("This is a private event. Please request to join.", err)
	case errors.Is(err, ErrEventClosed):
		return errutil.BadRequest("This event is no longer accepting registrations", err)
	case errors.Is(err, ErrEventCompleted):
		return errutil.BadRequest("This event has already taken place and can no longer be cancelled", err)
	case errors.Is(err, ErrEventNotCompleted):
		return errutil.BadRequest("Event must be completed to request payout", err)
	case errors.Is(err, ErrPayoutAlreadyPaid):
		return errutil.Conflict("Payout already completed", err)
	case errors.Is(err, ErrRequestNotFound):
		return errutil.NotFound("Join request not found", err)
	case errors.Is(err, ErrTierNotFound):
		return errutil.BadRequest("Ticket tier not found", err)
	case errors.Is(err, ErrAddOnNotFound):
		return errutil.BadRequest("Add-on not found", err)
	case errors.Is(err, ErrInvalidTickets):
		return errutil.BadRequest("Ticket count must be at least 1", err)
	case errors.Is(err, ErrInvalidStatus):
		return errutil.BadRequest("Invalid status", err)
	case errors.Is(err, ErrMissingFields):
		return errutil.BadRequest("Please provide name, date and location", err)
	case errors.Is(err, ErrInvalidCategory):
		return errutil.BadRequest("Invalid category", err)
	case errors.Is(err, ErrInvalidCapacity):
		return errutil.BadRequest("Capacity must be at least 1", err)
	case errors.Is(err, ErrInvalidPrivacy):
		return errutil.BadRequest("Invalid privacy type", err)
	case errors.Is(err, money.ErrInvalidAmount):
		return errutil.BadRequest("Amount must not be negative", err)
	case errors.Is(err, repository.ErrVersionConflict):
		return errutil.Conflict("Event was updated by someone else, please retry", err)
	}

	var be errutil.BaseError
	if errors.As(err, &be) {
		return be
	}
	return errutil.Internal("Something went wrong", err)
}
