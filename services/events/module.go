package events

import (
	"go.uber.org/fx"

	"github.com/phillip/lets-hang-go/repository"
	"github.com/phillip/lets-hang-go/services/payouts"
)

var Module = fx.Module("events",
	fx.Provide(
		func(r *repository.EventRepository) EventStore { return r },
		func(r *repository.UserRepository) UserCounter { return r },
		func(l *payouts.Ledger) PayoutScheduler { return l },
		NewService,
	),
)
