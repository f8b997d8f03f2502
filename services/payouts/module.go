package payouts

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	config "github.com/phillip/lets-hang-go/config"
	"github.com/phillip/lets-hang-go/gateway"
	"github.com/phillip/lets-hang-go/repository"
)

var Module = fx.Module("payouts",
	fx.Provide(
		NewNode,
		func(r *repository.PayoutRepository) PayoutStore { return r },
		func(r *repository.EventRepository) EventStatusWriter { return r },
		func(r *repository.UserRepository) HostDirectory { return r },
		func(g *gateway.Razorpay) PayoutGateway { return g },
		NewLedger,
		NewScheduler,
	),
	fx.Invoke(StartScheduler),
)

func NewNode(cfg *config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.Payout.NodeID)
}
