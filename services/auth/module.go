package auth

import (
	"go.uber.org/fx"

	"github.com/phillip/lets-hang-go/repository"
)

var Module = fx.Module("auth",
	fx.Provide(
		func(r *repository.UserRepository) UserStore { return r },
		NewTokens,
		NewService,
	),
)
