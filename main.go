package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	config "github.com/phillip/lets-hang-go/config"
	"github.com/phillip/lets-hang-go/gateway"
	"github.com/phillip/lets-hang-go/logger"
	"github.com/phillip/lets-hang-go/notify"
	"github.com/phillip/lets-hang-go/repository"
	"github.com/phillip/lets-hang-go/routes"
	"github.com/phillip/lets-hang-go/server"
	"github.com/phillip/lets-hang-go/services/auth"
	"github.com/phillip/lets-hang-go/services/events"
	"github.com/phillip/lets-hang-go/services/payouts"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		config.MongoModule,
		config.RedisModule,
		repository.Module,
		gateway.Module,
		notify.Module,
		payouts.Module,
		events.Module,
		auth.Module,
		routes.Module,
		server.Module,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: log.Named("fx").WithOptions(zap.IncreaseLevel(zap.WarnLevel))}
})
