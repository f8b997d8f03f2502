package notify

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"

	config "github.com/phillip/lets-hang-go/config"
	utils "github.com/phillip/lets-hang-go/utils"
)

var Module = fx.Module("notify",
	fx.Provide(
		fx.Annotate(utils.NewZeptoMailer, fx.As(new(Mailer))),
		func(cfg *config.Config) Renderer { return Renderer{FrontendURL: cfg.FrontendURL} },
		NewSender,
		NewDispatcher,
	),
)

// NewDispatcher picks the asynq queue when NOTIFY_BACKEND=asynq and Redis
// is configured, otherwise an in-process worker.
func NewDispatcher(lc fx.Lifecycle, cfg *config.Config, sender *Sender) (Dispatcher, error) {
	if cfg.Notify.Backend != "asynq" || cfg.Redis.Addr == "" {
		w := NewWorker(sender, cfg.Notify.BufferSize)
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				w.Start()
				zap.L().Info("[Notify] in-process worker started")
				return nil
			},
			OnStop: func(ctx context.Context) error {
				w.Shutdown()
				return nil
			},
		})
		return w, nil
	}

	opt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	client := asynq.NewClient(opt)
	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("asynq ping: %w", err)
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"default": 5,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			zap.L().Error("[Notify] task failed", zap.String("task_type", task.Type()), zap.Error(err))
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(TaskSendEmail, HandleSendEmail(sender))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := server.Start(mux); err != nil {
				return fmt.Errorf("start asynq server: %w", err)
			}
			zap.L().Info("[Notify] asynq server started", zap.String("addr", cfg.Redis.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			server.Shutdown()
			return client.Close()
		},
	})

	return NewQueueDispatcher(client), nil
}
