package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const TaskSendEmail = "email:send"

type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueDispatcher pushes messages onto the asynq "default" queue where
// HandleSendEmail picks them up.
type QueueDispatcher struct {
	enq Enqueuer
}

func NewQueueDispatcher(enq Enqueuer) *QueueDispatcher {
	return &QueueDispatcher{enq: enq}
}

func NewSendEmailTask(msg Message) (*asynq.Task, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal email task: %w", err)
	}
	return asynq.NewTask(TaskSendEmail, payload), nil
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, msg Message) {
	task, err := NewSendEmailTask(msg)
	if err != nil {
		zap.L().Error("[Notify] build task", zap.Error(err))
		return
	}

	// the request context may already be done once the response is written
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	_, err = d.enq.EnqueueContext(ctx, task,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		zap.L().Error("[Notify] enqueue failed", zap.String("kind", string(msg.Kind)), zap.Error(err))
	}
}

// HandleSendEmail is the asynq handler for TaskSendEmail.
func HandleSendEmail(sender *Sender) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var msg Message
		if err := json.Unmarshal(t.Payload(), &msg); err != nil {
			return fmt.Errorf("decode email task: %v: %w", err, asynq.SkipRetry)
		}
		return sender.Send(ctx, msg)
	}
}
