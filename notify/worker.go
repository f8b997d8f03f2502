package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Worker delivers messages on a background goroutine. Dispatch never
// blocks: when the buffer is full the message is dropped.
type Worker struct {
	ch     chan Message
	sender *Sender
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWorker(sender *Sender, bufferSize int) *Worker {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		ch:     make(chan Message, bufferSize),
		sender: sender,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-w.ctx.Done():
				zap.L().Info("[Notify] draining before shutdown", zap.Int("remaining", len(w.ch)))
				for len(w.ch) > 0 {
					w.deliver(context.Background(), <-w.ch)
				}
				return
			case msg := <-w.ch:
				// shutdown only stops the loop; a message already taken is still sent
				w.deliver(context.WithoutCancel(w.ctx), msg)
			}
		}
	}()
}

func (w *Worker) deliver(ctx context.Context, msg Message) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := w.sender.Send(ctx, msg); err != nil {
		zap.L().Error("[Notify] delivery failed",
			zap.String("kind", string(msg.Kind)),
			zap.String("to", msg.To),
			zap.Error(err),
		)
	}
}

func (w *Worker) Dispatch(_ context.Context, msg Message) {
	select {
	case w.ch <- msg:
	default:
		zap.L().Warn("[Notify] channel full, dropping message", zap.String("kind", string(msg.Kind)))
	}
}

func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}
