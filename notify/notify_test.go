package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	utils "github.com/phillip/lets-hang-go/utils"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type memMailer struct {
	mu      sync.Mutex
	enabled bool
	sent    []utils.Email
}

func (m *memMailer) Enabled() bool { return m.enabled }

func (m *memMailer) Send(_ context.Context, e utils.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

func (m *memMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t1"}, nil
}

func ticketMessage() Message {
	return Message{
		Kind: KindTicket,
		To:   "asha@example.com",
		Name: "Asha",
		Ticket: &TicketData{
			TicketID:      "TKT-65F0C0FF-LOYW3V28",
			EventID:       "65f0c0ffee1234567890abcd",
			EventName:     "Rooftop Jazz",
			EventDate:     "2026-06-01T19:00:00Z",
			EventLocation: "Bandra",
			TicketCount:   2,
			AmountPaid:    200000,
			AddOns:        []AddOnLine{{Name: "Parking", Quantity: 1}},
		},
	}
}

func TestNewTicketID(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	require.Equal(t, "TKT-65F0C0FF-LOYW3V28", NewTicketID("65f0c0ffee1234567890abcd", now))
	require.Equal(t, "TKT-ABC-LOYW3V28", NewTicketID("abc", now))
}

func TestFormatting(t *testing.T) {
	require.Equal(t, "₹10.00", FormatAmount(1000))
	require.Equal(t, "₹0.05", FormatAmount(5))
	require.Equal(t, "-₹2.50", FormatAmount(-250))

	require.Equal(t, "Mon, Jun 1, 2026 at 7:00 PM", FormatEventDate("2026-06-01T19:00:00Z"))
	require.Equal(t, "Mon, Jun 1, 2026", FormatEventDate("2026-06-01"))
	require.Equal(t, "next friday", FormatEventDate("next friday"))
}

func TestRender(t *testing.T) {
	r := Renderer{FrontendURL: "https://letshang.app"}

	otp, err := r.Render(Message{Kind: KindOTP, To: "a@example.com", Name: "Asha", OTP: "123456"})
	require.NoError(t, err)
	require.Equal(t, "123456 is your verification code", otp.Subject)
	require.Contains(t, otp.HTML, "123456")

	ticket, err := r.Render(ticketMessage())
	require.NoError(t, err)
	require.Equal(t, "Your 2 tickets for Rooftop Jazz", ticket.Subject)
	require.Len(t, ticket.InlineImages, 1)
	require.Equal(t, "image/png", ticket.InlineImages[0].MimeType)
	require.Contains(t, ticket.HTML, "TKT-65F0C0FF-LOYW3V28")

	_, err = r.Render(Message{Kind: KindPayout, To: "h@example.com"})
	require.Error(t, err)
	_, err = r.Render(Message{Kind: "sms"})
	require.Error(t, err)
}

func TestSender_SkipsWhenDisabled(t *testing.T) {
	m := &memMailer{}
	require.NoError(t, NewSender(m, Renderer{}).Send(context.Background(), ticketMessage()))
	require.Zero(t, m.count())
}

func TestWorker_DeliversAndDrains(t *testing.T) {
	m := &memMailer{enabled: true}
	w := NewWorker(NewSender(m, Renderer{FrontendURL: "https://letshang.app"}), 8)
	w.Start()

	for i := 0; i < 5; i++ {
		w.Dispatch(context.Background(), Message{Kind: KindWelcome, To: "a@example.com", Name: "Asha"})
	}
	w.Shutdown()

	require.Equal(t, 5, m.count())
}

// ctxMailer refuses to send on a cancelled context, like an SMTP dial would.
type ctxMailer struct {
	memMailer
	mu        sync.Mutex
	cancelled int
}

func (m *ctxMailer) Send(ctx context.Context, e utils.Email) error {
	if err := ctx.Err(); err != nil {
		m.mu.Lock()
		m.cancelled++
		m.mu.Unlock()
		return err
	}
	return m.memMailer.Send(ctx, e)
}

func TestWorker_ShutdownDoesNotCancelInFlight(t *testing.T) {
	m := &ctxMailer{memMailer: memMailer{enabled: true}}
	w := NewWorker(NewSender(m, Renderer{}), 64)
	w.Start()

	for i := 0; i < 64; i++ {
		w.Dispatch(context.Background(), Message{Kind: KindWelcome, To: "a@example.com", Name: "Asha"})
	}
	w.Shutdown()

	require.Zero(t, m.cancelled)
	require.Equal(t, 64, m.count())
}

func TestWorker_DropsWhenFull(t *testing.T) {
	m := &memMailer{enabled: true}
	w := NewWorker(NewSender(m, Renderer{}), 2)

	// not started: the buffer fills and further messages are dropped
	for i := 0; i < 5; i++ {
		w.Dispatch(context.Background(), Message{Kind: KindWelcome, To: "a@example.com"})
	}
	require.Len(t, w.ch, 2)

	w.Start()
	w.Shutdown()
	require.Equal(t, 2, m.count())
}

func TestQueueDispatcher(t *testing.T) {
	enq := &fakeEnqueuer{}
	d := NewQueueDispatcher(enq)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, ticketMessage())

	require.Len(t, enq.tasks, 1)
	require.Equal(t, TaskSendEmail, enq.tasks[0].Type())

	var got Message
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &got))
	require.Equal(t, "TKT-65F0C0FF-LOYW3V28", got.Ticket.TicketID)

	enq.err = errors.New("redis down")
	d.Dispatch(context.Background(), ticketMessage())
	require.Len(t, enq.tasks, 1)
}

func TestHandleSendEmail(t *testing.T) {
	m := &memMailer{enabled: true}
	h := HandleSendEmail(NewSender(m, Renderer{FrontendURL: "https://letshang.app"}))

	task, err := NewSendEmailTask(ticketMessage())
	require.NoError(t, err)
	require.NoError(t, h(context.Background(), task))
	require.Equal(t, 1, m.count())

	err = h(context.Background(), asynq.NewTask(TaskSendEmail, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
