package notify

import (
	"context"

	"go.uber.org/zap"

	utils "github.com/phillip/lets-hang-go/utils"
)

type Mailer interface {
	Enabled() bool
	Send(ctx context.Context, e utils.Email) error
}

// Sender renders and mails a single message.
type Sender struct {
	mailer   Mailer
	renderer Renderer
}

func NewSender(mailer Mailer, renderer Renderer) *Sender {
	return &Sender{mailer: mailer, renderer: renderer}
}

func (s *Sender) Send(ctx context.Context, msg Message) error {
	if !s.mailer.Enabled() {
		zap.L().Info("[Email] disabled, skipping", zap.String("kind", string(msg.Kind)), zap.String("to", msg.To))
		return nil
	}
	email, err := s.renderer.Render(msg)
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, email)
}
