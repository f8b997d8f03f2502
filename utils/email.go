package utils

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	config "github.com/phillip/lets-hang-go/config"
)

type InlineImage struct {
	CID      string `json:"cid"`
	MimeType string `json:"mime_type"`
	Content  string `json:"content"` // base64
}

type Email struct {
	To           string
	ToName       string
	Subject      string
	HTML         string
	Text         string
	InlineImages []InlineImage
}

// email request payload for ZeptoMail API
type emailRequest struct {
	From         emailAddress  `json:"from"`
	To           []toRecipient `json:"to"`
	Subject      string        `json:"subject"`
	HtmlBody     string        `json:"htmlbody"`
	TextBody     string        `json:"textbody,omitempty"`
	InlineImages []InlineImage `json:"inline_images,omitempty"`
}

type emailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

type toRecipient struct {
	Email emailAddress `json:"email_address"`
}

// ZeptoMailer sends HTML email through the ZeptoMail HTTP API.
type ZeptoMailer struct {
	client   *resty.Client
	apiURL   string
	from     string
	fromName string
	enabled  bool
}

func NewZeptoMailer(cfg *config.Config) *ZeptoMailer {
	client := resty.New().
		SetTimeout(15*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("Authorization", cfg.Email.APIKey) // Zoho-enczapikey xxxxx

	m := &ZeptoMailer{
		client:   client,
		apiURL:   cfg.Email.APIURL, // https://api.zeptomail.com/v1.1/email
		from:     cfg.Email.From,
		fromName: cfg.Email.FromName,
		enabled:  cfg.EmailConfigured(),
	}
	if !m.enabled {
		zap.L().Warn("[Email] ZeptoMail not configured, outgoing mail is disabled")
	}
	return m
}

func (m *ZeptoMailer) Enabled() bool {
	return m.enabled
}

func (m *ZeptoMailer) Send(ctx context.Context, e Email) error {
	if !m.enabled {
		return fmt.Errorf("missing required email config")
	}

	payload := emailRequest{
		From: emailAddress{Address: m.from, Name: m.fromName},
		To: []toRecipient{
			{Email: emailAddress{Address: e.To, Name: e.ToName}},
		},
		Subject:      e.Subject,
		HtmlBody:     e.HTML,
		TextBody:     e.Text,
		InlineImages: e.InlineImages,
	}

	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(payload).
		Post(m.apiURL)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	if resp.StatusCode() != http.StatusAccepted && resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("zeptomail API error: %s", resp.Status())
	}

	zap.L().Info("[Email] sent", zap.String("to", e.To), zap.String("subject", e.Subject))
	return nil
}
